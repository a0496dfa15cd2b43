// rotation.go: RotatingFileSink — a size/age-rotating, compressing,
// checksumming Sink implementation.
//
// Copyright (c) 2025 ringlog authors
// SPDX-License-Identifier: MPL-2.0

package ringlog

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/semaphore"
)

// Splitter decides whether sink should rotate before accepting the next
// write, the Go realization of the original RotatingFileSink's pluggable
// rotation predicate.
type Splitter func(s *RotatingFileSink) bool

// SizeSplitter rotates once the current file reaches maxBytes.
func SizeSplitter(maxBytes int64) Splitter {
	return func(s *RotatingFileSink) bool {
		return int64(s.bytesWritten.Load()) >= maxBytes
	}
}

// AgeSplitter rotates once the current file is older than maxAge.
func AgeSplitter(maxAge time.Duration) Splitter {
	return func(s *RotatingFileSink) bool {
		created := time.Unix(s.fileCreated.Load(), 0)
		return s.now().Sub(created) >= maxAge
	}
}

// AndSplitter rotates only once every splitter agrees.
func AndSplitter(splitters ...Splitter) Splitter {
	return func(s *RotatingFileSink) bool {
		for _, sp := range splitters {
			if !sp(s) {
				return false
			}
		}
		return true
	}
}

// OrSplitter rotates as soon as any splitter agrees.
func OrSplitter(splitters ...Splitter) Splitter {
	return func(s *RotatingFileSink) bool {
		for _, sp := range splitters {
			if sp(s) {
				return true
			}
		}
		return false
	}
}

// RotatingFileSinkConfig configures a RotatingFileSink.
type RotatingFileSinkConfig struct {
	Filename   string
	MaxSizeStr string // e.g. "100MB"; defaults to 100MB if empty
	MaxBackups int
	MaxFileAge time.Duration
	LocalTime  bool
	Compress   bool
	Checksum   bool
	FileMode   os.FileMode
	RetryCount int
	RetryDelay time.Duration
	// Split decides when to rotate. Defaults to a SizeSplitter at the
	// size given by MaxSizeStr (100MB if empty).
	Split Splitter
	// ErrorCallback, if set, receives background operational errors
	// (file open, rotation, compression, checksum) the sink cannot
	// surface any other way, since it implements Sink synchronously.
	ErrorCallback func(operation string, err error)
}

// RotatingFileSink is a Sink that writes formatted lines to a file,
// rotating it by size and/or age, optionally compressing and
// checksumming rotated backups, and pruning old backups in the
// background. It supplements the core Sink family (NullSink, ConsoleSink,
// FileSink, FilterSink, MultiSink) with the teacher's full rotation
// engine, adapted behind the Splitter abstraction.
type RotatingFileSink struct {
	cfg RotatingFileSinkConfig

	currentFile  atomic.Pointer[os.File]
	bytesWritten atomic.Uint64
	rotationSeq  atomic.Uint64
	fileCreated  atomic.Int64
	maxSizeBytes int64

	initMutex sync.Mutex
	closeOnce sync.Once

	bgWorkers *backgroundWorkers
	timeCache *timecache.TimeCache
	fs        FileSystem
}

// NewRotatingFileSink opens (creating if necessary) cfg.Filename and
// returns a ready-to-use sink.
func NewRotatingFileSink(cfg RotatingFileSinkConfig) (*RotatingFileSink, error) {
	s := &RotatingFileSink{
		cfg:       cfg,
		timeCache: timecache.NewWithResolution(time.Millisecond),
		fs:        DefaultFileSystem{},
	}
	s.initSizeConfig()
	if s.cfg.Split == nil {
		s.cfg.Split = SizeSplitter(s.maxSizeBytes)
	}
	if err := s.initFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RotatingFileSink) now() time.Time { return s.timeCache.CachedTime() }

func (s *RotatingFileSink) reportError(operation string, err error) {
	if s.cfg.ErrorCallback != nil {
		s.cfg.ErrorCallback(operation, err)
	}
}

// Receive implements Sink: it formats the line the way FileSink does,
// writes it, updates byte/age state, and triggers rotation if the
// configured Splitter says so.
func (s *RotatingFileSink) Receive(level LogLevel, ts time.Time, line string) {
	rendered := lineFormat(ts, level, line)

	file := s.currentFile.Load()
	if file == nil {
		return
	}
	n, err := file.WriteString(rendered)
	if err != nil {
		s.reportError("write", err)
		return
	}
	s.bytesWritten.Add(uint64(n))

	if s.cfg.Split(s) {
		if err := s.performRotation(); err != nil {
			s.reportError("rotation", err)
		}
	}
}

// BytesWritten reports bytes written to the current file since the last
// rotation, the quantity the Sink contract's rotation touchpoint cares
// about.
func (s *RotatingFileSink) BytesWritten() uint64 { return s.bytesWritten.Load() }

// Close flushes and closes the current file and stops background
// maintenance workers.
func (s *RotatingFileSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.bgWorkers != nil {
			s.bgWorkers.stop()
		}
		s.timeCache.Stop()
		if f := s.currentFile.Load(); f != nil {
			err = f.Close()
		}
	})
	return err
}

func (s *RotatingFileSink) initFile() error {
	s.initSizeConfig()
	retryCount, retryDelay, fileMode := s.getRetryConfig()

	sanitizedPath, err := s.validateAndSanitizePath()
	if err != nil {
		return err
	}
	if err := s.createLogDirectory(sanitizedPath, retryCount, retryDelay); err != nil {
		return err
	}
	file, err := s.openLogFile(sanitizedPath, fileMode, retryCount, retryDelay)
	if err != nil {
		return err
	}
	return s.initFileState(file, sanitizedPath)
}

func (s *RotatingFileSink) initSizeConfig() {
	if s.maxSizeBytes != 0 {
		return
	}
	if s.cfg.MaxSizeStr != "" {
		if size, err := ParseSize(s.cfg.MaxSizeStr); err == nil {
			s.maxSizeBytes = size
		} else {
			s.reportError("size_parse", fmt.Errorf("invalid MaxSizeStr %q: %w", s.cfg.MaxSizeStr, err))
		}
	}
	if s.maxSizeBytes == 0 {
		s.maxSizeBytes = 100 * 1024 * 1024
	}
}

func (s *RotatingFileSink) validateAndSanitizePath() (string, error) {
	if err := ValidatePathLength(s.cfg.Filename); err != nil {
		s.reportError("path_validation", fmt.Errorf("invalid log file path %q: %w", s.cfg.Filename, err))
		return "", fmt.Errorf("invalid log file path: %w", err)
	}
	dir := filepath.Dir(s.cfg.Filename)
	base := filepath.Base(s.cfg.Filename)
	return filepath.Join(dir, SanitizeFilename(base)), nil
}

func (s *RotatingFileSink) createLogDirectory(sanitizedPath string, retryCount int, retryDelay time.Duration) error {
	dir := filepath.Dir(sanitizedPath)
	if dir == "." {
		return nil
	}
	err := RetryFileOperation(func() error {
		return os.MkdirAll(dir, 0750)
	}, retryCount, retryDelay)
	if err != nil {
		s.reportError("directory_creation", fmt.Errorf("failed to create log directory %q: %w", dir, err))
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func (s *RotatingFileSink) openLogFile(sanitizedPath string, fileMode os.FileMode, retryCount int, retryDelay time.Duration) (*os.File, error) {
	var file *os.File
	err := RetryFileOperation(func() error {
		var err error
		file, err = os.OpenFile(sanitizedPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
		return err
	}, retryCount, retryDelay)
	if err != nil {
		s.reportError("file_open", fmt.Errorf("failed to open log file %q: %w", sanitizedPath, err))
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

func (s *RotatingFileSink) initFileState(file *os.File, sanitizedPath string) error {
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		s.reportError("file_stat", fmt.Errorf("failed to stat log file %q: %w", sanitizedPath, err))
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	s.cfg.Filename = sanitizedPath
	s.currentFile.Store(file)

	size := info.Size()
	if size < 0 {
		size = 0
	}
	s.bytesWritten.Store(uint64(size))
	s.fileCreated.Store(s.now().Unix())
	return nil
}

func (s *RotatingFileSink) performRotation() error {
	currentFile := s.currentFile.Load()
	if currentFile == nil {
		return fmt.Errorf("no current file to rotate")
	}

	backupName := s.generateBackupName()
	retryCount, retryDelay, fileMode := s.getRetryConfig()

	if err := s.closeAndRotateFile(currentFile, backupName, retryCount, retryDelay, fileMode); err != nil {
		return err
	}
	s.updateRotationState()
	s.scheduleBackgroundTasks(backupName)
	return nil
}

func (s *RotatingFileSink) generateBackupName() string {
	now := s.now()
	if !s.cfg.LocalTime {
		now = now.UTC()
	}
	return fmt.Sprintf("%s.%s", s.cfg.Filename, now.Format("2006-01-02-15-04-05"))
}

func (s *RotatingFileSink) getRetryConfig() (int, time.Duration, os.FileMode) {
	retryCount := s.cfg.RetryCount
	if retryCount == 0 {
		retryCount = 3
	}
	retryDelay := s.cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 10 * time.Millisecond
	}
	fileMode := s.cfg.FileMode
	if fileMode == 0 {
		fileMode = GetDefaultFileMode()
	}
	return retryCount, retryDelay, fileMode
}

func (s *RotatingFileSink) closeAndRotateFile(currentFile *os.File, backupName string, retryCount int, retryDelay time.Duration, fileMode os.FileMode) error {
	err := RetryFileOperation(func() error { return currentFile.Close() }, retryCount, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to close current file: %w", err)
	}

	err = RetryFileOperation(func() error { return os.Rename(s.cfg.Filename, backupName) }, retryCount, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	time.Sleep(retryDelay)

	var newFile *os.File
	err = RetryFileOperation(func() error {
		var err error
		newFile, err = os.OpenFile(s.cfg.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
		return err
	}, retryCount, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to create new log file: %w", err)
	}

	s.currentFile.Store(newFile)
	return nil
}

func (s *RotatingFileSink) updateRotationState() {
	s.bytesWritten.Store(0)
	s.fileCreated.Store(s.now().Unix())
	s.rotationSeq.Add(1)
}

func (s *RotatingFileSink) scheduleBackgroundTasks(backupName string) {
	if s.bgWorkers == nil {
		s.bgWorkers = newBackgroundWorkers(2)
	}

	if s.cfg.MaxBackups > 0 {
		s.bgWorkers.submit(backgroundTask{kind: "cleanup", sink: s})
	}
	if s.cfg.Checksum {
		s.bgWorkers.submit(backgroundTask{kind: "checksum", path: backupName, sink: s})
	}
	if s.cfg.Compress {
		s.bgWorkers.submit(backgroundTask{kind: "compress", path: backupName, sink: s})
	}
}

type fileInfo struct {
	name    string
	modTime time.Time
}

func (s *RotatingFileSink) cleanupOldFiles() {
	pattern := s.cfg.Filename + ".*"
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	now := s.now()
	var files []fileInfo
	for _, match := range matches {
		info, err := s.fs.Stat(match)
		if err != nil {
			continue
		}
		if s.cfg.MaxFileAge > 0 {
			age := now.Sub(info.ModTime())
			if age > s.cfg.MaxFileAge {
				if err := s.fs.Remove(match); err != nil {
					s.reportError("age_cleanup", fmt.Errorf("failed to remove old file %s (age %s): %w", match, humanize.RelTime(info.ModTime(), now, "", ""), err))
				}
				continue
			}
		}
		files = append(files, fileInfo{name: match, modTime: info.ModTime()})
	}

	if s.cfg.MaxBackups <= 0 || len(files) <= s.cfg.MaxBackups {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	toRemove := len(files) - s.cfg.MaxBackups
	for i := 0; i < toRemove; i++ {
		if err := s.fs.Remove(files[i].name); err != nil {
			s.reportError("count_cleanup", fmt.Errorf("failed to remove excess backup file %s: %w", files[i].name, err))
		}
	}
}

// compressFile gzip-compresses filename, via a temporary file so a crash
// mid-compression never leaves a truncated .gz in place of a readable
// backup.
func (s *RotatingFileSink) compressFile(filename string) {
	var source *os.File
	err := RetryFileOperation(func() error {
		var err error
		source, err = s.fs.Open(filename)
		return err
	}, 3, 10*time.Millisecond)
	if err != nil {
		s.reportError("compress_open", err)
		return
	}
	defer source.Close()

	compressedName := filename + ".gz"
	tempName := compressedName + ".tmp"

	target, err := s.fs.Create(tempName)
	if err != nil {
		s.reportError("compress_create", err)
		return
	}

	gzWriter := gzip.NewWriter(target)
	written, err := io.Copy(gzWriter, source)
	if err != nil {
		_ = gzWriter.Close()
		_ = target.Close()
		_ = os.Remove(tempName)
		s.reportError("compress_copy", err)
		return
	}
	if err := gzWriter.Close(); err != nil {
		_ = target.Close()
		_ = os.Remove(tempName)
		s.reportError("compress_finalize", err)
		return
	}
	if err := target.Close(); err != nil {
		_ = os.Remove(tempName)
		s.reportError("compress_close", err)
		return
	}
	if err := s.fs.Rename(tempName, compressedName); err != nil {
		_ = s.fs.Remove(tempName)
		s.reportError("compress_rename", fmt.Errorf("failed to rename %s to %s: %w", tempName, compressedName, err))
		return
	}
	if err := s.fs.Remove(filename); err != nil {
		s.reportError("compress_cleanup", err)
	}
	_ = written // the compressed byte count is not reported anywhere
}

// generateChecksum writes a SHA-256 sidecar file for filename (or its
// .gz counterpart if compression already ran first).
func (s *RotatingFileSink) generateChecksum(filename string) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		if !strings.HasSuffix(filename, ".gz") {
			if _, err := os.Stat(filename + ".gz"); err == nil {
				filename += ".gz"
			} else {
				s.reportError("checksum_missing", fmt.Errorf("file not found for checksum: %s", filename))
				return
			}
		} else {
			s.reportError("checksum_missing", fmt.Errorf("file not found for checksum: %s", filename))
			return
		}
	}

	file, err := os.Open(filename)
	if err != nil {
		s.reportError("checksum_open", fmt.Errorf("failed to open file for checksum %s: %w", filename, err))
		return
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		s.reportError("checksum_read", fmt.Errorf("failed to read file for checksum %s: %w", filename, err))
		return
	}

	hashHex := fmt.Sprintf("%x", hash.Sum(nil))
	checksumFile := filename + ".sha256"
	content := fmt.Sprintf("%s  %s\n", hashHex, filepath.Base(filename))

	if err := os.WriteFile(checksumFile, []byte(content), 0600); err != nil {
		s.reportError("checksum_write", fmt.Errorf("failed to write checksum file %s: %w", checksumFile, err))
	}
}

// backgroundTask is one unit of post-rotation maintenance work.
type backgroundTask struct {
	kind string // "cleanup", "compress", "checksum"
	path string
	sink *RotatingFileSink
}

// backgroundWorkers bounds concurrent post-rotation maintenance with a
// weighted semaphore instead of the unbounded-goroutine-per-task
// approach, so a burst of rotations cannot spawn unbounded compression
// goroutines against the disk at once.
type backgroundWorkers struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

func newBackgroundWorkers(maxConcurrent int64) *backgroundWorkers {
	ctx, cancel := context.WithCancel(context.Background())
	return &backgroundWorkers{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(maxConcurrent),
	}
}

func (bg *backgroundWorkers) submit(task backgroundTask) {
	if bg.ctx.Err() != nil {
		return
	}
	if err := bg.sem.Acquire(bg.ctx, 1); err != nil {
		return // shutting down
	}

	bg.wg.Add(1)
	go func() {
		defer bg.wg.Done()
		defer bg.sem.Release(1)

		switch task.kind {
		case "cleanup":
			task.sink.cleanupOldFiles()
		case "compress":
			task.sink.compressFile(task.path)
		case "checksum":
			task.sink.generateChecksum(task.path)
		}
	}()
}

func (bg *backgroundWorkers) stop() {
	bg.cancel()
	bg.wg.Wait()
}

// FileSystem abstracts the filesystem calls RotatingFileSink makes during
// backup cleanup and most of compression, letting tests substitute an
// in-memory or failure-injecting implementation for those paths. Opening,
// rotating and checksumming the log file call the os package directly.
type FileSystem interface {
	Create(name string) (*os.File, error)
	Open(name string) (*os.File, error)
	Rename(oldname, newname string) error
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
}

// DefaultFileSystem implements FileSystem with the os package directly.
type DefaultFileSystem struct{}

func (DefaultFileSystem) Create(name string) (*os.File, error) { return os.Create(name) }
func (DefaultFileSystem) Open(name string) (*os.File, error)   { return os.Open(name) }
func (DefaultFileSystem) Rename(oldname, newname string) error { return os.Rename(oldname, newname) }
func (DefaultFileSystem) Remove(name string) error              { return os.Remove(name) }
func (DefaultFileSystem) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }
