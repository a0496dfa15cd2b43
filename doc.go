// Package ringlog provides an asynchronous, low-latency, in-process
// logging pipeline built around a single-producer/single-consumer
// lock-free ring buffer of raw bytes.
//
// ringlog defers every formatting cost to a dedicated consumer goroutine:
// a producer call site serializes its level and arguments into the ring
// buffer without formatting anything, and the consumer
// decodes, formats, and dispatches records to one or more Sinks at its
// own pace. This keeps producer-side latency independent of sink speed,
// at the cost of requiring exactly one producer and one consumer per
// Logger.
//
// # Quick Start
//
//	buf := ringlog.NewRingBuffer(64 * 1024)
//	sink := ringlog.NewConsoleSink(os.Stdout)
//	logger := ringlog.New(buf, sink)
//
//	go func() {
//		for {
//			logger.ReadLog()
//		}
//	}()
//
//	logger.Info("request handled in {}ms", ringlog.Int64(latencyMs))
//
// # Registered Formats
//
// Call sites on a hot path can avoid sending their format string over
// the wire on every call by registering it once, at package scope:
//
//	var requestDoneFmt = ringlog.RegisterFormat("request {} took {}ms")
//
//	logger.InfoF(requestDoneFmt, ringlog.Str(reqID), ringlog.Int64(latencyMs))
//
// # Buffer Backends
//
// RingBuffer is the fixed-capacity, lock-free SPSC backend intended for
// the hot path. VectorBuffer and ListBuffer are mutex-protected,
// unbounded reference implementations useful as correctness oracles in
// tests, not for production hot paths.
//
// # Sinks
//
// NullSink discards records. ConsoleSink colors output by level when
// writing to a terminal. FileSink writes to any io.Writer and tracks
// bytes written. FilterSink drops records below a minimum level before
// forwarding. MultiSink fans a record out to several sinks, recovering
// and aggregating any panic from an individual sink so the rest still
// receive the record. RotatingFileSink supplements these with a full
// size/age-rotating, gzip-compressing, SHA-256-checksumming file sink,
// configurable via Splitter predicates (SizeSplitter, AgeSplitter,
// AndSplitter, OrSplitter):
//
//	sink, err := ringlog.NewRotatingFileSink(ringlog.RotatingFileSinkConfig{
//		Filename:   "app.log",
//		MaxSizeStr: "100MB",
//		MaxBackups: 10,
//		MaxFileAge: 7 * 24 * time.Hour,
//		Compress:   true,
//		Checksum:   true,
//	})
//
// # Back-pressure
//
// Log/Trace/Debug/Info/Warn/Error/Critical block the producer until
// there is room in the buffer for the record, the way a bounded channel
// send blocks. TryLog and its per-level Try* counterparts never block,
// returning false instead when the record does not fit right now.
//
// # Concurrency Model
//
// A Logger supports exactly one producer goroutine and one consumer
// goroutine. Multiple producers must either share one goroutine (e.g. via
// an external mutex) or each get their own Logger over its own buffer,
// fanned into a shared Sink.
package ringlog
