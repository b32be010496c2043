// Package styx provides a low-overhead asynchronous packet logging
// pipeline: a lock-free MPSC ring, an async sink wrapper that drains it
// on a dedicated goroutine, and a rotating file sink with optional zstd
// streaming compression and SHA-256 checksums.
//
// # Quick Start
//
//	p, err := styx.NewWithConfig(&styx.Config{
//		Filename:   "app.log",
//		MaxSizeStr: "100MB",
//		MaxFiles:   10,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	p.Write([]byte("hello\n"))
//
// # Constructors
//
//	p, err := styx.New("app.log", 100, 5) // 100MB, 5 files (active + 4 backups)
//
//	p, err := styx.NewWithConfig(&styx.Config{
//		Filename:       "app.log",
//		MaxSizeStr:     "500MB",
//		MaxFiles:       20,
//		Strategy:       "incremental",
//		Writer:         styx.WriterZstd,
//		Checksum:       true,
//		FlushPeriodStr: "5ms",
//	})
//
// # Direct Ring Access
//
// For callers that want to format directly into the ring instead of
// handing styx a []byte to copy, Pipeline.Write funnels through
// AsyncSink.Enqueue, which exposes the underlying Reserve/Commit pair:
//
//	async.Enqueue(uint32(n), func(dst []byte) {
//		copy(dst, formatRecord(dst[:0]))
//	})
//
// # Error Handling
//
//	cfg := &styx.Config{
//		Filename: "app.log",
//		ErrorCallback: func(op string, err error) {
//			metrics.Counter("styx_errors").WithTag("op", op).Inc()
//		},
//	}
//
// # Thread Safety
//
// Pipeline.Write is safe for concurrent use by any number of producer
// goroutines; exactly one background goroutine drains the ring into the
// rotating sink.
package styx
