// Package source provides readable byte streams with uniform accounting.
//
// Every Source exposes the same capability set: a viability check, a size
// query, bounded reads, line iteration, a diagnostic State snapshot and a
// running SHA-256 digest plus byte counter over everything returned to the
// caller.
//
// Concrete sources:
//
//   - File reads a local file.
//   - Handle reads a caller-supplied io.Reader, optionally opened lazily.
//   - Remote reads a single HTTP GET with no reconnection.
//   - ResilientRemote reads over HTTP with a capability probe, byte-range
//     resumption and adaptive backoff on failures.
//
// Decorators wrap other sources:
//
//   - Tee copies every chunk to a sink, optionally a temp file renamed into
//     place on Close.
//   - Concat exposes several sources as one stream.
//   - Gzip decompresses the wrapped stream.
//
// # Lifecycle
//
// Sources are single use. A constructor returns an unopened source; Open
// acquires the handle or connection and Close releases it. Close never
// returns an error: failures are logged through the configured logger. Use
// pairs the two around a function:
//
//	err := source.Use(ctx, src, func() error {
//		for {
//			line, err := src.ReadLine(ctx)
//			if errors.Is(err, io.EOF) {
//				return nil
//			}
//			if err != nil {
//				return err
//			}
//			process(line)
//		}
//	})
//
// # Concurrency
//
// A source serves one reader. Read, ReadLine and friends must not be called
// concurrently. State, Sum, BytesRead and Tell may be called from other
// goroutines, and ResilientRemote.Stop is meant to be.
package source
