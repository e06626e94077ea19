// Package health reports whether stream sources and the remotes behind them
// can be read.
//
// A Checker reports a Status: Healthy, Degraded or Unhealthy. The package
// provides checkers for the common cases:
//
//   - SourceChecker runs Source.Check, the cheap viability test (the file
//     exists, a handle is set).
//   - RemoteChecker probes a URL with HEAD and reports Degraded when the
//     remote cannot be resumed reliably: no byte ranges or no length.
//   - ProgressChecker watches a live source and reports a stall when
//     BytesRead stops moving.
//
// # Aggregating
//
//	agg := health.NewAggregator(health.AggregatorConfig{
//		MaxConcurrency: 4,
//		Progress:       &health.ProgressCheckerConfig{},
//	})
//	agg.RegisterSource("input", src) // "input" and "input/progress"
//	agg.Register("origin", health.NewRemoteChecker(health.RemoteCheckerConfig{URL: u}))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//	mux.Handle("/sources", health.StateHandler(map[string]source.Source{"input": src}))
package health
