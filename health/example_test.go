package health_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/jonwraymond/streamsource/health"
	"github.com/jonwraymond/streamsource/source"
)

func ExampleNewRemoteChecker() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "", time.Time{}, strings.NewReader("payload"))
	}))
	defer srv.Close()

	checker := health.NewRemoteChecker(health.RemoteCheckerConfig{URL: srv.URL})
	result := checker.Check(context.Background())
	fmt.Println(result.Status, "-", result.Message)
	fmt.Println("length:", result.Details["content_length"])
	// Output:
	// healthy - remote supports resumable reads
	// length: 7
}

func ExampleAggregator() {
	ctx := context.Background()
	src := source.NewHandle(source.HandleConfig{Reader: strings.NewReader("x")})

	agg := health.NewAggregator()
	agg.Register("stdin", health.NewSourceChecker("stdin", src))
	agg.Register("missing", health.NewSourceChecker("missing", source.NewFile(source.FileConfig{Path: "/nonexistent/input.log"})))

	results := agg.CheckAll(ctx)
	fmt.Println("stdin:", results["stdin"].Status)
	fmt.Println("missing:", results["missing"].Status)
	fmt.Println("overall:", agg.OverallStatus(results))
	// Output:
	// stdin: healthy
	// missing: unhealthy
	// overall: unhealthy
}
