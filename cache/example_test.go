package cache_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/jonwraymond/streamsource/cache"
	"github.com/jonwraymond/streamsource/fetch"
)

func ExampleNewProbeCache() {
	var heads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
		}
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", "1024")
	}))
	defer srv.Close()

	f := cache.NewProbeCache(fetch.NewHTTPFetcher(fetch.Config{}), nil, nil, cache.DefaultPolicy())
	for i := 0; i < 3; i++ {
		res, err := f.Probe(context.Background(), fetch.Request{URL: srv.URL})
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Println(res.ContentLength, res.AcceptRanges)
	}
	fmt.Println("HEAD requests:", heads.Load())
	// Output:
	// 1024 true
	// 1024 true
	// 1024 true
	// HEAD requests: 1
}
