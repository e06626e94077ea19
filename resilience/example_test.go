package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/streamsource/resilience"
)

func ExampleAdaptiveBackoff() {
	for _, attempt := range []int{1, 6, 16, 26} {
		fmt.Printf("attempt %d: %v\n", attempt, resilience.AdaptiveBackoff(attempt))
	}
	// Output:
	// attempt 1: 10s
	// attempt 6: 1m0s
	// attempt 16: 5m0s
	// attempt 26: 10m0s
}

func ExampleRetry_Execute() {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: 3,
		Schedule:    resilience.Schedule{{UpTo: 3, Delay: time.Millisecond}},
	})

	attempts := 0
	err := retry.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("connection refused")
	})

	fmt.Println("attempts:", attempts)
	fmt.Println("exhausted:", errors.Is(err, resilience.ErrMaxRetriesExceeded))
	// Output:
	// attempts: 3
	// exhausted: true
}

func ExampleStop() {
	stop := resilience.NewStop()

	go stop.Stop()

	err := resilience.Sleep(context.Background(), stop, time.Hour)
	fmt.Println(errors.Is(err, resilience.ErrStopped))
	// Output:
	// true
}
