package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ganadobravo/scanfusion/logging"
)

// slowLogIntervals are the waits between repeated "still running" warnings. The last interval
// repeats.
var slowLogIntervals = []time.Duration{2 * time.Second, 3 * time.Second, 5 * time.Second}

// SlowLogger warns with msg and keysAndValues, plus the time elapsed, for as long as an operation
// keeps running. Call the returned function once the operation is done.
func SlowLogger(
	ctx context.Context,
	clk clock.Clock,
	logger logging.Logger,
	msg string,
	keysAndValues ...interface{},
) func() {
	ctx, cancel := context.WithCancel(ctx)
	start := clk.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			timer := clk.Timer(slowLogIntervals[min(i, len(slowLogIntervals)-1)])
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			elapsed := clk.Since(start).Round(time.Second).String()
			logger.Warnw(msg, append(keysAndValues[:len(keysAndValues):len(keysAndValues)], "time_elapsed", elapsed)...)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
