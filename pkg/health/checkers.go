package health

import (
	"context"
	"runtime"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// LoadedCheck fails until status reports a successful load. status returns
// the time of the last successful load (zero if none) and the last error.
func LoadedCheck(status func() (time.Time, error)) CheckFunc {
	return func(_ context.Context) error {
		at, err := status()
		if at.IsZero() {
			if err != nil {
				return errors.Wrap(err, "not loaded")
			}
			return errors.New("not loaded")
		}
		return nil
	}
}

// BacklogCheck fails when pending exceeds threshold.
func BacklogCheck(pending func() int, threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := pending(); n > threshold {
			return errors.Errorf("%d pending writes exceed threshold %d", n, threshold)
		}
		return nil
	}
}
