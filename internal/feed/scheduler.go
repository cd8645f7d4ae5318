package feed

import (
	"sync"
	"time"
)

// Scheduler starts a repeating timer. The returned cancel func must be safe
// to call more than once; fn must not be invoked after cancel returns.
type Scheduler interface {
	StartTimer(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler runs fn on a wall-clock time.Ticker.
type TickerScheduler struct{}

// StartTimer implements Scheduler.
func (TickerScheduler) StartTimer(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var mu sync.Mutex

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				select {
				case <-done:
					mu.Unlock()
					return
				default:
				}
				fn()
				mu.Unlock()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			mu.Lock()
			close(done)
			mu.Unlock()
		})
	}
}
