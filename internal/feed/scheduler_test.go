package feed

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerScheduler(t *testing.T) {
	var fired atomic.Int32
	cancel := TickerScheduler{}.StartTimer(5*time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool { return fired.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	cancel()

	after := fired.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, fired.Load(), "no ticks after cancel")
}
