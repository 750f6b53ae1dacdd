// Package timing provides frame-rate pacing for the real-time frontends
// (terminal, SDL2) and the cycle-rate constants the APU derives its sample
// rate from. Headless/batch runs don't pace at all, so they aren't wired
// to this package.
package timing

import (
	"log/slog"
	"time"
)

// Game Boy hardware timing constants.
const (
	// CPUFrequency is the Sharp LR35902's clock rate in Hz.
	CPUFrequency = 4194304
	// CyclesPerFrame is the number of T-cycles in one 59.7Hz video frame.
	CyclesPerFrame = 70224
)

// TargetFPS is the exact Game Boy frame rate (~59.7Hz).
func TargetFPS() float64 {
	return float64(CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration is the wall-clock duration of a single frame at TargetFPS.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// Limiter paces a frontend's render loop to real time.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	WaitForNextFrame()
	// Reset clears accumulated drift, useful after a pause.
	Reset()
}

// AdaptiveLimiter sleeps for the bulk of the frame budget and busy-waits
// the remainder for accuracy, correcting for long-run drift every second.
type AdaptiveLimiter struct {
	targetFrameTime time.Duration
	nextFrameTime   time.Time
	frameCounter    int64
}

func NewAdaptiveLimiter() *AdaptiveLimiter {
	return &AdaptiveLimiter{
		targetFrameTime: FrameDuration(),
		nextFrameTime:   time.Now(),
	}
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := time.Now()
	sleepTime := a.nextFrameTime.Sub(now)

	if sleepTime > 0 {
		if sleepTime < 2*time.Millisecond {
			for time.Now().Before(a.nextFrameTime) {
			}
		} else {
			time.Sleep(sleepTime - time.Millisecond)
			for time.Now().Before(a.nextFrameTime) {
			}
		}
	} else if sleepTime < -5*time.Millisecond {
		// fell too far behind, stop trying to catch up
		a.nextFrameTime = now
	}

	a.nextFrameTime = a.nextFrameTime.Add(a.targetFrameTime)
	a.frameCounter++

	if a.frameCounter%int64(TargetFPS()) == 0 {
		drift := time.Now().Sub(a.nextFrameTime)
		if drift.Abs() > 10*time.Millisecond {
			a.nextFrameTime = a.nextFrameTime.Add(drift / 10)
			slog.Debug("frame timing drift correction", "drift_ms", drift.Milliseconds())
		}
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.nextFrameTime = time.Now()
	a.frameCounter = 0
}
