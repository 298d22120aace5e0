package utils

import "time"

// Clock should be injected into any component that requires access to time
type Clock interface {
	Now() time.Time
	Timer(d time.Duration) Timer
	Ticker(d time.Duration) Ticker
	Sleep(d time.Duration)
}

// Timer wraps the time.Timer object for mockability in test cases
type Timer interface {
	Alert() <-chan time.Time
	Reset(d time.Duration) bool
	Stop() bool
}

// Ticker wraps the time.Ticker object for mockability in test cases
type Ticker interface {
	Alert() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// RealClock represents the typical clock implementation using the built-in time.Time
type RealClock struct{}

// Now returns the current system time
func (RealClock) Now() time.Time {
	return time.Now()
}

// Timer returns a timer that will fire after the provided duration
func (RealClock) Timer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

// Ticker returns a ticker that fires every provided duration
func (RealClock) Ticker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// Sleep pauses the current goroutine for the specified duration
func (RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

type realTimer struct {
	*time.Timer
}

func (r realTimer) Alert() <-chan time.Time {
	return r.Timer.C
}

func (r realTimer) Reset(d time.Duration) bool {
	return r.Timer.Reset(d)
}

func (r realTimer) Stop() bool {
	return r.Timer.Stop()
}

type realTicker struct {
	*time.Ticker
}

func (r realTicker) Alert() <-chan time.Time {
	return r.Ticker.C
}

func (r realTicker) Reset(d time.Duration) {
	r.Ticker.Reset(d)
}

func (r realTicker) Stop() {
	r.Ticker.Stop()
}
