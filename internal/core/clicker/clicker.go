package clicker

import (
	"sync"
	"sync/atomic"
	"time"

	"mousereel/internal/core/model"
)

// ClickInjector emits one full press-and-release of the primary button.
type ClickInjector interface {
	Click() error
}

// Logger is the logging surface used by the clicker.
type Logger interface {
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// Status is a clicker snapshot delivered to subscribers.
type Status struct {
	Running bool
	Clicks  int64
}

// Clicker injects clicks at a fixed rate on a dedicated goroutine.
type Clicker struct {
	injector ClickInjector
	logger   Logger
	poll     time.Duration

	mu            sync.Mutex
	done          chan struct{}
	running       atomic.Bool
	intervalNanos atomic.Int64
	clicks        atomic.Int64

	subsMu      sync.Mutex
	subscribers []chan Status
}

// New creates a stopped clicker. An out-of-range CPS falls back to the default.
func New(injector ClickInjector, config model.ClickerConfig, logger Logger) *Clicker {
	if config.PollInterval <= 0 {
		config.PollInterval = model.DefaultPollInterval
	}
	if logger == nil {
		logger = nopLogger{}
	}
	clicker := &Clicker{
		injector: injector,
		logger:   logger,
		poll:     config.PollInterval,
	}
	clicker.intervalNanos.Store(intervalFor(model.DefaultClickerCPS).Nanoseconds())
	clicker.SetCPS(config.CPS)
	return clicker
}

// Subscribe returns a channel of status updates. Sends never block the click
// loop; a slow reader sees the latest status and misses intermediate ones.
func (clicker *Clicker) Subscribe(buffer int) <-chan Status {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Status, buffer)
	clicker.subsMu.Lock()
	defer clicker.subsMu.Unlock()
	clicker.subscribers = append(clicker.subscribers, ch)
	return ch
}

func (clicker *Clicker) emit(status Status) {
	clicker.subsMu.Lock()
	defer clicker.subsMu.Unlock()
	for _, ch := range clicker.subscribers {
		select {
		case ch <- status:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- status:
		default:
		}
	}
}

// SetCPS converts clicks-per-second to the tick interval. Values outside
// [0.1, 1000] are rejected and the previous interval is kept.
func (clicker *Clicker) SetCPS(cps float64) bool {
	if !model.ValidCPS(cps) {
		return false
	}
	clicker.intervalNanos.Store(intervalFor(cps).Nanoseconds())
	return true
}

// Interval returns the current tick interval.
func (clicker *Clicker) Interval() time.Duration {
	return time.Duration(clicker.intervalNanos.Load())
}

// Clicks returns the number of clicks injected since creation.
func (clicker *Clicker) Clicks() int64 {
	return clicker.clicks.Load()
}

// Running reports whether the click loop is active.
func (clicker *Clicker) Running() bool {
	return clicker.running.Load()
}

// Start launches the click loop. Starting while running is a no-op.
func (clicker *Clicker) Start() bool {
	clicker.mu.Lock()
	defer clicker.mu.Unlock()
	if clicker.running.Load() {
		return false
	}
	if clicker.done != nil {
		<-clicker.done
	}
	clicker.done = make(chan struct{})
	clicker.running.Store(true)
	clicker.logger.Info("clicker started", "interval", clicker.Interval())
	clicker.emit(Status{Running: true, Clicks: clicker.Clicks()})
	go clicker.run(clicker.done)
	return true
}

// Stop clears the running flag and waits for the loop to observe it.
func (clicker *Clicker) Stop() bool {
	clicker.mu.Lock()
	defer clicker.mu.Unlock()
	if !clicker.running.Load() {
		return false
	}
	clicker.running.Store(false)
	<-clicker.done
	clicker.logger.Info("clicker stopped", "clicks", clicker.Clicks())
	clicker.emit(Status{Clicks: clicker.Clicks()})
	return true
}

// Toggle starts a stopped clicker or stops a running one.
func (clicker *Clicker) Toggle() bool {
	if clicker.Running() {
		clicker.Stop()
		return false
	}
	clicker.Start()
	return true
}

func (clicker *Clicker) run(done chan struct{}) {
	defer close(done)

	start := time.Now()
	var nextTick time.Duration
	for clicker.running.Load() {
		if time.Since(start) >= nextTick {
			if err := clicker.injector.Click(); err != nil {
				clicker.logger.Warn("click failed", "err", err)
			}
			clicker.emit(Status{Running: true, Clicks: clicker.clicks.Add(1)})
			nextTick += clicker.Interval()
		}
		time.Sleep(clicker.poll)
	}
}

func intervalFor(cps float64) time.Duration {
	return time.Duration(float64(time.Second) / cps)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
