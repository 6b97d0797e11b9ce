package session

import (
	"sync/atomic"
	"time"

	"mousereel/internal/core/macro"
)

// Sampler reads the current pointer position and button state.
// The returned sample's timestamp is ignored.
type Sampler interface {
	Sample() macro.Sample
}

// Recorder appends a sample every interval while active.
type Recorder struct {
	sampler  Sampler
	interval time.Duration
	poll     time.Duration
	active   atomic.Bool
	count    atomic.Int64
	samples  []macro.Sample
	done     chan struct{}
}

func newRecorder(sampler Sampler, interval, poll time.Duration) *Recorder {
	return &Recorder{
		sampler:  sampler,
		interval: interval,
		poll:     poll,
	}
}

// Len returns the number of samples captured so far.
func (recorder *Recorder) Len() int {
	return int(recorder.count.Load())
}

func (recorder *Recorder) start() {
	recorder.samples = nil
	recorder.count.Store(0)
	recorder.done = make(chan struct{})
	recorder.active.Store(true)
	go recorder.run()
}

// stop flips the continuation flag, joins the loop and hands over the buffer.
func (recorder *Recorder) stop() []macro.Sample {
	recorder.active.Store(false)
	<-recorder.done
	samples := recorder.samples
	recorder.samples = nil
	return samples
}

func (recorder *Recorder) run() {
	defer close(recorder.done)

	start := time.Now()
	var nextTick time.Duration
	for recorder.active.Load() {
		elapsed := time.Since(start)
		if elapsed >= nextTick {
			sample := recorder.sampler.Sample()
			sample.Timestamp = float64(elapsed.Milliseconds())
			recorder.samples = append(recorder.samples, sample)
			recorder.count.Add(1)
			nextTick += recorder.interval
		}
		time.Sleep(recorder.poll)
	}
}
