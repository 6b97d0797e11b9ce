package session

import (
	"sync/atomic"
	"time"

	"mousereel/internal/core/macro"
)

// Injector emits synthetic pointer input.
type Injector interface {
	Move(x, y int) error
	ButtonDown(button macro.Button) error
	ButtonUp(button macro.Button) error
}

// Interrupter reports whether the hard-stop key is currently held.
type Interrupter interface {
	Interrupted() bool
}

// Player walks a prepared sample sequence and injects it in real time.
type Player struct {
	injector    Injector
	interrupter Interrupter
	onInterrupt func()
	minimumHold time.Duration
	poll        time.Duration
	logger      Logger

	playing atomic.Bool
	looping atomic.Bool
	passes  atomic.Int64
}

func newPlayer(injector Injector, interrupter Interrupter, minimumHold, poll time.Duration, looping bool, logger Logger) *Player {
	player := &Player{
		injector:    injector,
		interrupter: interrupter,
		minimumHold: minimumHold,
		poll:        poll,
		logger:      logger,
	}
	player.playing.Store(true)
	player.looping.Store(looping)
	return player
}

// Stop clears both the playing and looping flags.
func (player *Player) Stop() {
	player.playing.Store(false)
	player.looping.Store(false)
}

// Playing reports whether the current pass should continue.
func (player *Player) Playing() bool {
	return player.playing.Load()
}

// Passes returns the number of completed or cancelled passes.
func (player *Player) Passes() int64 {
	return player.passes.Load()
}

// Run plays the sequence once, or until stopped when looping.
func (player *Player) Run(samples []macro.Sample) {
	for {
		player.playOnce(samples)
		player.passes.Add(1)
		if !player.playing.Load() || !player.looping.Load() {
			return
		}
	}
}

func (player *Player) playOnce(samples []macro.Sample) {
	start := time.Now()
	var pressed [2]bool
	var pressedAt [2]time.Duration

	defer func() {
		for _, button := range macro.Buttons {
			if pressed[button] {
				player.buttonUp(button)
			}
		}
	}()

	current := 0
	for current < len(samples) && player.continuePass() {
		sample := samples[current]
		elapsed := time.Since(start)
		if millis(elapsed) < sample.Timestamp {
			time.Sleep(player.poll)
			continue
		}

		if err := player.injector.Move(sample.X, sample.Y); err != nil {
			player.logger.Warn("move pointer failed", "x", sample.X, "y", sample.Y, "err", err)
		}
		for _, button := range macro.Buttons {
			down := sample.Down(button)
			switch {
			case down && !pressed[button]:
				player.buttonDown(button)
				pressed[button] = true
				pressedAt[button] = time.Since(start)
			case !down && pressed[button]:
				if held := time.Since(start) - pressedAt[button]; held < player.minimumHold {
					time.Sleep(player.minimumHold - held)
				}
				player.buttonUp(button)
				pressed[button] = false
			}
		}
		current++
	}
}

// continuePass polls the interrupt key and the playing flag.
func (player *Player) continuePass() bool {
	if player.interrupter != nil && player.interrupter.Interrupted() {
		player.Stop()
		if player.onInterrupt != nil {
			player.onInterrupt()
		}
	}
	return player.playing.Load()
}

func (player *Player) buttonDown(button macro.Button) {
	if err := player.injector.ButtonDown(button); err != nil {
		player.logger.Warn("button down failed", "button", button, "err", err)
	}
}

func (player *Player) buttonUp(button macro.Button) {
	if err := player.injector.ButtonUp(button); err != nil {
		player.logger.Warn("button up failed", "button", button, "err", err)
	}
}

func millis(duration time.Duration) float64 {
	return float64(duration) / float64(time.Millisecond)
}
