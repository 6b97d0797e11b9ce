package macro

import (
	"math"
	"time"
)

// Scale multiplies every timestamp by speedFactor and returns a new slice.
func Scale(samples []Sample, speedFactor float64) []Sample {
	scaled := make([]Sample, len(samples))
	for index, sample := range samples {
		sample.Timestamp *= speedFactor
		scaled[index] = sample
	}
	return scaled
}

// PruneFactor returns the decimation step used for a speed factor below 1.
func PruneFactor(speedFactor float64) int {
	factor := int(math.Round(1 / speedFactor))
	if factor < 2 {
		factor = 2
	}
	return factor
}

// Prune thins steady-state samples for faster-than-recorded playback.
// A sample survives when it is first, when its button state differs from the
// input sample right before it, or when its input index is a multiple of the
// prune factor. Nothing is removed when speedFactor >= 1.
func Prune(samples []Sample, speedFactor float64) []Sample {
	if speedFactor >= 1 || len(samples) == 0 {
		return append([]Sample(nil), samples...)
	}

	factor := PruneFactor(speedFactor)
	kept := make([]Sample, 0, len(samples)/factor+1)
	for index, sample := range samples {
		switch {
		case index == 0:
		case !sample.SameButtons(samples[index-1]):
		case index%factor == 0:
		default:
			continue
		}
		kept = append(kept, sample)
	}
	return kept
}

// CorrectHold stretches every closed press shorter than minimum. The shortfall
// is added to the release sample and everything after it, for the left button
// first and then the right one. A press still open at the end is left alone.
func CorrectHold(samples []Sample, minimum time.Duration) []Sample {
	corrected := append([]Sample(nil), samples...)
	minimumMillis := float64(minimum) / float64(time.Millisecond)
	for _, button := range Buttons {
		correctButton(corrected, button, minimumMillis)
	}
	return corrected
}

func correctButton(samples []Sample, button Button, minimumMillis float64) {
	pressed := false
	pressedAt := 0.0
	for index := range samples {
		down := samples[index].Down(button)
		switch {
		case down && !pressed:
			pressed = true
			pressedAt = samples[index].Timestamp
		case !down && pressed:
			pressed = false
			held := samples[index].Timestamp - pressedAt
			if held < minimumMillis {
				shift(samples[index:], minimumMillis-held)
			}
		}
	}
}

func shift(samples []Sample, deltaMillis float64) {
	for index := range samples {
		samples[index].Timestamp += deltaMillis
	}
}

// Prepare runs the full load pipeline: scale, prune, then hold correction.
func Prepare(samples []Sample, speedFactor float64, minimum time.Duration) []Sample {
	return CorrectHold(Prune(Scale(samples, speedFactor), speedFactor), minimum)
}
