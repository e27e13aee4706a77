package anticheat

import "time"

// Envelope computes the plausible score band for a session of the given
// elapsed duration. It is a swappable policy: the calibration below was
// fitted to observed play and will move without the rest of the validator
// changing.
type Envelope interface {
	// Bounds returns the inclusive [minScore, maxScore] band.
	Bounds(elapsed time.Duration) (minScore, maxScore float64)
}

// LinearEnvelope brackets a 1 point-per-second baseline with generous slack
// in both directions. At the defaults a 5-minute game admits [30, 600] and
// a 10-minute game admits [60, 1200].
type LinearEnvelope struct {
	MinPerSecond float64
	MaxPerSecond float64
}

// DefaultEnvelope returns the production calibration.
func DefaultEnvelope() LinearEnvelope {
	return LinearEnvelope{MinPerSecond: 0.1, MaxPerSecond: 2.0}
}

// Bounds implements Envelope.
func (e LinearEnvelope) Bounds(elapsed time.Duration) (float64, float64) {
	secs := elapsed.Seconds()
	if secs < 0 {
		secs = 0
	}
	return e.MinPerSecond * secs, e.MaxPerSecond * secs
}
