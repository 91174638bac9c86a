package light

import (
	"context"
	"math"
	"time"
)

// Speed is a blink-rate preset.
type Speed int

const (
	Slow Speed = iota
	Medium
	Fast
)

// Interval returns the inter-frame interval for the preset.
func (s Speed) Interval() time.Duration {
	switch s {
	case Slow:
		return 750 * time.Millisecond
	case Fast:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// Effect is a pure value describing a color sequence: the frames, a default
// inter-frame interval, a repeat count, and a priority. It holds no
// reference to any light; the same effect can drive many lights at once.
type Effect struct {
	Name   string
	Colors []Color
	// Interval is the default inter-frame interval, used when Execute is
	// given none.
	Interval time.Duration
	// Count is how many times the color sequence repeats. Zero cycles
	// forever until cancelled.
	Count    int
	Priority int
}

// Steady is a single color shown once.
func Steady(c Color) Effect {
	return Effect{
		Name:   "steady",
		Colors: []Color{c},
		Count:  1,
	}
}

// NewBlink alternates the color with off at the given speed. count is the
// number of on/off cycles; zero blinks until cancelled.
func NewBlink(c Color, count int, speed Speed) Effect {
	return Effect{
		Name:     "blink",
		Colors:   []Color{c, Off},
		Interval: speed.Interval(),
		Count:    count,
	}
}

// Gradient ramps from black up to the color and back down in the given
// number of steps, producing a smooth pulse.
func Gradient(c Color, steps, count int) Effect {
	if steps < 1 {
		steps = 1
	}

	colors := make([]Color, 0, steps*2-1)
	for i := 1; i <= steps; i++ {
		colors = append(colors, c.Scale(float64(i)/float64(steps)))
	}
	for i := steps - 2; i >= 0; i-- {
		colors = append(colors, colors[i])
	}

	return Effect{
		Name:     "gradient",
		Colors:   colors,
		Interval: 100 * time.Millisecond,
		Count:    count,
	}
}

// Spectrum cycles through the rainbow: three phase-shifted sine waves, one
// per channel, ramped forward then reversed for a seamless loop. intensity
// in [0, 1] scales the overall brightness.
func Spectrum(steps, count int, intensity float64) Effect {
	if steps < 1 {
		steps = 64
	}

	const (
		frequency = 0.3
		center    = 128.0
		width     = 127.0
	)

	forward := make([]Color, 0, steps)
	for i := 0; i < steps; i++ {
		t := frequency * float64(i)
		forward = append(forward, Color{
			R: clampChannel(math.Sin(t)*width + center),
			G: clampChannel(math.Sin(t+2*math.Pi/3)*width + center),
			B: clampChannel(math.Sin(t+4*math.Pi/3)*width + center),
		}.Scale(intensity))
	}

	colors := make([]Color, 0, steps*2)
	colors = append(colors, forward...)
	for i := len(forward) - 1; i >= 0; i-- {
		colors = append(colors, forward[i])
	}

	return Effect{
		Name:     "spectrum",
		Colors:   colors,
		Interval: 50 * time.Millisecond,
		Count:    count,
	}
}

// Execute drives the effect on one light: each frame is shown, then the
// task suspends for the interval. Whatever way the effect exits — normal
// completion, cancellation mid-suspend, or a device failure — the light is
// turned off before Execute returns; a cancelled effect never leaves a
// light lit.
func (e Effect) Execute(ctx context.Context, l *Light, interval time.Duration, led int) error {
	if len(e.Colors) == 0 {
		return nil
	}
	if interval <= 0 {
		interval = e.Interval
	}

	defer l.ensureOff(led)

	total := e.Count * len(e.Colors)
	for i := 0; e.Count == 0 || i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.apply(e.Colors[i%len(e.Colors)], led); err != nil {
			return err
		}
		if interval <= 0 {
			continue
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
