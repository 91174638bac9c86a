package light

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxBatchWrites bounds how many device operations a batch fans out at
// once, so one slow or unplugged device cannot stall the rest.
const maxBatchWrites = 8

// Controller owns the deduplicated set of claimed Light instances and
// hands out Selections over it. It never touches a device handle directly;
// all hardware access goes through each instance's own operations.
type Controller struct {
	reg *Registry
	log zerolog.Logger

	mu     sync.RWMutex
	lights []*Light
	byPath map[string]*Light
}

// NewController builds a controller over the registry's claimable devices
// and runs an initial discovery.
func NewController(reg *Registry, log zerolog.Logger) *Controller {
	c := &Controller{
		reg:    reg,
		log:    log.With().Str("component", "controller").Logger(),
		byPath: make(map[string]*Light),
	}
	c.Refresh()
	return c
}

// Refresh re-runs discovery. Hot-plugged devices are claimed, constructed
// and appended; instances already held are reused, never recreated.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cand := range c.reg.discover() {
		if cand.family == nil {
			continue
		}
		if _, held := c.byPath[cand.desc.Path]; held {
			continue
		}
		l, err := c.reg.build(cand)
		if err != nil {
			c.log.Warn().Err(err).Str("id", cand.desc.ID()).Msg("skipping claimed device")
			continue
		}
		c.lights = append(c.lights, l)
		c.byPath[l.Path()] = l
		c.log.Info().Str("vendor", l.Vendor()).Str("name", l.Name()).Str("path", l.Path()).Msg("light added")
	}
	sortLights(c.lights)
}

// Close cancels every light's tasks, extinguishes them, and releases their
// handles. Used at process teardown so no light stays lit.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.lights {
		l.CancelAll()
		if err := l.TurnOff(0); err != nil {
			c.log.Warn().Err(err).Str("light", l.Name()).Msg("turn off during shutdown")
		}
		if err := l.Release(); err != nil {
			c.log.Warn().Err(err).Str("light", l.Name()).Msg("release during shutdown")
		}
	}
	c.lights = nil
	c.byPath = make(map[string]*Light)
}

// Supported lists every device the registry can claim, keyed by vendor.
func (c *Controller) Supported() map[string][]string {
	return c.reg.Supported()
}

// All selects every held light.
func (c *Controller) All() Selection {
	return c.selection(c.snapshot())
}

// First selects the first held light, or nothing when the set is empty.
func (c *Controller) First() Selection {
	lights := c.snapshot()
	if len(lights) > 1 {
		lights = lights[:1]
	}
	return c.selection(lights)
}

// ByIndex selects the lights at the given indexes into the stable ordering.
// Out-of-range indexes select nothing; they are not an error.
func (c *Controller) ByIndex(indexes ...int) Selection {
	lights := c.snapshot()
	var picked []*Light
	for _, i := range indexes {
		if i >= 0 && i < len(lights) {
			picked = append(picked, lights[i])
		}
	}
	return c.selection(picked)
}

// ByName selects lights whose display name equals name. With index < 0
// every match is selected; otherwise the index-th match, or nothing when
// out of range. No match is an empty selection, never an error.
func (c *Controller) ByName(name string, index int) Selection {
	var matches []*Light
	for _, l := range c.snapshot() {
		if l.Name() == name {
			matches = append(matches, l)
		}
	}
	if index < 0 {
		return c.selection(matches)
	}
	if index >= len(matches) {
		return c.selection(nil)
	}
	return c.selection(matches[index : index+1])
}

// ByPattern selects lights whose display name matches the regular
// expression. The only error is a malformed pattern.
func (c *Controller) ByPattern(pattern string) (Selection, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return c.selection(nil), fmt.Errorf("compile selection pattern: %w", err)
	}
	var matches []*Light
	for _, l := range c.snapshot() {
		if re.MatchString(l.Name()) {
			matches = append(matches, l)
		}
	}
	return c.selection(matches), nil
}

// Names returns the display names in stable order. Lights sharing an
// identical name get #1, #2 suffixes so each display name is unique.
func (c *Controller) Names() []string {
	lights := c.snapshot()

	counts := make(map[string]int, len(lights))
	for _, l := range lights {
		counts[l.Name()]++
	}

	seen := make(map[string]int, len(counts))
	names := make([]string, len(lights))
	for i, l := range lights {
		if counts[l.Name()] == 1 {
			names[i] = l.Name()
			continue
		}
		seen[l.Name()]++
		names[i] = fmt.Sprintf("%s #%d", l.Name(), seen[l.Name()])
	}
	return names
}

func (c *Controller) snapshot() []*Light {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Light, len(c.lights))
	copy(out, c.lights)
	return out
}

func (c *Controller) selection(lights []*Light) Selection {
	return Selection{lights: lights, log: c.log}
}

// Selection is a non-owning view over zero or more of the controller's
// lights. Batch operations treat members independently: a failure on one
// is logged and recorded but never prevents the operation on the rest, and
// an empty selection is a no-op.
type Selection struct {
	lights []*Light
	log    zerolog.Logger
}

// Lights returns the selected instances.
func (s Selection) Lights() []*Light { return s.lights }

// Len returns the number of selected lights.
func (s Selection) Len() int { return len(s.lights) }

// TurnOn shows the color steadily on every selected light.
func (s Selection) TurnOn(ctx context.Context, c Color) error {
	return s.forEach(ctx, "on", func(l *Light) error {
		return l.On(c, 0)
	})
}

// TurnOff extinguishes every selected light.
func (s Selection) TurnOff(ctx context.Context) error {
	return s.forEach(ctx, "off", func(l *Light) error {
		return l.TurnOff(0)
	})
}

// Blink starts a blink effect on every selected light and returns without
// waiting for the cycles to finish.
func (s Selection) Blink(ctx context.Context, c Color, count int, speed Speed) error {
	return s.forEach(ctx, "blink", func(l *Light) error {
		l.Blink(c, count, speed)
		return nil
	})
}

// Apply starts the effect on every selected light and returns the started
// tasks without waiting.
func (s Selection) Apply(e Effect, interval time.Duration, led int) []*Task {
	tasks := make([]*Task, 0, len(s.lights))
	for _, l := range s.lights {
		tasks = append(tasks, l.Apply(e, interval, led))
	}
	return tasks
}

// Run starts the effect on every selected light and waits until every
// instance finishes or ctx expires. On expiry all outstanding effect tasks
// are cancelled — their finalizers leave the lights off — and the ctx
// error is surfaced.
func (s Selection) Run(ctx context.Context, e Effect, interval time.Duration, led int) error {
	if len(s.lights) == 0 {
		return nil
	}

	tasks := s.Apply(e, interval, led)
	for _, t := range tasks {
		if err := t.Wait(ctx); err != nil {
			for _, l := range s.lights {
				l.CancelTask(TaskEffect)
			}
			return fmt.Errorf("run %s effect: %w", e.Name, err)
		}
	}
	return nil
}

// forEach fans fn out over the selection with bounded parallelism,
// tolerating per-member failures: each is logged, recorded, and joined
// into the returned error after every member has been attempted.
func (s Selection) forEach(ctx context.Context, op string, fn func(*Light) error) error {
	if len(s.lights) == 0 {
		return nil
	}

	var mu sync.Mutex
	var errs []error

	g := new(errgroup.Group)
	g.SetLimit(maxBatchWrites)
	for _, l := range s.lights {
		l := l
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = fn(l)
			}
			if err != nil {
				s.log.Warn().Err(err).Str("light", l.Name()).Str("op", op).Msg("batch operation failed on member")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s %s: %w", op, l.Name(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
