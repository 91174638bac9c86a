package light

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/busylamp/busylamp/pkg/usb"
)

// Task priorities. Effects run at PriorityEffect unless the effect says
// otherwise; the keepalive refresh always yields to visible work.
const (
	PriorityKeepalive = -1
	PriorityEffect    = 0
)

// Light binds one claimed device to its protocol encoder, I/O strategy and
// OS handle. All reads and writes to the hardware go through the instance;
// nothing else touches the handle.
type Light struct {
	desc      usb.Descriptor
	vendor    string
	name      string
	proto     Protocol
	transport usb.Transport
	mode      AcquisitionMode
	write     WriteStrategy
	read      ReadStrategy
	log       zerolog.Logger

	// mu serializes logical-state mutation and the flush to hardware.
	// The visible-effect task and the keepalive task both write through
	// it, so their frames never interleave.
	mu    sync.Mutex
	dev   usb.Device
	state State

	tasksMu sync.Mutex
	tasks   map[string]*Task
}

// newLight constructs a Light for a descriptor the family claimed.
func newLight(f *Family, d usb.Descriptor, tr usb.Transport, log zerolog.Logger) (*Light, error) {
	proto, err := f.New(d)
	if err != nil {
		return nil, fmt.Errorf("build %s protocol for %s: %w", f.Vendor, d.ID(), err)
	}

	l := &Light{
		desc:      d,
		vendor:    f.Vendor,
		name:      f.Rule.Name(d),
		proto:     proto,
		transport: tr,
		mode:      f.Mode,
		write:     f.Write,
		read:      f.Read,
		tasks:     make(map[string]*Task),
		log:       log.With().Str("light", f.Rule.Name(d)).Str("path", d.Path).Logger(),
	}
	if l.write == nil {
		l.write = WriteReport
	}
	if l.read == nil {
		l.read = ReadReport
	}
	return l, nil
}

// Descriptor returns the descriptor the light was constructed from.
func (l *Light) Descriptor() usb.Descriptor { return l.desc }

// Vendor returns the family's vendor name.
func (l *Light) Vendor() string { return l.vendor }

// Name returns the device's marketing name.
func (l *Light) Name() string { return l.name }

// Path returns the OS device path.
func (l *Light) Path() string { return l.desc.Path }

// State returns the light's current logical state. After a failed update
// it still holds the attempted state, not a reverted one.
func (l *Light) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Acquire opens the OS handle for the light's path. In shared mode the
// handle is instead opened around each update, so Acquire only probes that
// the device can be opened. Any open failure is ErrUnavailable.
func (l *Light) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dev != nil {
		return nil
	}

	dev, err := l.transport.Open(l.desc.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrUnavailable, l.desc.Path, err)
	}

	if l.mode == Shared {
		if err := dev.Close(); err != nil {
			l.log.Warn().Err(err).Msg("close probe handle")
		}
	} else {
		l.dev = dev
	}

	l.startKeepalive()
	return nil
}

// Release cancels the light's tasks and closes the OS handle. It is
// idempotent: releasing an already-released light is a no-op.
func (l *Light) Release() error {
	l.CancelAll()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dev == nil {
		return nil
	}
	dev := l.dev
	l.dev = nil
	if err := dev.Close(); err != nil {
		return fmt.Errorf("close %s: %w", l.desc.Path, err)
	}
	return nil
}

// Update serializes the current logical state and flushes it to hardware.
func (l *Light) Update() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

// Batch applies a sequence of state mutations and flushes exactly once
// when fn returns, however many fields it touched. This is the
// serialization boundary: no half-applied state is ever visible on the
// wire.
func (l *Light) Batch(fn func(*State)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.state)
	return l.flushLocked()
}

// On cancels any running visible effect and shows the color steadily.
func (l *Light) On(c Color, led int) error {
	l.CancelTask(TaskEffect)
	return l.apply(c, led)
}

// TurnOff cancels any running visible effect and extinguishes the light.
func (l *Light) TurnOff(led int) error {
	l.CancelTask(TaskEffect)
	return l.apply(Off, led)
}

// Apply starts the effect as the light's visible-effect task, replacing
// any effect already running. interval 0 uses the effect's default.
func (l *Light) Apply(e Effect, interval time.Duration, led int) *Task {
	return l.AddTask(TaskEffect, e.Priority, true, func(ctx context.Context) {
		err := e.Execute(ctx, l, interval, led)
		if err != nil && !errors.Is(err, context.Canceled) {
			l.log.Warn().Err(err).Str("effect", e.Name).Msg("effect aborted")
		}
	})
}

// Blink starts a blink effect at the given speed. count 0 blinks until
// cancelled.
func (l *Light) Blink(c Color, count int, speed Speed) *Task {
	return l.Apply(NewBlink(c, count, speed), 0, 0)
}

// Read reads n bytes of device state through the read strategy.
func (l *Light) Read(n int, timeout time.Duration) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dev, release, err := l.handleLocked()
	if err != nil {
		return nil, err
	}
	defer release()

	buf, err := l.read(dev, n, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, l.desc.Path, err)
	}
	return buf, nil
}

// apply sets the color without touching the task table. Effects use it
// directly; On/TurnOff wrap it with visible-effect replacement.
func (l *Light) apply(c Color, led int) error {
	return l.Batch(func(st *State) {
		st.Color = c
		st.LED = led
	})
}

// ensureOff is the effect finalizer: it extinguishes the light unless the
// last flushed state already was off.
func (l *Light) ensureOff(led int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.Color.Lit() {
		return
	}
	l.state.Color = Off
	l.state.LED = led
	if err := l.flushLocked(); err != nil {
		l.log.Warn().Err(err).Msg("turn off after effect")
	}
}

// flushLocked serializes the protocol state and writes it. Callers hold mu.
func (l *Light) flushLocked() error {
	return l.writeFrameLocked(l.proto.Frame(l.state))
}

// writeFrameLocked delivers one wire command through the write strategy,
// mapping every transport-level failure mode, including the
// unplug-during-write race, to ErrUnavailable.
func (l *Light) writeFrameLocked(frame []byte) error {
	dev, release, err := l.handleLocked()
	if err != nil {
		return err
	}
	defer release()

	n, err := l.write(dev, frame)
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, l.desc.Path, err)
	}
	if n < len(frame) {
		return fmt.Errorf("%w: short write to %s (%d of %d bytes)", ErrUnavailable, l.desc.Path, n, len(frame))
	}
	return nil
}

// handleLocked returns the device handle for one operation. Exclusive mode
// returns the held handle; shared mode opens the path and the returned
// release closes it again.
func (l *Light) handleLocked() (usb.Device, func(), error) {
	if l.mode == Shared {
		dev, err := l.transport.Open(l.desc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, l.desc.Path, err)
		}
		return dev, func() {
			if err := dev.Close(); err != nil {
				l.log.Warn().Err(err).Msg("close shared handle")
			}
		}, nil
	}

	if l.dev == nil {
		return nil, nil, fmt.Errorf("%w: %s is not acquired", ErrUnavailable, l.desc.Path)
	}
	return l.dev, func() {}, nil
}

// startKeepalive schedules the periodic refresh for protocols whose
// hardware auto-extinguishes. It runs alongside the visible-effect task
// and serializes its writes through the same mutex.
func (l *Light) startKeepalive() {
	ka, ok := l.proto.(Keepaliver)
	if !ok {
		return
	}
	interval := ka.KeepaliveInterval()

	l.AddTask(TaskKeepalive, PriorityKeepalive, false, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := l.refresh(ka); err != nil {
					l.log.Warn().Err(err).Msg("keepalive refresh failed")
				}
			}
		}
	})
}

// refresh writes one keepalive frame derived from the current state.
func (l *Light) refresh(ka Keepaliver) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeFrameLocked(ka.Keepalive(l.state))
}
