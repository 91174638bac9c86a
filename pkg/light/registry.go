// Package light discovers, claims, and drives USB presence lights. A
// Registry maps OS device descriptors to vendor protocol handlers through
// explicit claim rules; claimed descriptors become Light instances that own
// their device handle, encoder state, and per-light tasks; a Controller
// aggregates the live set and offers composable selection over it.
package light

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/busylamp/busylamp/pkg/usb"
)

// ClaimedDevice pairs a discovered descriptor with the family that claims
// it, before any light is constructed.
type ClaimedDevice struct {
	Descriptor usb.Descriptor
	Vendor     string
	Name       string
}

// candidate tracks which transport produced a descriptor so the light can
// be opened through the same one.
type candidate struct {
	desc      usb.Descriptor
	transport usb.Transport
	family    *Family
}

// Registry is the statically built table of protocol handlers. Families
// are registered explicitly at startup; the registry rejects registrations
// that would make a descriptor claimable by more than one family.
type Registry struct {
	log        zerolog.Logger
	transports []usb.Transport

	mu       sync.Mutex
	families []*Family
	ids      map[DeviceID][]*Family
}

// NewRegistry builds a registry discovering through the given transports.
func NewRegistry(log zerolog.Logger, transports ...usb.Transport) *Registry {
	return &Registry{
		log:        log.With().Str("component", "registry").Logger(),
		transports: transports,
		ids:        make(map[DeviceID][]*Family),
	}
}

// Register adds a protocol handler. Families sharing a (vendor, product)
// pair must all carry a secondary discriminator so exactly one of them
// claims any given descriptor; an ambiguous registration is rejected.
func (r *Registry) Register(f *Family) error {
	if f.Vendor == "" {
		return fmt.Errorf("family has no vendor name")
	}
	if f.New == nil {
		return fmt.Errorf("family %s has no constructor", f.Vendor)
	}
	if len(f.Rule.IDs) == 0 {
		return fmt.Errorf("family %s claims no device ids", f.Vendor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range f.Rule.IDs {
		for _, other := range r.ids[id] {
			if other.Rule.Match == nil || f.Rule.Match == nil {
				return fmt.Errorf("family %s and %s both claim %04x:%04x without a discriminator",
					f.Vendor, other.Vendor, id.VendorID, id.ProductID)
			}
		}
	}

	for id := range f.Rule.IDs {
		r.ids[id] = append(r.ids[id], f)
	}
	r.families = append(r.families, f)
	return nil
}

// MustRegister is Register for static family tables, panicking on error.
func (r *Registry) MustRegister(f *Family) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Supported lists every device the registered families can claim, keyed by
// vendor name, for capability display.
func (r *Registry) Supported() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]string)
	for _, f := range r.families {
		for _, name := range f.Rule.IDs {
			out[f.Vendor] = append(out[f.Vendor], name)
		}
	}
	for vendor := range out {
		sort.Strings(out[vendor])
	}
	return out
}

// Discover enumerates every transport and returns the valid descriptors.
// A transport failure or a malformed descriptor never aborts the scan: the
// offender is logged and enumeration continues.
func (r *Registry) Discover() []usb.Descriptor {
	cands := r.discover()
	descs := make([]usb.Descriptor, len(cands))
	for i, c := range cands {
		descs[i] = c.desc
	}
	return descs
}

// Claimed returns every discovered descriptor a family claims, with the
// claiming handler's identity.
func (r *Registry) Claimed() []ClaimedDevice {
	var out []ClaimedDevice
	for _, c := range r.discover() {
		if c.family == nil {
			continue
		}
		out = append(out, ClaimedDevice{
			Descriptor: c.desc,
			Vendor:     c.family.Vendor,
			Name:       c.family.Rule.Name(c.desc),
		})
	}
	return out
}

// All constructs and acquires a Light for every claimed descriptor. A
// candidate that fails to construct or acquire (busy, unplugged mid-scan)
// is logged and skipped, never propagated. The result is stably ordered by
// (vendor, name, path) so index addressing is consistent across calls
// while the physical set is unchanged.
func (r *Registry) All() []*Light {
	var lights []*Light
	for _, c := range r.discover() {
		if c.family == nil {
			r.log.Debug().Str("id", c.desc.ID()).Str("product", c.desc.Product).Msg("no claim rule matches descriptor")
			continue
		}
		l, err := r.build(c)
		if err != nil {
			r.log.Warn().Err(err).Str("id", c.desc.ID()).Msg("skipping claimed device")
			continue
		}
		lights = append(lights, l)
	}
	sortLights(lights)
	return lights
}

// First returns the first claimable, constructible light. Construction
// failures are retried against the next candidate; ErrNoLightsFound is
// returned only when the claimed-and-constructible set is empty.
func (r *Registry) First() (*Light, error) {
	for _, c := range r.discover() {
		if c.family == nil {
			continue
		}
		l, err := r.build(c)
		if err != nil {
			r.log.Warn().Err(err).Str("id", c.desc.ID()).Msg("candidate failed, trying next")
			continue
		}
		return l, nil
	}
	return nil, ErrNoLightsFound
}

// build constructs and acquires one light.
func (r *Registry) build(c candidate) (*Light, error) {
	l, err := newLight(c.family, c.desc, c.transport, r.log)
	if err != nil {
		return nil, err
	}
	if err := l.Acquire(); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *Registry) discover() []candidate {
	var out []candidate
	for _, tr := range r.transports {
		descs, err := tr.Enumerate()
		if err != nil {
			r.log.Warn().Err(err).Msg("transport enumeration failed")
			continue
		}
		for _, d := range descs {
			if err := d.Validate(); err != nil {
				r.log.Debug().Err(fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)).Msg("skipping malformed descriptor")
				continue
			}
			out = append(out, candidate{desc: d, transport: tr, family: r.claim(d)})
		}
	}
	return out
}

// claim returns the family claiming the descriptor. Registration-time
// validation guarantees at most one family matches.
func (r *Registry) claim(d usb.Descriptor) *Family {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.ids[DeviceID{d.VendorID, d.ProductID}] {
		if f.Rule.Claims(d) {
			return f
		}
	}
	return nil
}

func sortLights(lights []*Light) {
	sort.SliceStable(lights, func(i, j int) bool {
		if lights[i].vendor != lights[j].vendor {
			return lights[i].vendor < lights[j].vendor
		}
		if lights[i].name != lights[j].name {
			return lights[i].name < lights[j].name
		}
		return lights[i].desc.Path < lights[j].desc.Path
	})
}
