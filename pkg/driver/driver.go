// Package driver holds the vendor protocol handlers for every supported
// presence-light family. Each file describes one family declaratively: its
// claim rule, its I/O strategy, and the encoder that turns the logical
// color state into the vendor's exact wire command. Families are wired
// into a registry explicitly through Register; nothing is discovered by
// reflection.
package driver

import (
	"fmt"

	"github.com/busylamp/busylamp/pkg/light"
)

// families returns a fresh handler table. Fresh per call so two registries
// never share mutable claim-rule state.
func families() []*light.Family {
	return []*light.Family{
		Embrava(),
		Kuando(),
		LuxaforFlag(),
		LuxaforMute(),
		LuxaforOrb(),
		ThingM(),
		Agile(),
		MuteMe(),
		CompuLab(),
		MuteSync(),
	}
}

// Register wires every supported family into the registry.
func Register(reg *light.Registry) error {
	for _, f := range families() {
		if err := reg.Register(f); err != nil {
			return fmt.Errorf("register %s: %w", f.Vendor, err)
		}
	}
	return nil
}

// MustRegister is Register panicking on error, for static wiring in main.
func MustRegister(reg *light.Registry) {
	if err := Register(reg); err != nil {
		panic(err)
	}
}
