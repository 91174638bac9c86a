package light

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogEntry is one externally supplied (vendor id, product id) to
// marketing name mapping. The catalog is configuration, not behavior: an
// entry teaches an already-registered family about an additional product
// that speaks its protocol.
type CatalogEntry struct {
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`
	Name      string `yaml:"name"`
}

// Catalog maps a vendor name to its extra device entries.
type Catalog map[string][]CatalogEntry

// LoadCatalog parses a YAML catalog and merges its entries into the
// matching registered families. Entries for the IDs a family already knows
// are ignored; entries for unregistered vendors are an error, since they
// name a protocol the registry cannot drive.
func (r *Registry) LoadCatalog(rd io.Reader) error {
	data, err := io.ReadAll(rd)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for vendor, entries := range catalog {
		f := r.familyLocked(vendor)
		if f == nil {
			return fmt.Errorf("catalog names unregistered vendor %q", vendor)
		}
		for _, e := range entries {
			if e.VendorID == 0 && e.ProductID == 0 {
				return fmt.Errorf("catalog entry %q for %s has no device id", e.Name, vendor)
			}
			id := DeviceID{e.VendorID, e.ProductID}
			if _, known := f.Rule.IDs[id]; known {
				continue
			}
			// A catalog entry must pass the same disjointness check
			// Register applies: it cannot make a descriptor claimable by
			// two families unless both carry a discriminator.
			for _, other := range r.ids[id] {
				if other == f {
					continue
				}
				if other.Rule.Match == nil || f.Rule.Match == nil {
					return fmt.Errorf("catalog entry %q for %s collides with %s on %04x:%04x without a discriminator",
						e.Name, vendor, other.Vendor, e.VendorID, e.ProductID)
				}
			}
			f.Rule.IDs[id] = e.Name
			r.ids[id] = append(r.ids[id], f)
			r.log.Debug().
				Str("vendor", vendor).
				Str("name", e.Name).
				Str("id", fmt.Sprintf("%04x:%04x", e.VendorID, e.ProductID)).
				Msg("catalog entry merged")
		}
	}
	return nil
}

// familyLocked finds the first registered family for a vendor name.
// Families splitting one vendor across several handlers (Luxafor) list the
// shared entries on whichever handler registered first.
func (r *Registry) familyLocked(vendor string) *Family {
	for _, f := range r.families {
		if strings.EqualFold(f.Vendor, vendor) {
			return f
		}
	}
	return nil
}
