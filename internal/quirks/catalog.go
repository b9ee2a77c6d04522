package quirks

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrBadDescriptor marks a structurally broken descriptor.
var ErrBadDescriptor = errors.New("bad quirk descriptor")

// Catalog is the ordered set of registered descriptors. Registration
// happens at startup before any matching; the catalog is not safe for
// concurrent registration.
type Catalog struct {
	descriptors []*Descriptor
	logger      *slog.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog(logger *slog.Logger) *Catalog {
	return &Catalog{logger: logger.With("component", "quirks")}
}

// Register appends a descriptor. Duplicates are accepted; overlapping
// signatures are resolved by registration order at match time.
func (c *Catalog) Register(d Descriptor) error {
	if err := validate(&d); err != nil {
		return err
	}
	c.descriptors = append(c.descriptors, &d)
	c.logger.Debug("quirk registered", "name", d.Name, "alternatives", len(d.Signatures))
	return nil
}

// MustRegister is Register for static tables; it panics on a broken
// descriptor.
func (c *Catalog) MustRegister(d Descriptor) {
	if err := c.Register(d); err != nil {
		panic(err)
	}
}

// All returns the descriptors in registration order.
func (c *Catalog) All() []*Descriptor {
	return append([]*Descriptor(nil), c.descriptors...)
}

func (c *Catalog) Len() int { return len(c.descriptors) }

func validate(d *Descriptor) error {
	if len(d.Signatures) == 0 {
		return fmt.Errorf("%w: %q has no signatures", ErrBadDescriptor, d.Name)
	}
	for i, sig := range d.Signatures {
		if len(sig) == 0 {
			return fmt.Errorf("%w: %q signature %d has no endpoints", ErrBadDescriptor, d.Name, i)
		}
		for id := range sig {
			if id == 0 || id == 255 {
				return fmt.Errorf("%w: %q signature %d uses endpoint %d", ErrBadDescriptor, d.Name, i, id)
			}
		}
		for id := range d.Replacement {
			if _, ok := sig[id]; !ok {
				return fmt.Errorf("%w: %q replaces endpoint %d missing from signature %d", ErrBadDescriptor, d.Name, id, i)
			}
		}
	}
	return nil
}
