package widget

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotFound = errors.New("widget not found")
	ErrInvalid  = errors.New("invalid widget")
)

// Widget is identified by Name. Description and Price are optional and
// encode as JSON null when unset.
type Widget struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
}

func (w Widget) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if w.Price != nil {
		p := *w.Price
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("%w: price must be a non-negative number", ErrInvalid)
		}
	}
	return nil
}

func (w Widget) clone() Widget {
	if w.Description != nil {
		d := *w.Description
		w.Description = &d
	}
	if w.Price != nil {
		p := *w.Price
		w.Price = &p
	}
	return w
}

// Patch carries a partial update. A nil field was not supplied.
//
// An empty Description or a Price that is not strictly positive is also
// treated as "no change"; neither field can be cleared or zeroed through
// a Patch.
type Patch struct {
	Description *string
	Price       *float64
}

// Apply mutates w in place and reports whether any field changed.
func (p Patch) Apply(w *Widget) bool {
	changed := false
	if p.Description != nil && *p.Description != "" {
		d := *p.Description
		w.Description = &d
		changed = true
	}
	if p.Price != nil && *p.Price > 0 {
		v := *p.Price
		w.Price = &v
		changed = true
	}
	return changed
}

func String(s string) *string { return &s }

func Float(f float64) *float64 { return &f }
