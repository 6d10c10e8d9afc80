// Package oem stores verified manufacturer-specific fault code definitions,
// keyed by (make, code). Definitions are only ever read back as stored; a
// miss is reported as nil, never approximated.
package oem

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/WessleyAI/wessley-dtc/engine/dtc"
)

// ErrInvalidEntry is returned by Insert for entries that cannot be stored.
var ErrInvalidEntry = errors.New("oem: invalid entry")

// Store is a manufacturer reference store.
type Store interface {
	// Lookup returns the definition for (make, code), or nil when absent.
	Lookup(ctx context.Context, make_, code string) (*dtc.Definition, error)
	// Insert stores e unless (make, code) already exists. Existing rows are
	// never overwritten.
	Insert(ctx context.Context, e Entry) (created bool, err error)
	Close() error
}

// Entry is one curated manufacturer definition.
type Entry struct {
	Make        string `json:"make" yaml:"make"`
	Code        string `json:"code" yaml:"code"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
}

// NormalizeMake trims and uppercases a make.
func NormalizeMake(m string) string {
	return strings.ToUpper(strings.TrimSpace(m))
}

// Normalized returns e with make and code normalized and text trimmed.
func (e Entry) Normalized() Entry {
	return Entry{
		Make:        NormalizeMake(e.Make),
		Code:        dtc.Normalize(e.Code),
		Title:       strings.TrimSpace(e.Title),
		Description: strings.TrimSpace(e.Description),
		Source:      strings.TrimSpace(e.Source),
	}
}

// Validate checks a normalized entry.
func (e Entry) Validate() error {
	switch {
	case e.Make == "":
		return fmt.Errorf("%w: make is empty", ErrInvalidEntry)
	case dtc.Classify(e.Code).Kind != dtc.KindManufacturerHex:
		return fmt.Errorf("%w: code %q is not a manufacturer hex code", ErrInvalidEntry, e.Code)
	case e.Title == "":
		return fmt.Errorf("%w: title is empty for %s %s", ErrInvalidEntry, e.Make, e.Code)
	}
	return nil
}

// Definition converts a stored entry. A missing description falls back to
// the title.
func (e Entry) Definition() *dtc.Definition {
	desc := e.Description
	if desc == "" {
		desc = e.Title
	}
	return &dtc.Definition{
		Code:        e.Code,
		Kind:        dtc.DefinitionManufacturer,
		Title:       e.Title,
		Description: desc,
		Source:      e.Source,
		Make:        e.Make,
	}
}

func lookupKey(make_, code string) (string, string, bool) {
	m, c := NormalizeMake(make_), dtc.Normalize(code)
	return m, c, m != "" && c != ""
}
