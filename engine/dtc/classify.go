// Package dtc classifies diagnostic trouble codes and resolves generic codes
// against the embedded SAE reference datasets.
package dtc

import (
	"regexp"
	"strings"
)

// Kind is the classification of a user-supplied code.
type Kind string

const (
	KindGeneric         Kind = "generic"
	KindManufacturerHex Kind = "manufacturer_hex"
	KindUnrecognized    Kind = "unrecognized"
)

var (
	genericRe = regexp.MustCompile(`^[PBCU][0-9A-F]{4}$`)
	hexRe     = regexp.MustCompile(`^[0-9A-F]{4,6}$`)
)

// Code is a classified trouble code. It is immutable once returned.
type Code struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	Kind       Kind   `json:"kind"`
}

// Normalize trims, uppercases and strips spaces and hyphens.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// Classify normalizes raw and assigns it a Kind. The generic pattern is
// checked first: C0035 is also valid hex and must classify as generic.
func Classify(raw string) Code {
	n := Normalize(raw)
	c := Code{Raw: raw, Normalized: n, Kind: KindUnrecognized}
	switch {
	case n == "":
	case genericRe.MatchString(n):
		c.Kind = KindGeneric
	case hexRe.MatchString(n):
		c.Kind = KindManufacturerHex
	}
	return c
}

// IsGenericShape reports whether s is already a normalized generic code.
func IsGenericShape(s string) bool { return genericRe.MatchString(s) }
