// Package domain defines the vehicle and language types shared by the
// diagnosis flow, and validates them at the API boundary.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Vehicle describes the car a diagnosis is for. Engine is optional.
type Vehicle struct {
	Year   Year   `json:"year"`
	Make   string `json:"make"`
	Model  string `json:"model"`
	Engine string `json:"engine,omitempty"`
}

// Trimmed returns v with surrounding whitespace removed from every field.
func (v Vehicle) Trimmed() Vehicle {
	return Vehicle{
		Year:   Year(strings.TrimSpace(string(v.Year))),
		Make:   strings.TrimSpace(v.Make),
		Model:  strings.TrimSpace(v.Model),
		Engine: strings.TrimSpace(v.Engine),
	}
}

// String renders the vehicle line used in prompts, e.g. "2016 BMW 328i (2.0L)".
func (v Vehicle) String() string {
	s := fmt.Sprintf("%s %s %s", v.Year, v.Make, v.Model)
	if v.Engine != "" {
		s += " (" + v.Engine + ")"
	}
	return s
}

// Year is a model year. Clients send it either as a JSON number or as a
// string, so it keeps the raw text and parses on demand.
type Year string

// UnmarshalJSON accepts 2016, "2016" and null.
func (y *Year) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*y = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*y = Year(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("domain: year must be a number or string: %w", err)
	}
	*y = Year(n.String())
	return nil
}

// MarshalJSON writes a number when the year parses and a string otherwise.
func (y Year) MarshalJSON() ([]byte, error) {
	if n, ok := y.Int(); ok {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(y))
}

// Int parses the year.
func (y Year) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(y)))
	return n, err == nil
}
