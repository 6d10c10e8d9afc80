package resolve

import "github.com/WessleyAI/wessley-dtc/engine/dtc"

// Outcome is the result of resolving one code. The set of variants is closed:
// Found, GenericNotFound, NeedsMake, ManufacturerAbsent and Unrecognized.
type Outcome interface {
	// Classified returns the code as classified.
	Classified() dtc.Code
	outcome()
}

// Found carries a verified definition.
type Found struct {
	Code       dtc.Code
	Definition dtc.Definition
}

// GenericNotFound is a generic-shaped code absent from the reference data.
type GenericNotFound struct {
	Code dtc.Code
}

// NeedsMake is a manufacturer code supplied without a make. No lookup was
// attempted.
type NeedsMake struct {
	Code dtc.Code
}

// ManufacturerAbsent is a manufacturer code not in the store for Make.
type ManufacturerAbsent struct {
	Code dtc.Code
	Make string
}

// Unrecognized is input matching neither code shape.
type Unrecognized struct {
	Code dtc.Code
}

func (o Found) Classified() dtc.Code              { return o.Code }
func (o GenericNotFound) Classified() dtc.Code    { return o.Code }
func (o NeedsMake) Classified() dtc.Code          { return o.Code }
func (o ManufacturerAbsent) Classified() dtc.Code { return o.Code }
func (o Unrecognized) Classified() dtc.Code       { return o.Code }

func (Found) outcome()              {}
func (GenericNotFound) outcome()    {}
func (NeedsMake) outcome()          {}
func (ManufacturerAbsent) outcome() {}
func (Unrecognized) outcome()       {}

// Lookup statuses used in View and metrics.
const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
)

// View is the JSON form of an Outcome.
type View struct {
	Status     string          `json:"status"`
	Kind       dtc.Kind        `json:"kind"`
	Code       string          `json:"code"`
	Make       string          `json:"make,omitempty"`
	NeedsMake  *bool           `json:"needs_make,omitempty"`
	Definition *dtc.Definition `json:"definition,omitempty"`
}

// Describe renders o. needs_make is only present for manufacturer codes.
func Describe(o Outcome) View {
	c := o.Classified()
	v := View{Status: StatusNotFound, Kind: c.Kind, Code: c.Normalized}
	switch o := o.(type) {
	case Found:
		d := o.Definition
		v.Status = StatusFound
		v.Make = d.Make
		v.Definition = &d
	case NeedsMake:
		v.NeedsMake = boolPtr(true)
	case ManufacturerAbsent:
		v.Make = o.Make
		v.NeedsMake = boolPtr(false)
	}
	return v
}

func boolPtr(b bool) *bool { return &b }
