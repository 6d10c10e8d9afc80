package dtc

// DefinitionKind says which reference a Definition came from.
type DefinitionKind string

const (
	DefinitionGeneric      DefinitionKind = "generic"
	DefinitionManufacturer DefinitionKind = "manufacturer"
)

// Definition is a verified code meaning, from either the generic reference
// or the manufacturer store.
type Definition struct {
	Code        string         `json:"code"`
	Kind        DefinitionKind `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Source      string         `json:"source,omitempty"`
	Make        string         `json:"make,omitempty"`
	System      string         `json:"system,omitempty"`
	Standard    string         `json:"standard,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}

// Standards derived from the second character of a generic code.
const (
	StandardOBD2         = "OBD2"
	StandardManufacturer = "Manufacturer"
)

var systems = map[byte]string{
	'P': "Powertrain",
	'B': "Body",
	'C': "Chassis",
	'U': "Network",
}

// SystemOf returns the system category for a generic code's prefix letter.
func SystemOf(code string) string {
	if code == "" {
		return ""
	}
	return systems[code[0]]
}

// StandardOf returns OBD2 when the second character is '0'.
func StandardOf(code string) string {
	if len(code) < 2 || code[1] == '0' {
		return StandardOBD2
	}
	return StandardManufacturer
}
