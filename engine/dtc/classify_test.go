package dtc

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		raw      string
		wantNorm string
		wantKind Kind
	}{
		{"p0300", "P0300", KindGeneric},
		{" P0171 ", "P0171", KindGeneric},
		{"p-0 1 7 1", "P0171", KindGeneric},
		{"U0100", "U0100", KindGeneric},
		{"C0035", "C0035", KindGeneric},
		{"B1A2F", "B1A2F", KindGeneric},
		{"480a12", "480A12", KindManufacturerHex},
		{"2A82", "2A82", KindManufacturerHex},
		{"29-E0", "29E0", KindManufacturerHex},
		{"ABCDEF", "ABCDEF", KindManufacturerHex},
		{"XYZZY", "XYZZY", KindUnrecognized},
		{"", "", KindUnrecognized},
		{"   ", "", KindUnrecognized},
		{"P03000", "P03000", KindUnrecognized},
		{"P030", "P030", KindUnrecognized},
		{"123", "123", KindUnrecognized},
		{"1234567", "1234567", KindUnrecognized},
		{"P0G00", "P0G00", KindUnrecognized},
		{"E0300", "E0300", KindManufacturerHex},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Classify(tt.raw)
			if got.Normalized != tt.wantNorm {
				t.Errorf("Normalized = %q, want %q", got.Normalized, tt.wantNorm)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", got.Raw, tt.raw)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	inputs := []string{"p0300", "480a12", "XYZZY", "", "c0035", "--", "ß0300"}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 5; i++ {
			if got := Classify(in); got != first {
				t.Fatalf("Classify(%q) changed between calls: %+v vs %+v", in, first, got)
			}
		}
	}
}

func TestClassifyGenericPrefixes(t *testing.T) {
	for _, p := range []string{"P", "B", "C", "U"} {
		for _, digits := range []string{"0000", "FFFF", "1A2B", "3C4D"} {
			if k := Classify(p + digits).Kind; k != KindGeneric {
				t.Errorf("%s%s: kind %q, want generic", p, digits, k)
			}
		}
	}
}

func TestSystemAndStandard(t *testing.T) {
	tests := []struct {
		code     string
		system   string
		standard string
	}{
		{"P0300", "Powertrain", StandardOBD2},
		{"B1000", "Body", StandardManufacturer},
		{"C0035", "Chassis", StandardOBD2},
		{"U2100", "Network", StandardManufacturer},
	}
	for _, tt := range tests {
		if got := SystemOf(tt.code); got != tt.system {
			t.Errorf("SystemOf(%s) = %q, want %q", tt.code, got, tt.system)
		}
		if got := StandardOf(tt.code); got != tt.standard {
			t.Errorf("StandardOf(%s) = %q, want %q", tt.code, got, tt.standard)
		}
	}
}
