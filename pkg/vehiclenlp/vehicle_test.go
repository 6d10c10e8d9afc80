package vehiclenlp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFind(t *testing.T) {
	tests := []struct {
		input string
		want  Mention
	}{
		{"My 2019 Honda Civic is making a clicking noise", Mention{"Honda", "Civic", 2019, "2019 Honda Civic"}},
		{"Having trouble with my '18 Chevy Silverado", Mention{"Chevrolet", "Silverado", 2018, "Chevy Silverado"}},
		{"BMW 3 Series N54 turbo problems", Mention{"BMW", "3 Series", 0, "BMW 3 Series"}},
		{"2016 bmw 328i throwing 2A82", Mention{"BMW", "328i", 2016, "2016 bmw 328i"}},
		{"Just bought a Tesla Model 3", Mention{"Tesla", "Model 3", 0, "Tesla Model 3"}},
		{"Jeep Grand Cherokee 2020 death wobble", Mention{"Jeep", "Grand Cherokee", 2020, "Jeep Grand Cherokee"}},
		{"Help with VW Golf R tune", Mention{"Volkswagen", "Golf", 0, "VW Golf"}},
		{"Lexus RX 350 2021 infotainment problems", Mention{"Lexus", "RX", 2021, "Lexus RX"}},
		{"Mercedes C-Class 2020 oil leak", Mention{"Mercedes-Benz", "C-Class", 2020, "Mercedes C-Class"}},
		{"GMC Sierra 1500 2022 6.2L issues", Mention{"GMC", "Sierra", 2022, "GMC Sierra"}},
		{"my 2020 HONDA civic overheating", Mention{"Honda", "Civic", 2020, "2020 HONDA civic"}},
		{"the bimmer's idle is rough", Mention{"BMW", "", 0, "bimmer's"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Find(tt.input)
			if !ok {
				t.Fatalf("Find(%q) found nothing", tt.input)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Find mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindNothing(t *testing.T) {
	for _, s := range []string{"", "nothing about cars here", "code P0300 on my car", "a ramp and a kiasu"} {
		if m, ok := Find(s); ok {
			t.Errorf("Find(%q) = %+v, want nothing", s, m)
		}
	}
}

func TestFindAll(t *testing.T) {
	got := FindAll("I traded my 2019 Honda Civic for a 2023 Toyota RAV4, the Honda Civic 2019 was tired")
	if len(got) != 2 {
		t.Fatalf("expected 2 mentions, got %+v", got)
	}
	if got[0].Make != "Honda" || got[1].Make != "Toyota" || got[1].Year != 2023 {
		t.Fatalf("unexpected mentions %+v", got)
	}
}

func TestAbbreviatedYear(t *testing.T) {
	m, ok := Find("'19 Ford Mustang GT exhaust")
	if !ok || m.Year != 2019 || m.Model != "Mustang" {
		t.Fatalf("got %+v", m)
	}
	m, _ = Find("my '97 Jeep Cherokee")
	if m.Year != 1997 {
		t.Fatalf("Year = %d, want 1997", m.Year)
	}
}

func TestCanonicalMake(t *testing.T) {
	tests := map[string]string{"chevy": "Chevrolet", " VW ": "Volkswagen", "Bimmer": "BMW", "bmw": "BMW"}
	for in, want := range tests {
		if got, ok := CanonicalMake(in); !ok || got != want {
			t.Errorf("CanonicalMake(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := CanonicalMake("Yugo"); ok {
		t.Error("unknown make should not resolve")
	}
}
