// Package vehiclenlp finds the vehicle an owner mentions in free text and
// maps make nicknames onto canonical make names.
package vehiclenlp

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Mention is a vehicle named in text. Model and Year are empty when they
// could not be found next to the make.
type Mention struct {
	Make  string `json:"make"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
	Span  string `json:"span"`
}

var aliases = map[string]string{
	"chevy":         "Chevrolet",
	"chevrolet":     "Chevrolet",
	"merc":          "Mercedes-Benz",
	"benz":          "Mercedes-Benz",
	"mercedes":      "Mercedes-Benz",
	"mercedes-benz": "Mercedes-Benz",
	"vw":            "Volkswagen",
	"volkswagen":    "Volkswagen",
	"bimmer":        "BMW",
	"bmw":           "BMW",
	"mini":          "Mini",
	"toyota":        "Toyota",
	"honda":         "Honda",
	"ford":          "Ford",
	"audi":          "Audi",
	"nissan":        "Nissan",
	"hyundai":       "Hyundai",
	"kia":           "Kia",
	"subaru":        "Subaru",
	"mazda":         "Mazda",
	"jeep":          "Jeep",
	"ram":           "Ram",
	"gmc":           "GMC",
	"dodge":         "Dodge",
	"lexus":         "Lexus",
	"acura":         "Acura",
	"tesla":         "Tesla",
	"porsche":       "Porsche",
	"volvo":         "Volvo",
	"cadillac":      "Cadillac",
	"genesis":       "Genesis",
	"land rover":    "Land Rover",
}

var models = map[string][]string{
	"BMW":           {"1 Series", "2 Series", "3 Series", "4 Series", "5 Series", "7 Series", "X1", "X3", "X5", "X6", "M3", "M5", "328i", "335i", "530i", "i4"},
	"Mini":          {"Cooper", "Countryman", "Clubman"},
	"Toyota":        {"Camry", "Corolla", "RAV4", "Highlander", "Tacoma", "Tundra", "Prius", "4Runner"},
	"Honda":         {"Civic", "Accord", "CR-V", "Pilot", "Odyssey", "Fit"},
	"Ford":          {"F-150", "F-250", "Mustang", "Explorer", "Escape", "Ranger", "Bronco", "Focus", "Fusion"},
	"Chevrolet":     {"Silverado", "Equinox", "Malibu", "Tahoe", "Camaro", "Cruze"},
	"Mercedes-Benz": {"C-Class", "E-Class", "S-Class", "GLC", "GLE"},
	"Audi":          {"A3", "A4", "A6", "Q5", "Q7"},
	"Nissan":        {"Altima", "Sentra", "Rogue", "Frontier"},
	"Hyundai":       {"Elantra", "Sonata", "Tucson", "Santa Fe"},
	"Kia":           {"Forte", "Sportage", "Sorento", "Telluride"},
	"Volkswagen":    {"Golf", "Jetta", "Tiguan", "Passat", "GTI"},
	"Subaru":        {"Outback", "Forester", "Crosstrek", "Impreza", "WRX"},
	"Mazda":         {"Mazda3", "Mazda6", "CX-5", "CX-9", "MX-5"},
	"Jeep":          {"Wrangler", "Grand Cherokee", "Cherokee", "Compass"},
	"Ram":           {"1500", "2500"},
	"GMC":           {"Sierra", "Yukon", "Canyon"},
	"Dodge":         {"Charger", "Challenger", "Durango"},
	"Lexus":         {"RX", "ES", "NX", "IS"},
	"Acura":         {"TLX", "MDX", "RDX"},
	"Tesla":         {"Model 3", "Model Y", "Model S", "Model X"},
	"Porsche":       {"911", "Cayenne", "Macan"},
	"Volvo":         {"XC90", "XC60", "XC40", "S60"},
	"Cadillac":      {"Escalade", "CT5"},
	"Genesis":       {"G70", "G80", "GV70"},
	"Land Rover":    {"Range Rover", "Defender", "Discovery"},
}

// Model years outside this window are not treated as years.
const (
	minYear = 1980
	maxYear = 2030
)

var (
	makeRe     *regexp.Regexp
	yearFullRe = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	yearAbbrRe = regexp.MustCompile(`'(\d{2})\b`)
	// models per make, longest first so "Grand Cherokee" beats "Cherokee"
	modelsByMake = map[string][]string{}
)

func init() {
	names := make([]string, 0, len(aliases))
	for a := range aliases {
		names = append(names, a)
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})
	for i, n := range names {
		names[i] = regexp.QuoteMeta(n)
	}
	makeRe = regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)(?:'s)?\b`)

	for mk, ms := range models {
		sorted := slices.Clone(ms)
		slices.SortFunc(sorted, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
		modelsByMake[mk] = sorted
	}
}

// CanonicalMake maps a make or nickname ("chevy", "VW") to its canonical
// name.
func CanonicalMake(s string) (string, bool) {
	c, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// Find returns the first vehicle mentioned in text.
func Find(text string) (Mention, bool) {
	all := FindAll(text)
	if len(all) == 0 {
		return Mention{}, false
	}
	return all[0], true
}

// FindAll returns every make mention in text in order, with the model and
// year found next to it. Repeated mentions of the same vehicle are dropped.
func FindAll(text string) []Mention {
	var out []Mention
	seen := map[Mention]bool{}
	for _, loc := range makeRe.FindAllStringSubmatchIndex(text, -1) {
		canonical := aliases[strings.ToLower(text[loc[2]:loc[3]])]

		after := text[loc[1]:min(loc[1]+40, len(text))]
		model, modelEnd := findModel(canonical, after)

		before := text[max(0, loc[0]-12):loc[0]]
		year := fullYear(before)
		if year == 0 {
			year = fullYear(after[modelEnd:min(modelEnd+20, len(after))])
		}
		if year == 0 {
			year = abbrYear(before)
		}

		start, end := loc[0], loc[1]
		if model != "" {
			end = loc[1] + modelEnd
		}
		if year > 0 {
			if i := strings.LastIndex(before, strconv.Itoa(year)); i >= 0 {
				start = loc[0] - len(before) + i
			}
		}

		key := Mention{Make: canonical, Model: model, Year: year}
		if seen[key] {
			continue
		}
		seen[key] = true
		key.Span = strings.TrimSpace(text[start:end])
		out = append(out, key)
	}
	return out
}

// findModel matches a known model of make_ at the start of after and returns
// it with the offset just past it.
func findModel(make_, after string) (string, int) {
	trimmed := strings.TrimLeftFunc(after, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\'' || r == '’'
	})
	offset := len(after) - len(trimmed)
	lower := strings.ToLower(trimmed)
	for _, m := range modelsByMake[make_] {
		ml := strings.ToLower(m)
		if !strings.HasPrefix(lower, ml) {
			continue
		}
		if len(lower) > len(ml) {
			next := rune(lower[len(ml)])
			if unicode.IsLetter(next) || unicode.IsDigit(next) {
				continue
			}
		}
		return m, offset + len(ml)
	}
	return "", 0
}

func fullYear(s string) int {
	m := yearFullRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	if y < minYear || y > maxYear {
		return 0
	}
	return y
}

func abbrYear(s string) int {
	m := yearAbbrRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	yy, _ := strconv.Atoi(m[1])
	switch {
	case yy <= maxYear-2000:
		return 2000 + yy
	case yy >= minYear-1900:
		return 1900 + yy
	}
	return 0
}
