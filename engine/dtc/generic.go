package dtc

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed data/canonical.json data/titles.json
var dataFS embed.FS

// Source is one generic reference dataset.
type Source interface {
	Name() string
	Lookup(code string) (Definition, bool)
}

type canonicalEntry struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Source      string `json:"source"`
}

type canonicalSource struct {
	entries map[string]canonicalEntry
}

func (s *canonicalSource) Name() string { return "canonical" }

func (s *canonicalSource) Lookup(code string) (Definition, bool) {
	e, ok := s.entries[code]
	if !ok {
		return Definition{}, false
	}
	return Definition{
		Code:        code,
		Kind:        DefinitionGeneric,
		Title:       e.Title,
		Description: e.Description,
		Source:      e.Source,
		System:      SystemOf(code),
		Standard:    StandardOf(code),
		Notes:       e.Notes,
	}, true
}

type titleSource struct {
	titles map[string]string
}

func (s *titleSource) Name() string { return "titles" }

func (s *titleSource) Lookup(code string) (Definition, bool) {
	title, ok := s.titles[code]
	if !ok || title == "" {
		return Definition{}, false
	}
	return Definition{
		Code:        code,
		Kind:        DefinitionGeneric,
		Title:       title,
		Description: title,
		Source:      "SAE J2012 title index",
		System:      SystemOf(code),
		Standard:    StandardOf(code),
	}, true
}

var (
	sourcesOnce sync.Once
	sources     []Source
	sourcesErr  error
)

// Sources returns the generic datasets in priority order. The embedded JSON
// is parsed once per process.
func Sources() ([]Source, error) {
	sourcesOnce.Do(func() {
		sources, sourcesErr = loadSources()
	})
	return sources, sourcesErr
}

func loadSources() ([]Source, error) {
	raw, err := dataFS.ReadFile("data/canonical.json")
	if err != nil {
		return nil, fmt.Errorf("dtc: read canonical: %w", err)
	}
	var list []canonicalEntry
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("dtc: parse canonical: %w", err)
	}
	canon := &canonicalSource{entries: make(map[string]canonicalEntry, len(list))}
	for _, e := range list {
		canon.entries[Normalize(e.Code)] = e
	}

	raw, err = dataFS.ReadFile("data/titles.json")
	if err != nil {
		return nil, fmt.Errorf("dtc: read titles: %w", err)
	}
	titles := &titleSource{}
	if err := json.Unmarshal(raw, &titles.titles); err != nil {
		return nil, fmt.Errorf("dtc: parse titles: %w", err)
	}
	return []Source{canon, titles}, nil
}

// LookupIn tries each source in order and returns the first hit.
func LookupIn(srcs []Source, normalized string) (Definition, bool) {
	if !IsGenericShape(normalized) {
		return Definition{}, false
	}
	for _, s := range srcs {
		if d, ok := s.Lookup(normalized); ok {
			return d, true
		}
	}
	return Definition{}, false
}

// LookupGeneric resolves an already-normalized generic code against the
// embedded datasets. Anything not shaped like a generic code is a miss.
// It panics if the embedded datasets cannot be decoded.
func LookupGeneric(normalized string) (Definition, bool) {
	return LookupIn(mustSources(Sources()), normalized)
}

// mustSources panics on a load error. The datasets are compiled into the
// binary, so a failure here is a broken build rather than a missing code.
func mustSources(srcs []Source, err error) []Source {
	if err != nil {
		panic(err)
	}
	return srcs
}
