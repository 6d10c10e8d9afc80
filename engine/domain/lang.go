package domain

import "golang.org/x/text/language"

// Language is an output language the model is asked to answer in.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// English is the fallback for absent or unsupported languages.
var English = Language{Code: "en", Name: "English"}

var (
	supported = []Language{
		English,
		{Code: "es", Name: "Spanish"},
		{Code: "fr", Name: "French"},
		{Code: "de", Name: "German"},
		{Code: "pt", Name: "Portuguese"},
	}
	matcher = language.NewMatcher([]language.Tag{
		language.English,
		language.Spanish,
		language.French,
		language.German,
		language.Portuguese,
	})
)

// SupportedLanguages lists the output languages in preference order.
func SupportedLanguages() []Language {
	return append([]Language(nil), supported...)
}

// ResolveLanguage maps a client-supplied tag or Accept-Language value onto a
// supported language. Anything short of a high-confidence match falls back
// to English.
func ResolveLanguage(raw string) Language {
	if raw == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, conf := matcher.Match(tags...)
	// Low confidence maps unrelated languages (Basque to Spanish, Occitan
	// to French) and is treated as unsupported.
	if conf < language.High || idx < 0 || idx >= len(supported) {
		return English
	}
	return supported[idx]
}
