package transcription

import "sort"

// Language pairs a BCP-47 speech recognition code with its Dutch
// display name.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultLanguageCode is used when no language is requested and
// auto-detection cannot decide.
const DefaultLanguageCode = "nl-NL"

// supportedLanguages maps recognition codes to Dutch display names.
var supportedLanguages = map[string]string{
	"nl-NL": "Nederlands",
	"en-US": "Engels (VS)",
	"en-GB": "Engels (VK)",
	"de-DE": "Duits",
	"fr-FR": "Frans",
	"es-ES": "Spaans",
	"it-IT": "Italiaans",
	"pt-PT": "Portugees (Portugal)",
	"pt-BR": "Portugees (Brazilië)",
	"ru-RU": "Russisch",
	"ja-JP": "Japans",
	"zh-CN": "Chinees (Vereenvoudigd)",
	"ko-KR": "Koreaans",
}

// popularLanguageCodes are listed first in grouped views.
var popularLanguageCodes = []string{"nl-NL", "en-US", "de-DE", "fr-FR"}

// IsSupported reports whether the given language code can be requested.
func IsSupported(code string) bool {
	_, ok := supportedLanguages[code]
	return ok
}

// DisplayName returns the Dutch display name for a language code, or
// the code itself when unknown.
func DisplayName(code string) string {
	if name, ok := supportedLanguages[code]; ok {
		return name
	}
	return code
}

// Supported returns all supported languages sorted by code.
func Supported() []Language {
	languages := make([]Language, 0, len(supportedLanguages))
	for code, name := range supportedLanguages {
		languages = append(languages, Language{Code: code, Name: name})
	}

	sort.Slice(languages, func(i, j int) bool {
		return languages[i].Code < languages[j].Code
	})

	return languages
}

// Popular returns the frequently used languages in fixed order.
func Popular() []Language {
	languages := make([]Language, 0, len(popularLanguageCodes))
	for _, code := range popularLanguageCodes {
		languages = append(languages, Language{Code: code, Name: supportedLanguages[code]})
	}
	return languages
}

// Grouped returns the supported languages split into a popular group
// and the remainder sorted by Dutch display name.
func Grouped() map[string][]Language {
	popular := Popular()

	isPopular := make(map[string]bool, len(popularLanguageCodes))
	for _, code := range popularLanguageCodes {
		isPopular[code] = true
	}

	other := make([]Language, 0, len(supportedLanguages)-len(popular))
	for code, name := range supportedLanguages {
		if !isPopular[code] {
			other = append(other, Language{Code: code, Name: name})
		}
	}

	sort.Slice(other, func(i, j int) bool {
		return other[i].Name < other[j].Name
	})

	return map[string][]Language{
		"populair": popular,
		"overig":   other,
	}
}
