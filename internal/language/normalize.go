package language

import "strings"

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAlphaLower(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 {
		return ""
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the primary language subtag (for example, "en" from "en-US").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// codeAliases maps English names, endonyms and ISO 639-2 codes accepted from editors
// and CLI flags to ISO 639-1 codes.
var codeAliases = map[string]string{
	"english":    "en",
	"eng":        "en",
	"sinhala":    "si",
	"sinhalese":  "si",
	"sin":        "si",
	"tamil":      "ta",
	"tam":        "ta",
	"spanish":    "es",
	"spa":        "es",
	"french":     "fr",
	"fra":        "fr",
	"fre":        "fr",
	"german":     "de",
	"deu":        "de",
	"ger":        "de",
	"chinese":    "zh",
	"zho":        "zh",
	"chi":        "zh",
	"japanese":   "ja",
	"jpn":        "ja",
	"korean":     "ko",
	"kor":        "ko",
	"arabic":     "ar",
	"ara":        "ar",
	"hindi":      "hi",
	"hin":        "hi",
	"portuguese": "pt",
	"por":        "pt",
	"russian":    "ru",
	"rus":        "ru",
	"italian":    "it",
	"ita":        "it",
}

// ResolveCode is NormalizeCode plus alias resolution ("Sinhala", "tam", "zh-Hans").
func ResolveCode(raw string) string {
	code := NormalizeCode(raw)
	if alias, ok := codeAliases[code]; ok {
		return alias
	}
	return code
}
