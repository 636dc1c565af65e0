package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minLetters is the shortest sample worth classifying.
const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// scriptLanguages resolves samples written mostly in a script used by a single
// portal language. Lingua has no Sinhala model.
var scriptLanguages = []struct {
	table *unicode.RangeTable
	code  string
}{
	{unicode.Sinhala, "si"},
	{unicode.Tamil, "ta"},
}

// DetectISO6391 returns the ISO 639-1 code of text, or "" when unsure.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	scriptCounts := make([]int, len(scriptLanguages))
	for _, r := range sample {
		if !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			continue
		}
		letterCount++
		for i, entry := range scriptLanguages {
			if unicode.Is(entry.table, r) {
				scriptCounts[i]++
			}
		}
	}
	if letterCount < minLetters {
		return ""
	}
	for i, entry := range scriptLanguages {
		if scriptCounts[i]*2 > letterCount {
			return entry.code
		}
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
