package translation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Points awarded per passing heuristic. A report scores 100 when every check passes.
const (
	lengthRatioPoints = 20
	scriptPoints      = 50
	identityPoints    = 30

	minLengthRatio = 0.5
	maxLengthRatio = 2.0
)

// QualityReport flags suspect translations for human review. It never blocks a result.
type QualityReport struct {
	Score  int      `json:"score"`
	Issues []string `json:"issues"`
}

// Assess scores translated against original using length ratio, target script
// presence and identity checks.
func Assess(original, translated, targetLang string) QualityReport {
	report := QualityReport{Issues: []string{}}

	originalLen := utf8.RuneCountInString(strings.TrimSpace(original))
	translatedLen := utf8.RuneCountInString(strings.TrimSpace(translated))
	switch {
	case originalLen == 0 && translatedLen == 0:
		report.Score += lengthRatioPoints
	case originalLen == 0:
		report.Issues = append(report.Issues, "original text is empty")
	default:
		ratio := float64(translatedLen) / float64(originalLen)
		if ratio >= minLengthRatio && ratio <= maxLengthRatio {
			report.Score += lengthRatioPoints
		} else {
			report.Issues = append(report.Issues, fmt.Sprintf("length ratio %.2f outside [%.1f, %.1f]", ratio, minLengthRatio, maxLengthRatio))
		}
	}

	target := normalizeLangCode(targetLang)
	if scripts, ok := languageScripts(target); ok {
		if containsScript(translated, scripts) {
			report.Score += scriptPoints
		} else {
			report.Issues = append(report.Issues, fmt.Sprintf("no %s script characters in translation", translationLanguageLabels[target].scriptName))
		}
	} else {
		report.Score += scriptPoints
	}

	if strings.TrimSpace(translated) == strings.TrimSpace(original) {
		report.Issues = append(report.Issues, "translation is identical to the original")
	} else {
		report.Score += identityPoints
	}

	return report
}

func containsScript(text string, scripts []*unicode.RangeTable) bool {
	for _, r := range text {
		if unicode.In(r, scripts...) {
			return true
		}
	}
	return false
}
