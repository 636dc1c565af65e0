package translation

import (
	"fmt"
	"strings"
)

// systemInstruction is sent to AI-based providers. It asks for terminology and
// formatting to survive translation and for the bare translation only.
func systemInstruction(sourceLang, targetLang string) string {
	target := targetLanguageLabel(targetLang)
	source := "the source language"
	if code := normalizeSourceLang(sourceLang); code != SourceAuto {
		source = LanguageName(code)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional translator for a marine and aquatic research organization. ")
	fmt.Fprintf(&b, "Translate the user's text from %s to %s (%s).\n", source, target.english, target.native)
	b.WriteString("Rules:\n")
	b.WriteString("- Preserve scientific and domain terminology accurately.\n")
	fmt.Fprintf(&b, "- Keep numbers, units, species names and technical terms in English when %s has no accepted equivalent.\n", target.english)
	b.WriteString("- Maintain a formal academic tone.\n")
	b.WriteString("- Keep paragraph breaks, line breaks, lists and markup exactly as in the input.\n")
	b.WriteString("- Output only the translated text, without notes or explanations.")
	return b.String()
}

func targetLanguageLabel(lang string) languageLabel {
	normalized := normalizeLangCode(lang)
	if labels, ok := translationLanguageLabels[normalized]; ok {
		return labels
	}
	fallback := strings.TrimSpace(lang)
	if fallback == "" {
		fallback = "English"
	}
	return languageLabel{english: fallback, native: fallback}
}
