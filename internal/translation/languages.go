package translation

import (
	"sort"
	"strings"
	"unicode"

	"nara.lk/portal/internal/language"
)

// SourceAuto asks the provider (or the configured detector) to identify the source language.
const SourceAuto = "auto"

type LanguageOption struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
	Script string `json:"script,omitempty"`
}

type languageLabel struct {
	english string
	native  string
	// scripts is empty for Latin-script languages; the quality auditor skips the
	// script-presence check for those.
	scripts    []*unicode.RangeTable
	scriptName string
}

var translationLanguageLabels = map[string]languageLabel{
	"ar": {english: "Arabic", native: "العربية", scripts: []*unicode.RangeTable{unicode.Arabic}, scriptName: "Arabic"},
	"de": {english: "German", native: "Deutsch"},
	"en": {english: "English", native: "English"},
	"es": {english: "Spanish", native: "Español"},
	"fr": {english: "French", native: "Français"},
	"hi": {english: "Hindi", native: "हिन्दी", scripts: []*unicode.RangeTable{unicode.Devanagari}, scriptName: "Devanagari"},
	"it": {english: "Italian", native: "Italiano"},
	"ja": {english: "Japanese", native: "日本語", scripts: []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana, unicode.Han}, scriptName: "Kana/Han"},
	"ko": {english: "Korean", native: "한국어", scripts: []*unicode.RangeTable{unicode.Hangul}, scriptName: "Hangul"},
	"pt": {english: "Portuguese", native: "Português"},
	"ru": {english: "Russian", native: "Русский", scripts: []*unicode.RangeTable{unicode.Cyrillic}, scriptName: "Cyrillic"},
	"si": {english: "Sinhala", native: "සිංහල", scripts: []*unicode.RangeTable{unicode.Sinhala}, scriptName: "Sinhala"},
	"ta": {english: "Tamil", native: "தமிழ்", scripts: []*unicode.RangeTable{unicode.Tamil}, scriptName: "Tamil"},
	"zh": {english: "Chinese", native: "中文", scripts: []*unicode.RangeTable{unicode.Han}, scriptName: "Han"},
}

func SupportedTranslationLanguageCodes() []string {
	codes := make([]string, 0, len(translationLanguageLabels))
	for code := range translationLanguageLabels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsSupportedLanguage reports whether code (after normalization) is a supported target.
func IsSupportedLanguage(code string) bool {
	_, ok := translationLanguageLabels[normalizeLangCode(code)]
	return ok
}

// LanguageName returns the English label for code, or the code itself when unknown.
func LanguageName(code string) string {
	normalized := normalizeLangCode(code)
	if labels, ok := translationLanguageLabels[normalized]; ok {
		return labels.english
	}
	return strings.TrimSpace(code)
}

func TranslationLanguageOptions() []LanguageOption {
	codes := SupportedTranslationLanguageCodes()
	options := make([]LanguageOption, 0, len(codes))
	for _, code := range codes {
		labels := translationLanguageLabels[code]
		options = append(options, LanguageOption{
			Code:   code,
			Label:  labels.english,
			Native: labels.native,
			Script: labels.scriptName,
		})
	}
	return options
}

// languageScripts returns the distinct Unicode scripts for code, if it has any.
func languageScripts(code string) ([]*unicode.RangeTable, bool) {
	labels, ok := translationLanguageLabels[normalizeLangCode(code)]
	if !ok || len(labels.scripts) == 0 {
		return nil, false
	}
	return labels.scripts, true
}

func normalizeLangCode(raw string) string {
	return language.ResolveCode(raw)
}

func normalizeSourceLang(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == SourceAuto || trimmed == "und" {
		return SourceAuto
	}
	code := normalizeLangCode(trimmed)
	if code == "" {
		return SourceAuto
	}
	return code
}
