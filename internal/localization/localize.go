package localization

import (
	"context"
	"time"

	"nara.lk/portal/internal/db"
)

// LocalizedField is one field rendered in the requested language.
type LocalizedField struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
	// NeedsTranslation is set when Text falls back to the source language.
	NeedsTranslation bool `json:"needs_translation"`
}

// LocalizedRecord is a content record rendered for one reader language.
type LocalizedRecord struct {
	RecordUUID       string                    `json:"record_uuid"`
	Collection       string                    `json:"collection"`
	SourceLang       string                    `json:"source_lang"`
	Lang             string                    `json:"lang"`
	Fields           map[string]LocalizedField `json:"fields"`
	NeedsTranslation bool                      `json:"needs_translation"`
	Available        []string                  `json:"available_langs"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// Localize renders record in lang. Fields without a stored translation fall back to
// the source text.
func Localize(record db.ContentRecord, lang string) LocalizedRecord {
	lang = normalizeLang(lang)
	sourceLang := normalizeLang(record.SourceLang)
	if lang == "" {
		lang = sourceLang
	}

	out := LocalizedRecord{
		RecordUUID: record.RecordUUID,
		Collection: record.Collection,
		SourceLang: sourceLang,
		Lang:       lang,
		Fields:     make(map[string]LocalizedField, 3),
		Available:  record.Title.Languages(),
		UpdatedAt:  record.UpdatedAt,
	}

	for _, name := range []string{db.FieldTitle, db.FieldSummary, db.FieldBody} {
		values := record.Field(name)
		if text, ok := values.Get(lang); ok {
			out.Fields[name] = LocalizedField{Text: text, Lang: lang}
			continue
		}
		text, ok := values.Get(sourceLang)
		if !ok {
			continue
		}
		out.Fields[name] = LocalizedField{Text: text, Lang: sourceLang, NeedsTranslation: true}
		out.NeedsTranslation = true
	}

	return out
}

// LocalizeByUUID loads a record and renders it in lang.
func (m *Manager) LocalizeByUUID(ctx context.Context, recordUUID, lang string) (LocalizedRecord, error) {
	if err := m.requireStore(); err != nil {
		return LocalizedRecord{}, err
	}
	record, err := m.fetchRecord(ctx, recordUUID)
	if err != nil {
		return LocalizedRecord{}, err
	}
	return Localize(record, lang), nil
}
