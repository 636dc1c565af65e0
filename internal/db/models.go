package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Content collections stored in portal.content_records.
const (
	CollectionNews     = "news"
	CollectionResearch = "research"
	CollectionBook     = "book"
)

// Localized fields on a content record.
const (
	FieldTitle   = "title"
	FieldSummary = "summary"
	FieldBody    = "body"
)

// LocalizedText is a language-keyed text field stored as jsonb: {"en": "...", "si": "..."}.
type LocalizedText map[string]string

func (l LocalizedText) Value() (driver.Value, error) {
	if l == nil {
		return []byte("{}"), nil
	}
	encoded, err := json.Marshal(map[string]string(l))
	if err != nil {
		return nil, fmt.Errorf("encode localized text: %w", err)
	}
	return encoded, nil
}

func (l *LocalizedText) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = LocalizedText{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan localized text: unsupported type %T", src)
	}
	decoded := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("decode localized text: %w", err)
		}
	}
	*l = LocalizedText(decoded)
	return nil
}

// Get returns the trimmed text for lang.
func (l LocalizedText) Get(lang string) (string, bool) {
	value, ok := l[strings.ToLower(strings.TrimSpace(lang))]
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// Languages lists the codes with non-empty text.
func (l LocalizedText) Languages() []string {
	out := make([]string, 0, len(l))
	for code, value := range l {
		if strings.TrimSpace(value) != "" {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// ContentRecord maps portal.content_records.
type ContentRecord struct {
	RecordID   int64         `gorm:"column:record_id;primaryKey;autoIncrement"`
	RecordUUID string        `gorm:"column:record_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Collection string        `gorm:"column:collection;type:text;not null"`
	SourceLang string        `gorm:"column:source_lang;type:text;not null;default:en"`
	Title      LocalizedText `gorm:"column:title;type:jsonb;not null;default:'{}'"`
	Summary    LocalizedText `gorm:"column:summary;type:jsonb;not null;default:'{}'"`
	Body       LocalizedText `gorm:"column:body;type:jsonb;not null;default:'{}'"`
	DeletedAt  *time.Time    `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt  time.Time     `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt  time.Time     `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ContentRecord) TableName() string { return "portal.content_records" }

// Field returns the localized field by name.
func (r ContentRecord) Field(name string) LocalizedText {
	switch name {
	case FieldTitle:
		return r.Title
	case FieldSummary:
		return r.Summary
	case FieldBody:
		return r.Body
	default:
		return nil
	}
}

// FieldTranslation maps portal.field_translations: provenance of one stored translation.
type FieldTranslation struct {
	FieldTranslationID   int64           `gorm:"column:field_translation_id;primaryKey;autoIncrement"`
	FieldTranslationUUID string          `gorm:"column:field_translation_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RecordID             int64           `gorm:"column:record_id;type:bigint;not null;uniqueIndex:field_translations_record_field_lang_uniq,priority:1"`
	Field                string          `gorm:"column:field;type:text;not null;uniqueIndex:field_translations_record_field_lang_uniq,priority:2"`
	TargetLang           string          `gorm:"column:target_lang;type:text;not null;uniqueIndex:field_translations_record_field_lang_uniq,priority:3"`
	SourceLang           string          `gorm:"column:source_lang;type:text;not null"`
	ProviderName         string          `gorm:"column:provider_name;type:text;not null"`
	Segments             int             `gorm:"column:segments;type:integer;not null;default:1"`
	QualityScore         *int            `gorm:"column:quality_score;type:integer"`
	QualityIssues        json.RawMessage `gorm:"column:quality_issues;type:jsonb"`
	LatencyMS            *int            `gorm:"column:latency_ms;type:integer"`
	CreatedAt            time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (FieldTranslation) TableName() string { return "portal.field_translations" }

func autoMigrateModels() []any {
	return []any{
		&ContentRecord{},
		&FieldTranslation{},
	}
}
