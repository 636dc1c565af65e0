package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const contentRecordColumns = `
	r.record_id,
	r.record_uuid::text,
	r.collection,
	r.source_lang,
	r.title,
	r.summary,
	r.body,
	r.created_at,
	r.updated_at
`

func scanContentRecord(scan func(dest ...any) error) (ContentRecord, error) {
	var row ContentRecord
	err := scan(
		&row.RecordID,
		&row.RecordUUID,
		&row.Collection,
		&row.SourceLang,
		&row.Title,
		&row.Summary,
		&row.Body,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	return row, err
}

// GetContentRecordByUUID returns ErrNoRows when the record is missing or deleted.
func (p *Pool) GetContentRecordByUUID(ctx context.Context, recordUUID string) (ContentRecord, error) {
	q := `
SELECT` + contentRecordColumns + `
FROM portal.content_records r
WHERE r.record_uuid = $1::uuid
  AND r.deleted_at IS NULL
LIMIT 1
`

	row, err := scanContentRecord(p.QueryRow(ctx, q, strings.TrimSpace(recordUUID)).Scan)
	if err != nil {
		if IsNoRows(err) {
			return ContentRecord{}, ErrNoRows
		}
		return ContentRecord{}, fmt.Errorf("query content record: %w", err)
	}
	return row, nil
}

// ListContentRecordsByCollection lists live records; an empty collection lists all.
func (p *Pool) ListContentRecordsByCollection(ctx context.Context, collection string) ([]ContentRecord, error) {
	q := `
SELECT` + contentRecordColumns + `
FROM portal.content_records r
WHERE r.deleted_at IS NULL
  AND ($1 = '' OR r.collection = $1)
ORDER BY r.updated_at DESC, r.record_id DESC
`

	rows, err := p.Query(ctx, q, strings.ToLower(strings.TrimSpace(collection)))
	if err != nil {
		return nil, fmt.Errorf("query collection records: %w", err)
	}
	defer rows.Close()

	items := make([]ContentRecord, 0, 64)
	for rows.Next() {
		row, err := scanContentRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan content record row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content records: %w", err)
	}
	return items, nil
}

// SaveFieldTranslationParams stores one translated field and its provenance.
type SaveFieldTranslationParams struct {
	RecordID       int64
	Field          string
	SourceLang     string
	TargetLang     string
	TranslatedText string
	ProviderName   string
	Segments       int
	QualityScore   *int
	QualityIssues  []string
	LatencyMS      *int
}

// SaveFieldTranslations merges translated fields into their jsonb columns and upserts
// provenance rows in one transaction.
func (p *Pool) SaveFieldTranslations(ctx context.Context, rows []SaveFieldTranslationParams) error {
	if len(rows) == 0 {
		return nil
	}
	return p.inTx(ctx, func(q querier) error {
		for _, row := range rows {
			if err := saveFieldTranslation(ctx, q, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveFieldTranslation(ctx context.Context, q querier, row SaveFieldTranslationParams) error {
	column, err := localizedColumn(row.Field)
	if err != nil {
		return err
	}
	patch, err := json.Marshal(map[string]string{row.TargetLang: row.TranslatedText})
	if err != nil {
		return fmt.Errorf("encode %s patch: %w", row.Field, err)
	}

	updateSQL := fmt.Sprintf(`
UPDATE portal.content_records
SET %[1]s = COALESCE(%[1]s, '{}'::jsonb) || $2::jsonb,
	updated_at = now()
WHERE record_id = $1
  AND deleted_at IS NULL
`, column)
	tag, err := q.Exec(ctx, updateSQL, row.RecordID, string(patch))
	if err != nil {
		return fmt.Errorf("update %s translation: %w", row.Field, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	var issues any
	if row.QualityIssues != nil {
		encoded, err := json.Marshal(row.QualityIssues)
		if err != nil {
			return fmt.Errorf("encode quality issues: %w", err)
		}
		issues = string(encoded)
	}
	segments := row.Segments
	if segments < 1 {
		segments = 1
	}

	const upsertSQL = `
INSERT INTO portal.field_translations (
	record_id,
	field,
	target_lang,
	source_lang,
	provider_name,
	segments,
	quality_score,
	quality_issues,
	latency_ms
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
ON CONFLICT (record_id, field, target_lang)
DO UPDATE SET
	source_lang = EXCLUDED.source_lang,
	provider_name = EXCLUDED.provider_name,
	segments = EXCLUDED.segments,
	quality_score = EXCLUDED.quality_score,
	quality_issues = EXCLUDED.quality_issues,
	latency_ms = EXCLUDED.latency_ms,
	created_at = now()
`
	if _, err := q.Exec(
		ctx,
		upsertSQL,
		row.RecordID,
		row.Field,
		row.TargetLang,
		row.SourceLang,
		row.ProviderName,
		segments,
		row.QualityScore,
		issues,
		row.LatencyMS,
	); err != nil {
		return fmt.Errorf("upsert field translation: %w", err)
	}
	return nil
}

func localizedColumn(field string) (string, error) {
	switch field {
	case FieldTitle, FieldSummary, FieldBody:
		return field, nil
	default:
		return "", fmt.Errorf("unknown localized field %q", field)
	}
}
