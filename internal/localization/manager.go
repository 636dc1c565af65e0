package localization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nara.lk/portal/internal/db"
	"nara.lk/portal/internal/payloadschema"
	"nara.lk/portal/internal/translation"
)

var ErrRecordNotFound = errors.New("content record not found")

// Store reads content records and persists translated fields.
type Store interface {
	GetContentRecordByUUID(ctx context.Context, recordUUID string) (db.ContentRecord, error)
	ListContentRecordsByCollection(ctx context.Context, collection string) ([]db.ContentRecord, error)
	SaveFieldTranslations(ctx context.Context, rows []db.SaveFieldTranslationParams) error
}

// Translator is the document translator used for field translation.
type Translator interface {
	Translate(ctx context.Context, req translation.Request, onProgress translation.ProgressFunc) (*translation.Result, error)
}

// RunOptions controls translation execution.
type RunOptions struct {
	TargetLang string
	Force      bool
	DryRun     bool
}

// CollectionRunOptions controls collection-level translation execution.
type CollectionRunOptions struct {
	RunOptions
	Progress func(CollectionProgress)
}

// CollectionProgress reports record-level progress for collection translations.
type CollectionProgress struct {
	Current    int
	Total      int
	RecordID   int64
	RecordUUID string
}

// RunStats reports translation execution counters, one per field.
type RunStats struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Cached     int `json:"cached"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func (s *RunStats) add(other RunStats) {
	s.Total += other.Total
	s.Translated += other.Translated
	s.Cached += other.Cached
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}

// Manager coordinates field translation and persistence of language-keyed content.
type Manager struct {
	store      Store
	translator Translator
	logger     zerolog.Logger
}

// NewManager wires a manager. store may be nil for in-memory batch translation.
func NewManager(store Store, translator Translator, logger zerolog.Logger) (*Manager, error) {
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	return &Manager{store: store, translator: translator, logger: logger}, nil
}

func (m *Manager) TranslateRecordByUUID(ctx context.Context, recordUUID string, opts RunOptions) (RunStats, error) {
	if err := m.requireStore(); err != nil {
		return RunStats{}, err
	}

	record, err := m.fetchRecord(ctx, recordUUID)
	if err != nil {
		return RunStats{}, err
	}
	return m.translateRecord(ctx, record, opts)
}

func (m *Manager) TranslateCollection(ctx context.Context, collection string, opts CollectionRunOptions) (RunStats, error) {
	if err := m.requireStore(); err != nil {
		return RunStats{}, err
	}

	records, err := m.store.ListContentRecordsByCollection(ctx, normalizeCollection(collection))
	if err != nil {
		return RunStats{}, err
	}

	total := RunStats{}
	for idx, record := range records {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if opts.Progress != nil {
			opts.Progress(CollectionProgress{
				Current:    idx + 1,
				Total:      len(records),
				RecordID:   record.RecordID,
				RecordUUID: record.RecordUUID,
			})
		}

		stats, err := m.translateRecord(ctx, record, opts.RunOptions)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// TranslateItems fills the target language of every item in batch in place.
func (m *Manager) TranslateItems(ctx context.Context, batch *payloadschema.ContentBatch, opts RunOptions) (RunStats, error) {
	if m == nil || m.translator == nil {
		return RunStats{}, fmt.Errorf("localization manager is not initialized")
	}
	if batch == nil {
		return RunStats{}, nil
	}
	targetLang, err := requireTargetLang(opts.TargetLang)
	if err != nil {
		return RunStats{}, err
	}

	total := RunStats{}
	for i := range batch.Items {
		item := &batch.Items[i]
		sourceLang := batch.ResolvedSourceLang(*item)
		fields := []struct {
			name  string
			kind  translation.Kind
			value *map[string]string
		}{
			{db.FieldTitle, translation.KindSegment, &item.Title},
			{db.FieldSummary, translation.KindSegment, &item.Summary},
			{db.FieldBody, translation.KindDocument, &item.Body},
		}

		for _, field := range fields {
			localized := db.LocalizedText(*field.value)
			task, ok := newFieldTask(field.name, field.kind, localized, sourceLang)
			if !ok {
				continue
			}
			outcome, err := m.runTask(ctx, task, localized, targetLang, opts)
			total.add(outcome.stats)
			if err != nil {
				return total, fmt.Errorf("translate item %s %s: %w", item.ItemID, field.name, err)
			}
			if outcome.result == nil {
				continue
			}
			if *field.value == nil {
				*field.value = map[string]string{}
			}
			(*field.value)[targetLang] = outcome.result.Text
		}
	}

	m.logger.Info().
		Int("items", len(batch.Items)).
		Str("target_lang", targetLang).
		Int("translated", total.Translated).
		Int("failed", total.Failed).
		Msg("batch translated")

	return total, nil
}

func (m *Manager) translateRecord(ctx context.Context, record db.ContentRecord, opts RunOptions) (RunStats, error) {
	targetLang, err := requireTargetLang(opts.TargetLang)
	if err != nil {
		return RunStats{}, err
	}

	tasks := recordTasks(record)
	stats := RunStats{}
	rows := make([]db.SaveFieldTranslationParams, 0, len(tasks))
	for _, task := range tasks {
		outcome, err := m.runTask(ctx, task, record.Field(task.field), targetLang, opts)
		stats.add(outcome.stats)
		if err != nil {
			return stats, fmt.Errorf("translate %s record_id=%d: %w", task.field, record.RecordID, err)
		}
		if outcome.result != nil {
			rows = append(rows, saveParams(record.RecordID, task, outcome.result))
		}
	}

	if len(rows) > 0 {
		if err := m.store.SaveFieldTranslations(ctx, rows); err != nil {
			if db.IsNoRows(err) {
				return stats, ErrRecordNotFound
			}
			return stats, fmt.Errorf("save translations record_id=%d: %w", record.RecordID, err)
		}
	}

	m.logger.Debug().
		Str("record_uuid", record.RecordUUID).
		Str("target_lang", targetLang).
		Int("translated", stats.Translated).
		Int("cached", stats.Cached).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("record translated")

	return stats, nil
}

type fieldTask struct {
	field      string
	kind       translation.Kind
	sourceLang string
	text       string
}

type taskOutcome struct {
	stats RunStats
	// result is set only for a successful translation that should be stored.
	result *translation.Result
}

func recordTasks(record db.ContentRecord) []fieldTask {
	tasks := make([]fieldTask, 0, 3)
	for _, spec := range []struct {
		field string
		kind  translation.Kind
	}{
		{db.FieldTitle, translation.KindSegment},
		{db.FieldSummary, translation.KindSegment},
		{db.FieldBody, translation.KindDocument},
	} {
		if task, ok := newFieldTask(spec.field, spec.kind, record.Field(spec.field), record.SourceLang); ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func newFieldTask(field string, kind translation.Kind, values db.LocalizedText, sourceLang string) (fieldTask, bool) {
	sourceLang = normalizeLang(sourceLang)
	text, ok := values.Get(sourceLang)
	if !ok {
		return fieldTask{}, false
	}
	return fieldTask{field: field, kind: kind, sourceLang: sourceLang, text: text}, true
}

func (m *Manager) runTask(ctx context.Context, task fieldTask, existing db.LocalizedText, targetLang string, opts RunOptions) (taskOutcome, error) {
	out := taskOutcome{stats: RunStats{Total: 1}}

	if shouldSkipTranslationTask(task.sourceLang, targetLang) {
		out.stats.Skipped++
		return out, nil
	}
	if _, stored := existing.Get(targetLang); stored && !opts.Force {
		out.stats.Cached++
		return out, nil
	}
	if opts.DryRun {
		out.stats.Skipped++
		return out, nil
	}

	result, err := m.translator.Translate(ctx, translation.Request{
		Text:       task.text,
		SourceLang: task.sourceLang,
		TargetLang: targetLang,
		Kind:       task.kind,
		Force:      opts.Force,
	}, nil)
	if err != nil {
		return out, err
	}
	if !result.Succeeded || result.Incomplete {
		m.logger.Warn().
			Str("field", task.field).
			Str("target_lang", targetLang).
			Str("error_kind", string(result.ErrorKind)).
			Bool("incomplete", result.Incomplete).
			Msg("field translation unavailable")
		out.stats.Failed++
		return out, nil
	}

	out.stats.Translated++
	out.result = result
	return out, nil
}

func saveParams(recordID int64, task fieldTask, result *translation.Result) db.SaveFieldTranslationParams {
	row := db.SaveFieldTranslationParams{
		RecordID:       recordID,
		Field:          task.field,
		SourceLang:     result.SourceLang,
		TargetLang:     result.TargetLang,
		TranslatedText: result.Text,
		ProviderName:   result.ProviderID,
		Segments:       result.Stats.Segments,
	}
	if row.SourceLang == "" || row.SourceLang == translation.SourceAuto {
		row.SourceLang = task.sourceLang
	}
	if row.ProviderName == "" {
		row.ProviderName = "cache"
	}
	if result.Quality != nil {
		score := result.Quality.Score
		row.QualityScore = &score
		row.QualityIssues = append([]string{}, result.Quality.Issues...)
	}
	latency := int(result.Stats.DurationMs)
	if latency < 0 {
		latency = 0
	}
	row.LatencyMS = &latency
	return row
}

func (m *Manager) fetchRecord(ctx context.Context, recordUUID string) (db.ContentRecord, error) {
	record, err := m.store.GetContentRecordByUUID(ctx, strings.TrimSpace(recordUUID))
	if err != nil {
		if db.IsNoRows(err) {
			return db.ContentRecord{}, ErrRecordNotFound
		}
		return db.ContentRecord{}, err
	}
	return record, nil
}

func (m *Manager) requireStore() error {
	if m == nil || m.translator == nil {
		return fmt.Errorf("localization manager is not initialized")
	}
	if m.store == nil {
		return fmt.Errorf("content store is not configured")
	}
	return nil
}

func requireTargetLang(raw string) (string, error) {
	targetLang := normalizeLang(raw)
	if targetLang == "" {
		return "", fmt.Errorf("%w: target language is required", translation.ErrInvalidRequest)
	}
	if !translation.IsSupportedLanguage(targetLang) {
		return "", fmt.Errorf("%w: %q", translation.ErrUnsupportedLanguage, targetLang)
	}
	return targetLang, nil
}

func shouldSkipTranslationTask(sourceLang, targetLang string) bool {
	source := normalizeLang(sourceLang)
	if source == "" || source == "und" {
		return false
	}
	return source == normalizeLang(targetLang)
}

func normalizeLang(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeCollection(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}
