package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"nara.lk/portal/internal/globaltime"
	"nara.lk/portal/internal/jobs"
	"nara.lk/portal/internal/localization"
	"nara.lk/portal/internal/translation"
)

type translateRequest struct {
	Text       string `json:"text" validate:"required"`
	SourceLang string `json:"source_lang" validate:"omitempty,max=16"`
	TargetLang string `json:"target_lang" validate:"required,lang"`
	Force      bool   `json:"force"`
	// Audit attaches a quality report even when the server does not audit by default.
	Audit bool `json:"audit"`
}

type documentRequest struct {
	Text           string `json:"text" validate:"required"`
	SourceLang     string `json:"source_lang" validate:"omitempty,max=16"`
	TargetLang     string `json:"target_lang" validate:"required,lang"`
	Force          bool   `json:"force"`
	Audit          bool   `json:"audit"`
	MaxChunkLength int    `json:"max_chunk_length" validate:"omitempty,min=1,max=20000"`
}

type qualityRequest struct {
	Original   string `json:"original" validate:"required"`
	Translated string `json:"translated" validate:"required"`
	TargetLang string `json:"target_lang" validate:"required,lang"`
}

type recordTranslateRequest struct {
	TargetLang string `json:"target_lang" validate:"required,lang"`
	Force      bool   `json:"force"`
	DryRun     bool   `json:"dry_run"`
}

// bindAndValidate returns a non-nil response error when the request was rejected.
func (s *Server) bindAndValidate(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, failValidation(c, map[string]string{"body": "must be a valid JSON object"})
	}
	if err := c.Validate(dst); err != nil {
		return false, failValidation(c, s.validator.fieldErrors(err))
	}
	return true, nil
}

func (s *Server) handleHealth(c echo.Context) error {
	database := "disabled"
	if s.deps.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		database = "ok"
		if err := s.deps.Database.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("database ping failed")
			database = "unavailable"
		}
	}

	providers := s.deps.Providers.Describe()
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}

	return success(c, map[string]any{
		"service":   "portal",
		"time":      globaltime.UTC(),
		"database":  database,
		"providers": names,
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"items": translation.TranslationLanguageOptions(),
	})
}

func (s *Server) handleProviders(c echo.Context) error {
	return success(c, map[string]any{
		"items": s.deps.Providers.Describe(),
	})
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if ok, err := s.bindAndValidate(c, &req); !ok {
		return err
	}

	result, err := s.deps.Translator.Translate(c.Request().Context(), translation.Request{
		Text:       req.Text,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Kind:       translation.KindSegment,
		Force:      req.Force,
	}, nil)
	if err != nil {
		return s.translationError(c, err)
	}
	attachQuality(result, req.Text, req.Audit)
	return success(c, result)
}

func (s *Server) handleTranslateDocument(c echo.Context) error {
	var req documentRequest
	if ok, err := s.bindAndValidate(c, &req); !ok {
		return err
	}

	result, err := s.deps.Translator.Translate(c.Request().Context(), translation.Request{
		Text:           req.Text,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		Kind:           translation.KindDocument,
		Force:          req.Force,
		MaxChunkLength: req.MaxChunkLength,
	}, nil)
	if err != nil {
		return s.translationError(c, err)
	}
	attachQuality(result, req.Text, req.Audit)
	return success(c, result)
}

func (s *Server) handleQuality(c echo.Context) error {
	var req qualityRequest
	if ok, err := s.bindAndValidate(c, &req); !ok {
		return err
	}
	return success(c, translation.Assess(req.Original, req.Translated, req.TargetLang))
}

func (s *Server) handleListJobs(c echo.Context) error {
	return success(c, map[string]any{
		"items": s.deps.Jobs.List(),
	})
}

func (s *Server) handleSubmitJob(c echo.Context) error {
	var req documentRequest
	if ok, err := s.bindAndValidate(c, &req); !ok {
		return err
	}

	job, err := s.deps.Jobs.Submit(translation.Request{
		Text:           req.Text,
		SourceLang:     req.SourceLang,
		TargetLang:     req.TargetLang,
		Kind:           translation.KindDocument,
		Force:          req.Force,
		MaxChunkLength: req.MaxChunkLength,
	})
	if err != nil {
		return s.translationError(c, err)
	}
	return accepted(c, job)
}

func (s *Server) handleGetJob(c echo.Context) error {
	job, err := s.deps.Jobs.Get(strings.TrimSpace(c.Param("job_id")))
	if err != nil {
		return s.jobError(c, err)
	}
	return success(c, job)
}

func (s *Server) handleCancelJob(c echo.Context) error {
	job, err := s.deps.Jobs.Cancel(strings.TrimSpace(c.Param("job_id")))
	if err != nil {
		return s.jobError(c, err)
	}
	return success(c, job)
}

func (s *Server) handleClearCache(c echo.Context) error {
	cache := s.deps.Translator.Cache()
	if cache == nil {
		return success(c, map[string]any{"cleared": 0})
	}
	cleared := cache.Len()
	cache.Clear()
	s.logger.Info().Int("entries", cleared).Msg("translation cache cleared")
	return success(c, map[string]any{"cleared": cleared})
}

func (s *Server) handleGetRecord(c echo.Context) error {
	recordUUID, ok := parseRecordUUID(c)
	if !ok {
		return failValidation(c, map[string]string{"record_uuid": "must be a UUID"})
	}

	lang := strings.TrimSpace(c.QueryParam("lang"))
	if lang != "" && !translation.IsSupportedLanguage(lang) {
		return failValidation(c, map[string]string{"lang": "lang must be a supported language code"})
	}

	record, err := s.deps.Records.LocalizeByUUID(c.Request().Context(), recordUUID, lang)
	if err != nil {
		return s.recordError(c, err, recordUUID)
	}
	return success(c, record)
}

func (s *Server) handleTranslateRecord(c echo.Context) error {
	recordUUID, ok := parseRecordUUID(c)
	if !ok {
		return failValidation(c, map[string]string{"record_uuid": "must be a UUID"})
	}

	var req recordTranslateRequest
	if ok, err := s.bindAndValidate(c, &req); !ok {
		return err
	}

	stats, err := s.deps.Records.TranslateRecordByUUID(c.Request().Context(), recordUUID, localization.RunOptions{
		TargetLang: req.TargetLang,
		Force:      req.Force,
		DryRun:     req.DryRun,
	})
	if err != nil {
		return s.recordError(c, err, recordUUID)
	}
	return success(c, map[string]any{
		"record_uuid": recordUUID,
		"target_lang": strings.ToLower(strings.TrimSpace(req.TargetLang)),
		"dry_run":     req.DryRun,
		"stats":       stats,
	})
}

func parseRecordUUID(c echo.Context) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(c.Param("record_uuid")))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

// attachQuality audits result on request when the translator did not already.
func attachQuality(result *translation.Result, original string, requested bool) {
	if !requested || result == nil || result.Quality != nil {
		return
	}
	report := translation.Assess(original, result.Text, result.TargetLang)
	result.Quality = &report
}

func (s *Server) translationError(c echo.Context, err error) error {
	if errors.Is(err, translation.ErrInvalidRequest) {
		return failRequest(c, err)
	}
	s.logger.Error().Err(err).Msg("translation failed")
	return serverError(c, "Translation failed")
}

func (s *Server) jobError(c echo.Context, err error) error {
	if errors.Is(err, jobs.ErrNotFound) {
		return failNotFound(c, "Job not found")
	}
	s.logger.Error().Err(err).Msg("job lookup failed")
	return serverError(c, "Failed to load job")
}

func (s *Server) recordError(c echo.Context, err error, recordUUID string) error {
	switch {
	case errors.Is(err, localization.ErrRecordNotFound):
		return failNotFound(c, "Record not found")
	case errors.Is(err, translation.ErrInvalidRequest):
		return failRequest(c, err)
	}
	s.logger.Error().Err(err).Str("record_uuid", recordUUID).Msg("record request failed")
	return serverError(c, "Failed to process record")
}
