package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nara.lk/portal/internal/localization"
	"nara.lk/portal/internal/payloadschema"
	"nara.lk/portal/internal/reader"
	"nara.lk/portal/internal/translation"
)

type translateOptions struct {
	lang   string
	source string
	format string
	force  bool
	dryRun bool
}

func newTranslateCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate text, documents, web pages and stored records",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usageErrorf("translate requires a target")
		},
	}

	cmd.AddCommand(
		newTranslateTextCommand(flags),
		newTranslateDocumentCommand(flags),
		newTranslateURLCommand(flags),
		newTranslateRecordCommand(flags),
		newTranslateCollectionCommand(flags),
		newTranslateBulkCommand(flags),
	)
	return cmd
}

func addLangFlag(cmd *cobra.Command, opts *translateOptions, usage string) {
	cmd.Flags().StringVar(&opts.lang, "lang", "", usage)
}

func addTextFlags(cmd *cobra.Command, opts *translateOptions) {
	addLangFlag(cmd, opts, "Target language (si, ta or en)")
	cmd.Flags().StringVar(&opts.source, "source", translation.SourceAuto, "Source language, or auto to detect")
	cmd.Flags().StringVar(&opts.format, "format", outputFormatText, "Output format: text or json")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Bypass the translation cache")
}

func addRecordFlags(cmd *cobra.Command, opts *translateOptions) {
	addLangFlag(cmd, opts, "Target language (si, ta or en)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Retranslate even when a stored translation exists")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Preview work without calling the translation provider")
}

func newTranslateTextCommand(flags *globalFlags) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "text <text|->",
		Short: "Translate one short text",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0], false)
			if err != nil {
				return err
			}
			return runTranslateText(cmd, flags, opts, text, translation.KindSegment)
		},
	}
	addTextFlags(cmd, opts)
	return cmd
}

func newTranslateDocumentCommand(flags *globalFlags) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "document <file|->",
		Short: "Translate a long document paragraph by paragraph",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0], true)
			if err != nil {
				return err
			}
			return runTranslateText(cmd, flags, opts, text, translation.KindDocument)
		},
	}
	addTextFlags(cmd, opts)
	return cmd
}

func runTranslateText(cmd *cobra.Command, flags *globalFlags, opts *translateOptions, text string, kind translation.Kind) error {
	targetLang, format, err := opts.validate(outputFormatText, outputFormatJSON)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return usageErrorf("input text must not be empty")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	rt, err := newRuntime(ctx, flags, runtimeOptions{database: databaseNone})
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.translator.Translate(ctx, translation.Request{
		Text:       text,
		SourceLang: normalizeSourceFlag(opts.source),
		TargetLang: targetLang,
		Kind:       kind,
		Force:      opts.force,
	}, documentProgress(cmd, kind))
	if err != nil {
		return fmt.Errorf("translate failed: %w", err)
	}

	warnDegraded(cmd, result)
	if format == outputFormatJSON {
		return printJSON(cmd.OutOrStdout(), result)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return err
}

func newTranslateURLCommand(flags *globalFlags) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "url <url>",
		Short: "Fetch a web page, extract the article and translate it",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslateURL(cmd, flags, opts, strings.TrimSpace(args[0]))
		},
	}
	addTextFlags(cmd, opts)
	return cmd
}

type translatedPage struct {
	URL    string              `json:"url"`
	Title  *translation.Result `json:"title,omitempty"`
	Result *translation.Result `json:"result"`
}

func runTranslateURL(cmd *cobra.Command, flags *globalFlags, opts *translateOptions, pageURL string) error {
	targetLang, format, err := opts.validate(outputFormatText, outputFormatJSON)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	page, err := reader.Fetch(ctx, pageURL, reader.FetchOptions{})
	if err != nil {
		return fmt.Errorf("fetch page failed: %w", err)
	}
	if strings.TrimSpace(page.Text) == "" {
		return fmt.Errorf("no readable text found at %s", pageURL)
	}

	sourceLang := normalizeSourceFlag(opts.source)
	if sourceLang == translation.SourceAuto && translation.IsSupportedLanguage(page.Lang) {
		sourceLang = normalizeLanguageFlag(page.Lang)
	}

	rt, err := newRuntime(ctx, flags, runtimeOptions{database: databaseNone})
	if err != nil {
		return err
	}
	defer rt.Close()

	out := translatedPage{URL: page.URL}
	if strings.TrimSpace(page.Title) != "" {
		out.Title, err = rt.translator.Translate(ctx, translation.Request{
			Text:       page.Title,
			SourceLang: sourceLang,
			TargetLang: targetLang,
			Kind:       translation.KindSegment,
			Force:      opts.force,
		}, nil)
		if err != nil {
			return fmt.Errorf("translate title failed: %w", err)
		}
	}

	out.Result, err = rt.translator.Translate(ctx, translation.Request{
		Text:       page.Text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Kind:       translation.KindDocument,
		Force:      opts.force,
	}, documentProgress(cmd, translation.KindDocument))
	if err != nil {
		return fmt.Errorf("translate page failed: %w", err)
	}

	warnDegraded(cmd, out.Result)
	if format == outputFormatJSON {
		return printJSON(cmd.OutOrStdout(), out)
	}
	if out.Title != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", out.Title.Text)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Result.Text)
	return err
}

func newTranslateRecordCommand(flags *globalFlags) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "record <record_uuid>",
		Short: "Translate the fields of one stored content record",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslateStored(cmd, flags, opts, "record", strings.TrimSpace(args[0]))
		},
	}
	addRecordFlags(cmd, opts)
	return cmd
}

func newTranslateCollectionCommand(flags *globalFlags) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "collection <news|research|book>",
		Short: "Translate every record of a collection",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslateStored(cmd, flags, opts, "collection", normalizeCollectionFlag(args[0]))
		},
	}
	addRecordFlags(cmd, opts)
	return cmd
}

func runTranslateStored(cmd *cobra.Command, flags *globalFlags, opts *translateOptions, target, identifier string) error {
	targetLang, _, err := opts.validate(outputFormatText)
	if err != nil {
		return err
	}
	if identifier == "" {
		return usageErrorf("translate %s argument must not be empty", target)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	rt, err := newRuntime(ctx, flags, runtimeOptions{database: databaseRequired})
	if err != nil {
		return err
	}
	defer rt.Close()

	runOpts := localization.RunOptions{
		TargetLang: targetLang,
		Force:      opts.force,
		DryRun:     opts.dryRun,
	}

	var stats localization.RunStats
	if target == "record" {
		stats, err = rt.manager.TranslateRecordByUUID(ctx, identifier, runOpts)
		if errors.Is(err, localization.ErrRecordNotFound) {
			return fmt.Errorf("record not found: %s", identifier)
		}
	} else {
		stats, err = rt.manager.TranslateCollection(ctx, identifier, localization.CollectionRunOptions{
			RunOptions: runOpts,
			Progress: func(p localization.CollectionProgress) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Translating %d/%d records...\n", p.Current, p.Total)
			},
		})
	}
	if err != nil {
		return fmt.Errorf("translate %s failed: %w", target, err)
	}

	fmt.Fprintf(
		cmd.OutOrStdout(),
		"translate target=%s id=%s lang=%s total=%d translated=%d cached=%d skipped=%d failed=%d dry_run=%t force=%t\n",
		target,
		identifier,
		targetLang,
		stats.Total,
		stats.Translated,
		stats.Cached,
		stats.Skipped,
		stats.Failed,
		opts.dryRun,
		opts.force,
	)
	return nil
}

func newTranslateBulkCommand(flags *globalFlags) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "bulk <items.json|->",
		Short: "Validate a bulk upload payload and fill in its target languages",
		Long: `bulk validates a content batch against the v1 payload schema, translates the
title, summary and body of every item into each target language and writes the
enriched payload to stdout. Target languages default to the payload's target_langs.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslateBulk(cmd, flags, opts, args[0])
		},
	}
	addLangFlag(cmd, opts, "Comma-separated target languages (default: the payload's target_langs)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Retranslate fields that already carry a target translation")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and count work without calling the translation provider")
	return cmd
}

func runTranslateBulk(cmd *cobra.Command, flags *globalFlags, opts *translateOptions, path string) error {
	raw, err := readInput(cmd, path, true)
	if err != nil {
		return err
	}
	batch, err := payloadschema.ValidateContentBatch([]byte(raw))
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	targets := batch.TargetLangs
	if strings.TrimSpace(opts.lang) != "" {
		targets = parseLanguageList(opts.lang)
	}
	if len(targets) == 0 {
		return usageErrorf("--lang is required when the payload has no target_langs")
	}
	for i, lang := range targets {
		targets[i] = normalizeLanguageFlag(lang)
		if !translation.IsSupportedLanguage(targets[i]) {
			return usageErrorf("unsupported target language %q", lang)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	rt, err := newRuntime(ctx, flags, runtimeOptions{database: databaseNone})
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, lang := range targets {
		stats, err := rt.manager.TranslateItems(ctx, batch, localization.RunOptions{
			TargetLang: lang,
			Force:      opts.force,
			DryRun:     opts.dryRun,
		})
		if err != nil {
			return fmt.Errorf("translate batch to %s failed: %w", lang, err)
		}
		fmt.Fprintf(
			cmd.ErrOrStderr(),
			"bulk lang=%s items=%d total=%d translated=%d cached=%d skipped=%d failed=%d\n",
			lang,
			len(batch.Items),
			stats.Total,
			stats.Translated,
			stats.Cached,
			stats.Skipped,
			stats.Failed,
		)
	}

	return printJSON(cmd.OutOrStdout(), batch)
}

// validate resolves the target language and output format.
func (o *translateOptions) validate(formats ...string) (string, string, error) {
	targetLang := normalizeLanguageFlag(o.lang)
	if targetLang == "" {
		return "", "", usageErrorf("--lang is required and must be a valid language code")
	}
	if !translation.IsSupportedLanguage(targetLang) {
		return "", "", usageErrorf("unsupported target language %q (supported: %s)", o.lang, strings.Join(translation.SupportedTranslationLanguageCodes(), ", "))
	}
	format, err := parseOutputFormat(o.format, formats...)
	if err != nil {
		return "", "", usageErrorf("%v", err)
	}
	return targetLang, format, nil
}

func documentProgress(cmd *cobra.Command, kind translation.Kind) translation.ProgressFunc {
	if kind != translation.KindDocument {
		return nil
	}
	return func(p translation.Progress) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Translated %d/%d segments (%d%%)\n", p.Completed, p.Total, p.Percentage)
	}
}

func warnDegraded(cmd *cobra.Command, result *translation.Result) {
	if result == nil {
		return
	}
	if result.Incomplete {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: translation is incomplete")
	}
	if !result.Succeeded {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d of %d segments kept their original text (%s)\n",
			result.Stats.Failed+result.Stats.Unresolved, result.Stats.Segments, result.ErrorKind)
	}
	if result.Quality != nil && len(result.Quality.Issues) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Quality score %d: %s\n", result.Quality.Score, strings.Join(result.Quality.Issues, "; "))
	}
}

// readInput returns arg itself, stdin for "-", or the file at arg when fromFile is set.
func readInput(cmd *cobra.Command, arg string, fromFile bool) (string, error) {
	if arg == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	if !fromFile {
		return arg, nil
	}
	raw, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	return string(raw), nil
}
