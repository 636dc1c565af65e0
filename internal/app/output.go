package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"nara.lk/portal/internal/language"
	"nara.lk/portal/internal/translation"
)

const (
	outputFormatText  = "text"
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

// parseOutputFormat accepts one of allowed; an empty value selects the first.
func parseOutputFormat(raw string, allowed ...string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" && len(allowed) > 0 {
		return allowed[0], nil
	}
	for _, candidate := range allowed {
		if format == candidate {
			return format, nil
		}
	}
	return "", fmt.Errorf("--format must be %s", strings.Join(allowed, " or "))
}

func normalizeLanguageFlag(raw string) string {
	return language.ResolveCode(raw)
}

// normalizeSourceFlag keeps "auto" and resolves anything else like a target flag.
func normalizeSourceFlag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == translation.SourceAuto {
		return translation.SourceAuto
	}
	if code := normalizeLanguageFlag(trimmed); code != "" {
		return code
	}
	return translation.SourceAuto
}

func normalizeCollectionFlag(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}

func parseLanguageList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}
