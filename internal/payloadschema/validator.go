package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed content_batch.schema.json
var contentBatchSchemaJSON string

const schemaResource = "content_batch.schema.json"

// ContentBatch is an admin bulk-upload payload.
type ContentBatch struct {
	PayloadVersion string        `json:"payload_version"`
	SourceLang     string        `json:"source_lang,omitempty"`
	TargetLangs    []string      `json:"target_langs,omitempty"`
	Items          []ContentItem `json:"items"`
}

// ContentItem is one record in a batch. Localized fields are keyed by language code.
type ContentItem struct {
	ItemID      string            `json:"item_id"`
	Collection  string            `json:"collection"`
	SourceLang  string            `json:"source_lang,omitempty"`
	Title       map[string]string `json:"title"`
	Summary     map[string]string `json:"summary,omitempty"`
	Body        map[string]string `json:"body,omitempty"`
	URL         *string           `json:"url,omitempty"`
	PublishedAt *string           `json:"published_at,omitempty"`
	Authors     []string          `json:"authors,omitempty"`
}

// ResolvedSourceLang returns the item language, the batch language, or "en".
func (b *ContentBatch) ResolvedSourceLang(item ContentItem) string {
	if lang := strings.TrimSpace(item.SourceLang); lang != "" {
		return lang
	}
	if b != nil {
		if lang := strings.TrimSpace(b.SourceLang); lang != "" {
			return lang
		}
	}
	return "en"
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateContentBatch decodes payload strictly, validates it against the embedded
// schema and applies checks the schema cannot express.
func ValidateContentBatch(payload []byte) (*ContentBatch, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var batch ContentBatch
	if err := json.Unmarshal(normalized, &batch); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(schemaResource, strings.NewReader(contentBatchSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(schemaResource)
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(batch *ContentBatch) error {
	if batch == nil {
		return fmt.Errorf("payload is nil")
	}

	seen := make(map[string]int, len(batch.Items))
	for i, item := range batch.Items {
		id := strings.TrimSpace(item.ItemID)
		if id == "" {
			return fmt.Errorf("items[%d].item_id must not be empty", i)
		}
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("items[%d].item_id %q duplicates items[%d]", i, id, prev)
		}
		seen[id] = i

		source := batch.ResolvedSourceLang(item)
		if strings.TrimSpace(item.Title[source]) == "" {
			return fmt.Errorf("items[%d].title.%s must not be empty", i, source)
		}

		if item.URL != nil {
			if err := validateURI(fmt.Sprintf("items[%d].url", i), *item.URL); err != nil {
				return err
			}
		}
		if item.PublishedAt != nil {
			if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*item.PublishedAt)); err != nil {
				return fmt.Errorf("items[%d].published_at must be RFC3339: %w", i, err)
			}
		}
		for j, author := range item.Authors {
			if strings.TrimSpace(author) == "" {
				return fmt.Errorf("items[%d].authors[%d] must not be empty", i, j)
			}
		}
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
