package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"nara.lk/portal/internal/payloadschema"
)

type validateResult struct {
	Scanned int
	Valid   int
	Invalid int
	Items   int
}

func newValidateCommand() *cobra.Command {
	var (
		dir       string
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate bulk upload payloads against the v1 content batch schema",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, strings.TrimSpace(dir), recursive)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "testdata/payloads", "Directory containing .json payload files")
	cmd.Flags().BoolVar(&recursive, "recursive", true, "Recursively scan subdirectories")
	return cmd
}

func runValidate(cmd *cobra.Command, dir string, recursive bool) error {
	files, err := collectJSONFiles(dir, recursive)
	if err != nil {
		return fmt.Errorf("validation setup failed: %w", err)
	}

	result := validateResult{}
	for _, path := range files {
		result.Scanned++

		raw, err := os.ReadFile(path)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(cmd.ErrOrStderr(), "INVALID %s: read failed: %v\n", path, err)
			continue
		}

		batch, err := payloadschema.ValidateContentBatch(raw)
		if err != nil {
			result.Invalid++
			fmt.Fprintf(cmd.ErrOrStderr(), "INVALID %s: %v\n", path, err)
			continue
		}

		result.Valid++
		result.Items += len(batch.Items)
	}

	fmt.Fprintf(
		cmd.OutOrStdout(),
		"validate scanned=%d valid=%d invalid=%d items=%d dir=%s recursive=%t\n",
		result.Scanned,
		result.Valid,
		result.Invalid,
		result.Items,
		dir,
		recursive,
	)

	if result.Scanned == 0 {
		return fmt.Errorf("no .json files found under %s", dir)
	}
	if result.Invalid > 0 {
		return fmt.Errorf("%d of %d payloads are invalid", result.Invalid, result.Scanned)
	}
	return nil
}

func collectJSONFiles(root string, recursive bool) ([]string, error) {
	cleanRoot := strings.TrimSpace(root)
	if cleanRoot == "" {
		return nil, fmt.Errorf("directory path is empty")
	}

	info, err := os.Stat(cleanRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", cleanRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", cleanRoot)
	}

	isPayload := func(name string) bool {
		return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".json")
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(cleanRoot)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", cleanRoot, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isPayload(entry.Name()) {
				files = append(files, filepath.Join(cleanRoot, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != cleanRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if isPayload(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", cleanRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
