package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"nara.lk/portal/internal/globaltime"
)

//go:embed sql/pre_automigrate.sql
var preAutoMigrateSQL string

//go:embed sql/post_automigrate.sql
var postAutoMigrateSQL string

type migrationStep struct {
	name string
	run  func(ctx context.Context, p *Pool) error
}

// migrationSteps creates the portal schema, syncs content_records and field_translations,
// then adds the collection check, the provenance foreign key and the jsonb indexes.
func migrationSteps() []migrationStep {
	return []migrationStep{
		{name: "pre-auto-migrate", run: execSQL("pre-auto-migrate", preAutoMigrateSQL)},
		{name: "models", run: func(ctx context.Context, p *Pool) error {
			if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
				return fmt.Errorf("gorm auto-migrate models: %w", err)
			}
			return nil
		}},
		{name: "post-auto-migrate", run: execSQL("post-auto-migrate", postAutoMigrateSQL)},
	}
}

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	for _, step := range migrationSteps() {
		started := globaltime.Now()
		if err := step.run(ctx, p); err != nil {
			return err
		}
		p.log.Debug().Str("step", step.name).Dur("took", globaltime.Since(started)).Msg("schema migration step applied")
	}
	p.log.Info().Msg("portal schema ready")
	return nil
}

func execSQL(label, sqlText string) func(ctx context.Context, p *Pool) error {
	trimmed := strings.TrimSpace(sqlText)
	return func(ctx context.Context, p *Pool) error {
		if trimmed == "" {
			return nil
		}
		if err := p.gdb.WithContext(ctx).Exec(trimmed).Error; err != nil {
			return fmt.Errorf("execute %s SQL: %w", label, err)
		}
		return nil
	}
}
