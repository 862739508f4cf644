package database

import (
	"context"
	"fmt"
	"os"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Tests []models.TestDefinition `yaml:"tests"`
}

// SeedTests loads mock tests from a YAML file when the collection is empty.
func SeedTests(ctx context.Context, st *store.Store, path string) error {
	if path == "" {
		return nil
	}
	if len(store.ListTests(ctx, st)) > 0 {
		log.Debug().Msg("Mock tests already present, skipping seed.")
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if seed.Tests == nil {
		seed.Tests = []models.TestDefinition{}
	}
	if err := st.Set(ctx, store.CollectionMockTests, seed.Tests); err != nil {
		return err
	}

	log.Info().Int("tests", len(seed.Tests)).Str("file", path).Msg("✅ Mock tests seeded successfully")
	return nil
}
