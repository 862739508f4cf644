package store

import (
	"context"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/utils"
)

func ListTests(ctx context.Context, s *Store) []models.TestDefinition {
	return Get(ctx, s, CollectionMockTests, []models.TestDefinition{})
}

func FindTest(ctx context.Context, s *Store, id int) (models.TestDefinition, bool) {
	for _, t := range ListTests(ctx, s) {
		if t.ID == id {
			return t, true
		}
	}
	return models.TestDefinition{}, false
}

// SaveTest replaces the test with the same id, or appends it with a fresh id
// when t.ID is zero.
func SaveTest(ctx context.Context, s *Store, t models.TestDefinition) (models.TestDefinition, error) {
	err := Update(ctx, s, CollectionMockTests, []models.TestDefinition{}, func(tests []models.TestDefinition) ([]models.TestDefinition, error) {
		if t.ID == 0 {
			ids := make([]int, len(tests))
			for i, existing := range tests {
				ids[i] = existing.ID
			}
			t.ID = utils.NextTestID(ids)
			return append(tests, t), nil
		}
		for i := range tests {
			if tests[i].ID == t.ID {
				tests[i] = t
				return tests, nil
			}
		}
		return nil, ErrNotFound
	})
	return t, err
}

func SetTestLock(ctx context.Context, s *Store, id int, locked bool) (models.TestDefinition, error) {
	var out models.TestDefinition
	err := Update(ctx, s, CollectionMockTests, []models.TestDefinition{}, func(tests []models.TestDefinition) ([]models.TestDefinition, error) {
		for i := range tests {
			if tests[i].ID == id {
				tests[i].IsLocked = locked
				out = tests[i]
				return tests, nil
			}
		}
		return nil, ErrNotFound
	})
	return out, err
}

func DeleteTest(ctx context.Context, s *Store, id int) error {
	return Update(ctx, s, CollectionMockTests, []models.TestDefinition{}, func(tests []models.TestDefinition) ([]models.TestDefinition, error) {
		for i := range tests {
			if tests[i].ID == id {
				return append(tests[:i], tests[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}
