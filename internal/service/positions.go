package service

import (
	"sort"

	"github.com/noah-isme/lms-content-api/internal/models"

	appErrors "github.com/noah-isme/lms-content-api/pkg/errors"
)

// normalizeModulePositions re-sequences sibling draft modules to a
// contiguous 1..N range, preserving their current relative order. Only
// entries whose position actually changes are returned.
func normalizeModulePositions(modules []models.DraftModule) []models.ModulePositionUpdate {
	sorted := make([]models.DraftModule, len(modules))
	copy(sorted, modules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	var updates []models.ModulePositionUpdate
	for i, m := range sorted {
		want := i + 1
		if m.Position != want {
			updates = append(updates, models.ModulePositionUpdate{ID: m.ID, Position: want})
		}
	}
	return updates
}

// validateSequentialPositions asserts the given positions are exactly
// {1..N} with no gaps or duplicates. Pure predicate, no side effects.
func validateSequentialPositions(positions []int) error {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)
	for i, p := range sorted {
		if p != i+1 {
			return appErrors.Clone(appErrors.ErrValidation, "module positions must be sequential starting from 1")
		}
	}
	return nil
}
