// Package testutil holds fixtures and property-test generators shared by tests.
package testutil

import (
	"fmt"

	"pgregory.net/rapid"

	"github.com/claude/gymcoach/internal/models"
)

// SampleWorkout returns a small, fully populated workout with deterministic IDs.
func SampleWorkout() models.Workout {
	return models.Workout{
		ID:     "w-1",
		Date:   "2026-10-18",
		Theme:  "Push day",
		Reason: "Legs were trained two days ago.",
		Sections: []models.Section{
			{
				Title: "Warm-up",
				Exercises: []models.Exercise{
					{ID: "e-1", Name: "Treadmill", Sets: []models.Set{
						{ID: "s-1", Weight: models.Qty(0), Reps: models.Qty(1)},
					}},
				},
			},
			{
				Title: "Chest",
				Exercises: []models.Exercise{
					{ID: "e-2", Name: "Bench Press", Sets: []models.Set{
						{ID: "s-1", Weight: models.Qty(60), Reps: models.Qty(10)},
						{ID: "s-2", Weight: models.Qty(62.5), Reps: models.Qty(8)},
						{ID: "s-3", Weight: models.Blank(), Reps: models.Qty(8)},
					}},
					{ID: "e-3", Name: "Dumbbell Fly", Sets: []models.Set{
						{ID: "s-1", Weight: models.Qty(14), Reps: models.Qty(12), IsCompleted: true},
					}},
				},
			},
			{
				Title: "Cool-down",
				Exercises: []models.Exercise{
					{ID: "e-4", Name: "Stretching", Sets: []models.Set{
						{ID: "s-1", Weight: models.Qty(0), Reps: models.Qty(1)},
					}},
				},
			},
		},
	}
}

// Quantity draws a set or blank quantity.
func Quantity() *rapid.Generator[models.Quantity] {
	return rapid.Custom(func(t *rapid.T) models.Quantity {
		if rapid.IntRange(0, 9).Draw(t, "blank") == 0 {
			return models.Blank()
		}
		// quarter-kilo steps keep values exact through a JSON round trip
		return models.Qty(float64(rapid.IntRange(0, 1200).Draw(t, "quarters")) / 4)
	})
}

// Workout draws a legally constructed workout: IDs are unique within each parent.
func Workout() *rapid.Generator[models.Workout] {
	return rapid.Custom(func(t *rapid.T) models.Workout {
		w := models.Workout{
			ID:       rapid.StringMatching(`w-[a-z0-9]{6}`).Draw(t, "id"),
			Date:     fmt.Sprintf("2026-%02d-%02d", rapid.IntRange(1, 12).Draw(t, "month"), rapid.IntRange(1, 28).Draw(t, "day")),
			Theme:    rapid.StringMatching(`[A-Z][a-z ]{0,19}`).Draw(t, "theme"),
			Reason:   rapid.StringMatching(`[A-Za-z0-9 .,!]{0,40}`).Draw(t, "reason"),
			Sections: []models.Section{},
		}
		numSections := rapid.IntRange(1, 4).Draw(t, "sections")
		for i := 0; i < numSections; i++ {
			sec := models.Section{
				Title:     rapid.StringMatching(`[A-Za-z]{0,10}`).Draw(t, "title"),
				Exercises: []models.Exercise{},
			}
			numExercises := rapid.IntRange(0, 4).Draw(t, "exercises")
			for j := 0; j < numExercises; j++ {
				ex := models.Exercise{
					ID:   fmt.Sprintf("e-%d", j),
					Name: rapid.StringMatching(`[A-Za-z]{1,12}`).Draw(t, "name"),
					Sets: []models.Set{},
				}
				numSets := rapid.IntRange(0, 5).Draw(t, "sets")
				for k := 0; k < numSets; k++ {
					ex.Sets = append(ex.Sets, models.Set{
						ID:          fmt.Sprintf("s-%d", k),
						Weight:      Quantity().Draw(t, "weight"),
						Reps:        Quantity().Draw(t, "reps"),
						IsCompleted: rapid.Bool().Draw(t, "completed"),
					})
				}
				sec.Exercises = append(sec.Exercises, ex)
			}
			w.Sections = append(w.Sections, sec)
		}
		return w
	})
}

// SetLocation draws an (exerciseID, setID) pair present in w, or ok=false when w has no sets.
func SetLocation(t *rapid.T, w models.Workout) (exerciseID, setID string, ok bool) {
	type loc struct{ e, s string }
	var locs []loc
	for _, sec := range w.Sections {
		for _, ex := range sec.Exercises {
			for _, s := range ex.Sets {
				locs = append(locs, loc{ex.ID, s.ID})
			}
		}
	}
	if len(locs) == 0 {
		return "", "", false
	}
	l := rapid.SampledFrom(locs).Draw(t, "location")
	return l.e, l.s, true
}
