package workout

import "github.com/claude/gymcoach/internal/models"

// Volume returns the training volume: the sum of weight × reps over all sets.
// Blank quantities count as zero.
func Volume(w models.Workout) float64 {
	return SectionsVolume(w.Sections)
}

// SectionsVolume is Volume over a bare section list, as stored in history records.
func SectionsVolume(sections []models.Section) float64 {
	var total float64
	for _, sec := range sections {
		for _, ex := range sec.Exercises {
			for _, s := range ex.Sets {
				total += s.Weight.Value() * s.Reps.Value()
			}
		}
	}
	return total
}

// Progress counts completed and total sets.
func Progress(w models.Workout) (done, total int) {
	for _, sec := range w.Sections {
		for _, ex := range sec.Exercises {
			for _, s := range ex.Sets {
				total++
				if s.IsCompleted {
					done++
				}
			}
		}
	}
	return done, total
}
