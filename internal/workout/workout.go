// Package workout implements the edits applied to an in-progress workout.
//
// Every operation is a total function: it returns a new Workout and never
// modifies the one it was given. Only the path from the root to the changed
// set or exercise is copied; untouched sections, exercises and sets are shared
// with the input. Identifiers that match nothing leave the workout unchanged.
package workout

import "github.com/claude/gymcoach/internal/models"

// Field names an editable numeric field of a set.
type Field string

const (
	FieldWeight Field = "weight"
	FieldReps   Field = "reps"
)

// Valid reports whether f is an editable field.
func (f Field) Valid() bool {
	return f == FieldWeight || f == FieldReps
}

// Transition describes what a completion toggle did.
type Transition int

const (
	// TransitionNone means no set matched.
	TransitionNone Transition = iota
	// TransitionCompleted means the set went from incomplete to complete.
	TransitionCompleted
	// TransitionReopened means the set went from complete back to incomplete.
	TransitionReopened
)

func (t Transition) String() string {
	switch t {
	case TransitionCompleted:
		return "completed"
	case TransitionReopened:
		return "reopened"
	default:
		return "none"
	}
}

// Location is the position of a set inside a workout.
type Location struct {
	Section  int
	Exercise int
	Set      int
}

// Locate finds the first set matching (exerciseID, setID) in
// section, exercise, set order.
func Locate(w models.Workout, exerciseID, setID string) (Location, bool) {
	for i, sec := range w.Sections {
		for j, ex := range sec.Exercises {
			if ex.ID != exerciseID {
				continue
			}
			for k, s := range ex.Sets {
				if s.ID == setID {
					return Location{Section: i, Exercise: j, Set: k}, true
				}
			}
		}
	}
	return Location{}, false
}

// Lookup returns the set and exercise at (exerciseID, setID).
func Lookup(w models.Workout, exerciseID, setID string) (models.Set, models.Exercise, bool) {
	loc, ok := Locate(w, exerciseID, setID)
	if !ok {
		return models.Set{}, models.Exercise{}, false
	}
	ex := w.Sections[loc.Section].Exercises[loc.Exercise]
	return ex.Sets[loc.Set], ex, true
}

// SetField stores raw into the weight or reps of the matching set. An empty raw
// value stores the blank marker. Values that do not parse as numbers, and
// unknown fields, leave the workout unchanged. Negative values are accepted.
func SetField(w models.Workout, exerciseID, setID string, field Field, raw string) models.Workout {
	if !field.Valid() {
		return w
	}
	q, err := models.ParseQuantity(raw)
	if err != nil {
		return w
	}
	loc, ok := Locate(w, exerciseID, setID)
	if !ok {
		return w
	}
	return withSet(w, loc, func(s models.Set) models.Set {
		if field == FieldWeight {
			s.Weight = q
		} else {
			s.Reps = q
		}
		return s
	})
}

// ToggleCompletion flips IsCompleted on the matching set and reports the transition.
func ToggleCompletion(w models.Workout, exerciseID, setID string) (models.Workout, Transition) {
	loc, ok := Locate(w, exerciseID, setID)
	if !ok {
		return w, TransitionNone
	}
	tr := TransitionCompleted
	out := withSet(w, loc, func(s models.Set) models.Set {
		if s.IsCompleted {
			tr = TransitionReopened
		}
		s.IsCompleted = !s.IsCompleted
		return s
	})
	return out, tr
}

// SubstituteExercise renames the first exercise with exerciseID. Its sets are
// kept unchanged. Callers validate that name is non-empty.
func SubstituteExercise(w models.Workout, exerciseID, name string) models.Workout {
	for i, sec := range w.Sections {
		for j, ex := range sec.Exercises {
			if ex.ID == exerciseID {
				return withExercise(w, i, j, func(ex models.Exercise) models.Exercise {
					ex.Name = name
					return ex
				})
			}
		}
	}
	return w
}

// FindExercise returns the first exercise with exerciseID.
func FindExercise(w models.Workout, exerciseID string) (models.Exercise, bool) {
	for _, sec := range w.Sections {
		for _, ex := range sec.Exercises {
			if ex.ID == exerciseID {
				return ex, true
			}
		}
	}
	return models.Exercise{}, false
}

// withExercise copies the spine down to exercise (si, ei) and replaces it with fn's result.
func withExercise(w models.Workout, si, ei int, fn func(models.Exercise) models.Exercise) models.Workout {
	sections := append([]models.Section(nil), w.Sections...)
	exercises := append([]models.Exercise(nil), sections[si].Exercises...)
	exercises[ei] = fn(exercises[ei])
	sections[si].Exercises = exercises
	w.Sections = sections
	return w
}

// withSet copies the spine down to the set at loc and replaces it with fn's result.
func withSet(w models.Workout, loc Location, fn func(models.Set) models.Set) models.Workout {
	return withExercise(w, loc.Section, loc.Exercise, func(ex models.Exercise) models.Exercise {
		sets := append([]models.Set(nil), ex.Sets...)
		sets[loc.Set] = fn(sets[loc.Set])
		ex.Sets = sets
		return ex
	})
}
