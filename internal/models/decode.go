package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ParseError reports why a payload does not match the workout schema.
// Path locates the offending field, e.g. "sections[1].exercises[0].name".
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "workout schema: " + e.Reason
	}
	return fmt.Sprintf("workout schema: %s: %s", e.Path, e.Reason)
}

// wire types use pointers so absent fields can be told apart from zero values.
type wireWorkout struct {
	ID       string         `json:"id"`
	Date     *string        `json:"date"`
	Theme    *string        `json:"theme"`
	Reason   string         `json:"reason"`
	Sections *[]wireSection `json:"sections"`
}

type wireSection struct {
	Title     string         `json:"title"`
	Exercises []wireExercise `json:"exercises"`
}

type wireExercise struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

// DecodeWorkout decodes and validates a workout payload. It fails fast with a
// *ParseError instead of returning a partially typed workout. Missing exercise
// and set IDs, and IDs repeated within one parent collection, are replaced
// with fresh ones.
func DecodeWorkout(data []byte) (Workout, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Workout{}, &ParseError{Reason: "expected a JSON object"}
	}

	var wire wireWorkout
	if err := json.Unmarshal(data, &wire); err != nil {
		return Workout{}, jsonParseError(err)
	}

	if wire.Date == nil {
		return Workout{}, &ParseError{Path: "date", Reason: "missing"}
	}
	date := strings.TrimSpace(*wire.Date)
	if _, err := time.Parse(DateLayout, date); err != nil {
		return Workout{}, &ParseError{Path: "date", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", date)}
	}
	if wire.Theme == nil || strings.TrimSpace(*wire.Theme) == "" {
		return Workout{}, &ParseError{Path: "theme", Reason: "missing"}
	}
	if wire.Sections == nil {
		return Workout{}, &ParseError{Path: "sections", Reason: "missing"}
	}

	w := Workout{
		ID:       wire.ID,
		Date:     date,
		Theme:    *wire.Theme,
		Reason:   wire.Reason,
		Sections: make([]Section, 0, len(*wire.Sections)),
	}
	for i, ws := range *wire.Sections {
		sec := Section{Title: ws.Title, Exercises: make([]Exercise, 0, len(ws.Exercises))}
		seenExercises := make(map[string]bool, len(ws.Exercises))
		for j, we := range ws.Exercises {
			if strings.TrimSpace(we.Name) == "" {
				return Workout{}, &ParseError{
					Path:   fmt.Sprintf("sections[%d].exercises[%d].name", i, j),
					Reason: "missing",
				}
			}
			ex := Exercise{ID: uniqueID(we.ID, seenExercises), Name: we.Name, Sets: make([]Set, 0, len(we.Sets))}
			seenSets := make(map[string]bool, len(we.Sets))
			for _, s := range we.Sets {
				s.ID = uniqueID(s.ID, seenSets)
				ex.Sets = append(ex.Sets, s)
			}
			sec.Exercises = append(sec.Exercises, ex)
		}
		w.Sections = append(w.Sections, sec)
	}
	return w, nil
}

// DecodeAlternatives decodes a substitution response: a JSON array of exercise
// names. Blank names are dropped and at most three are kept.
func DecodeAlternatives(data []byte) ([]string, error) {
	var names []string
	if err := json.Unmarshal(bytes.TrimSpace(data), &names); err != nil {
		return nil, jsonParseError(err)
	}
	out := make([]string, 0, 3)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
		if len(out) == 3 {
			break
		}
	}
	if len(out) == 0 {
		return nil, &ParseError{Reason: "no alternatives"}
	}
	return out, nil
}

func uniqueID(id string, seen map[string]bool) string {
	id = strings.TrimSpace(id)
	if id == "" || seen[id] {
		id = NewID()
	}
	seen[id] = true
	return id
}

func jsonParseError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ParseError{
			Path:   typeErr.Field,
			Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return &ParseError{Reason: "invalid JSON: " + err.Error()}
}
