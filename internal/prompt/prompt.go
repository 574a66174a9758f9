// Package prompt builds the text sent to the generative model. It performs no
// I/O; callers send the result and decode the reply.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/gymcoach/internal/models"
)

// MaxHistory is the number of past workouts included in a menu prompt.
const MaxHistory = 5

// ErrInvalidRequest is wrapped by every validation failure.
var ErrInvalidRequest = errors.New("invalid prompt request")

// JSONOnlyInstruction is the sentence that constrains the model's output format.
const JSONOnlyInstruction = "Output ONLY a JSON object that follows the schema below. Do not include any other text."

// MenuRequest carries everything that shapes a generated workout.
type MenuRequest struct {
	TrainingTime int                   // minutes, positive
	History      []models.HistoryEntry // most recent first
	Goal         models.Goal
	Level        models.Level
	UserRequest  string
	PersonalInfo string
	Language     models.Language
	Today        string // YYYY-MM-DD
}

// Validate checks the request fields that have a closed domain.
func (r MenuRequest) Validate() error {
	if r.TrainingTime <= 0 {
		return fmt.Errorf("%w: training time must be a positive number of minutes, got %d", ErrInvalidRequest, r.TrainingTime)
	}
	if !r.Goal.Valid() {
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidRequest, r.Goal)
	}
	if !r.Level.Valid() {
		return fmt.Errorf("%w: unknown level %q", ErrInvalidRequest, r.Level)
	}
	if _, err := time.Parse(models.DateLayout, r.Today); err != nil {
		return fmt.Errorf("%w: today %q is not a YYYY-MM-DD date", ErrInvalidRequest, r.Today)
	}
	return nil
}

var goalLabels = map[models.Goal]string{
	models.GoalHypertrophy: "muscle hypertrophy",
	models.GoalStrength:    "strength",
	models.GoalDiet:        "fat loss",
	models.GoalHealth:      "general health",
}

// Menu assembles the workout generation prompt.
func Menu(req MenuRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	lang := req.Language.OrDefault().Name()

	var b strings.Builder
	b.WriteString("# You are a world-class personal trainer who genuinely cares about the user's progress.\n")
	b.WriteString("# Based on the user information and constraints below, propose the best training menu for today.\n")
	b.WriteString("# Do not just list exercises: give the user information that motivates them and makes the plan convincing.\n\n")

	b.WriteString("## User information\n")
	fmt.Fprintf(&b, "- Goal: %s\n", goalLabels[req.Goal])
	fmt.Fprintf(&b, "- Level: %s\n", req.Level)
	b.WriteString("- Recent training history (date: theme):\n")
	history := req.History
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	if len(history) == 0 {
		b.WriteString("none\n")
	}
	for _, h := range history {
		fmt.Fprintf(&b, "- %s: %s\n", h.Date, h.Theme)
	}

	b.WriteString("\n## Today's constraints\n")
	fmt.Fprintf(&b, "- Available training time: %d minutes\n", req.TrainingTime)
	fmt.Fprintf(&b, "- The \"date\" field MUST be today's date, %s.\n", req.Today)
	if info := strings.TrimSpace(req.PersonalInfo); info != "" {
		b.WriteString("- Personal information (HIGHEST PRIORITY, never propose anything that conflicts with it):\n")
		fmt.Fprintf(&b, "  %s\n", info)
	}
	if ask := strings.TrimSpace(req.UserRequest); ask != "" {
		fmt.Fprintf(&b, "- Request from the user for today: %s\n", ask)
	}

	b.WriteString("\n## Required fields\n")
	b.WriteString("0. date: today's date in YYYY-MM-DD format.\n")
	b.WriteString("1. theme: a short, appealing theme for today's session.\n")
	b.WriteString("2. reason: why this theme was chosen, referring to the history, addressed to the user.\n")
	b.WriteString("3. sections: split the session into sections.\n")
	b.WriteString("   - Always include a warm-up section and a cool-down section.\n")
	b.WriteString("   - Set the number of sets and reps for each exercise to match the user's goal and level.\n")

	b.WriteString("\n## Output rules\n")
	fmt.Fprintf(&b, "- Write every human-readable field (theme, reason, section titles, exercise names) in %s.\n", lang)
	fmt.Fprintf(&b, "- %s\n\n", JSONOnlyInstruction)
	b.WriteString("```json\n")
	b.WriteString("{\n")
	b.WriteString("  \"id\": \"unique id string\",\n")
	fmt.Fprintf(&b, "  \"date\": %q,\n", req.Today)
	b.WriteString("  \"theme\": \"string\",\n")
	b.WriteString("  \"reason\": \"string\",\n")
	b.WriteString("  \"sections\": [\n")
	b.WriteString("    {\n")
	b.WriteString("      \"title\": \"section name (e.g. Warm-up)\",\n")
	b.WriteString("      \"exercises\": [\n")
	b.WriteString("        {\n")
	b.WriteString("          \"id\": \"unique id string\",\n")
	b.WriteString("          \"name\": \"exercise name (e.g. Treadmill)\",\n")
	b.WriteString("          \"sets\": [\n")
	b.WriteString("            { \"id\": \"unique id string\", \"weight\": 0, \"reps\": 0, \"isCompleted\": false }\n")
	b.WriteString("          ]\n")
	b.WriteString("        }\n")
	b.WriteString("      ]\n")
	b.WriteString("    }\n")
	b.WriteString("  ]\n")
	b.WriteString("}\n")
	b.WriteString("```\n")
	return b.String(), nil
}

// Alternatives assembles the exercise substitution prompt.
func Alternatives(exerciseName string, lang models.Language) (string, error) {
	name := strings.TrimSpace(exerciseName)
	if name == "" {
		return "", fmt.Errorf("%w: exercise name is required", ErrInvalidRequest)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest 3 alternative strength training exercises for %q.\n", name)
	fmt.Fprintf(&b, "Write the exercise names in %s.\n", lang.OrDefault().Name())
	b.WriteString("Output ONLY a JSON array of exactly three strings in this form. Do not include any other text.\n\n")
	b.WriteString(`["Alternative A", "Alternative B", "Alternative C"]` + "\n")
	return b.String(), nil
}

// Question assembles the free-text exercise question prompt.
func Question(exerciseName, question string, lang models.Language) (string, error) {
	name := strings.TrimSpace(exerciseName)
	q := strings.TrimSpace(question)
	if name == "" || q == "" {
		return "", fmt.Errorf("%w: exercise name and question are required", ErrInvalidRequest)
	}
	var b strings.Builder
	b.WriteString("You are a knowledgeable personal trainer.\n")
	fmt.Fprintf(&b, "The user is asking about the exercise %q.\n", name)
	fmt.Fprintf(&b, "Question: %q\n\n", q)
	fmt.Fprintf(&b, "Please answer clearly and concisely in %s.\n", lang.OrDefault().Name())
	return b.String(), nil
}
