package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/claude/gymcoach/internal/models"
	"github.com/claude/gymcoach/internal/prompt"
)

// Generator is the model endpoint used by Coach.
type Generator interface {
	GenerateJSON(ctx context.Context, model, prompt string) ([]byte, error)
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// Models names the model used for each kind of request.
type Models struct {
	Menu         string
	Alternatives string
	Question     string
}

// DefaultModels are the models used when none are configured.
var DefaultModels = Models{
	Menu:         "gemini-2.5-pro",
	Alternatives: "gemini-2.5-flash-lite",
	Question:     "gemini-2.5-flash",
}

const (
	alternativesTTL     = 10 * time.Minute
	alternativesCleanup = 30 * time.Minute
)

// Coach composes prompt assembly, the model call and response decoding.
type Coach struct {
	gen          Generator
	models       Models
	log          *slog.Logger
	alternatives *gocache.Cache
}

// NewCoach creates a Coach. Empty model names fall back to DefaultModels.
func NewCoach(gen Generator, m Models, log *slog.Logger) *Coach {
	if m.Menu == "" {
		m.Menu = DefaultModels.Menu
	}
	if m.Alternatives == "" {
		m.Alternatives = DefaultModels.Alternatives
	}
	if m.Question == "" {
		m.Question = DefaultModels.Question
	}
	return &Coach{
		gen:          gen,
		models:       m,
		log:          log,
		alternatives: gocache.New(alternativesTTL, alternativesCleanup),
	}
}

// Menu generates a workout for req. The reply must decode as a workout; the
// result always carries a fresh ID regardless of what the model returned.
func (c *Coach) Menu(ctx context.Context, req prompt.MenuRequest) (models.Workout, error) {
	p, err := prompt.Menu(req)
	if err != nil {
		return models.Workout{}, err
	}

	start := time.Now()
	raw, err := c.gen.GenerateJSON(ctx, c.models.Menu, p)
	if err != nil {
		return models.Workout{}, fmt.Errorf("generating menu: %w", err)
	}
	c.log.Debug("menu generated", "model", c.models.Menu, "bytes", len(raw), "duration", time.Since(start).String())

	w, err := models.DecodeWorkout(raw)
	if err != nil {
		return models.Workout{}, fmt.Errorf("decoding menu: %w", err)
	}
	w.ID = models.NewID()
	return w, nil
}

// Alternatives returns three substitutes for exerciseName. Results are cached
// per (name, language) for ten minutes.
func (c *Coach) Alternatives(ctx context.Context, exerciseName string, lang models.Language) ([]string, error) {
	key := strings.ToLower(strings.TrimSpace(exerciseName)) + "|" + string(lang.OrDefault())
	if v, ok := c.alternatives.Get(key); ok {
		if names, ok := v.([]string); ok {
			return append([]string(nil), names...), nil
		}
	}

	p, err := prompt.Alternatives(exerciseName, lang)
	if err != nil {
		return nil, err
	}
	raw, err := c.gen.GenerateJSON(ctx, c.models.Alternatives, p)
	if err != nil {
		return nil, fmt.Errorf("generating alternatives: %w", err)
	}
	names, err := models.DecodeAlternatives(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding alternatives: %w", err)
	}

	c.alternatives.SetDefault(key, names)
	return append([]string(nil), names...), nil
}

// Answer answers a free-text question about exerciseName in lang.
func (c *Coach) Answer(ctx context.Context, exerciseName, question string, lang models.Language) (string, error) {
	p, err := prompt.Question(exerciseName, question, lang)
	if err != nil {
		return "", err
	}
	text, err := c.gen.GenerateText(ctx, c.models.Question, p)
	if err != nil {
		return "", fmt.Errorf("answering question: %w", err)
	}
	return strings.TrimSpace(text), nil
}
