// Package chef turns a structured user request into a prompt plus
// response schema, runs one schema-constrained generation call and
// strictly decodes the result into the typed model. It never retries on
// its own: retry-on-reject is a user decision owned by the session.
package chef

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"personal-chef/internal/llm"
	"personal-chef/internal/plan"
	"personal-chef/internal/recipe"
	"personal-chef/internal/shared"
)

//go:embed recipe_prompt.md
var recipePrompt string

//go:embed weekly_plan_prompt.md
var weeklyPlanPrompt string

var (
	recipeTmpl     = template.Must(template.New("recipe").Parse(recipePrompt))
	weeklyPlanTmpl = template.Must(template.New("weekly_plan").Parse(weeklyPlanPrompt))
)

// ErrInvalidRequest marks user input rejected at the request boundary,
// before any backend call is made.
var ErrInvalidRequest = errors.New("invalid request")

// RecipeRequest carries the user parameters for a single recipe.
type RecipeRequest struct {
	Ingredients string
	TimeMinutes int
	Constraints string
}

// PlanRequest carries the user parameters for a weekly plan.
type PlanRequest struct {
	Constraints    string
	MealsPerDay    int
	WeekStart      plan.Date
	CaloriesPerDay int
}

type recipePromptData struct {
	RecipeRequest
	Retry bool
}

type planPromptData struct {
	PlanRequest
	Retry bool
}

// BuildRecipePrompt renders the recipe prompt. When retry is true an
// explicit directive demands an output materially different from the
// previous attempt with the same parameters.
func BuildRecipePrompt(req RecipeRequest, retry bool) (string, error) {
	var buf bytes.Buffer
	if err := recipeTmpl.Execute(&buf, recipePromptData{RecipeRequest: req, Retry: retry}); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// BuildWeeklyPlanPrompt renders the weekly plan prompt. The retry flag
// carries the same variation directive as the recipe path: a rejected
// menu must regenerate materially different, not byte-identical.
func BuildWeeklyPlanPrompt(req PlanRequest, retry bool) (string, error) {
	var buf bytes.Buffer
	if err := weeklyPlanTmpl.Execute(&buf, planPromptData{PlanRequest: req, Retry: retry}); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Chef is the generation client for both artifact kinds.
type Chef struct {
	gen llm.TextGenerator
}

// New creates a Chef on top of a text generator.
func New(gen llm.TextGenerator) *Chef {
	return &Chef{gen: gen}
}

// GenerateRecipe validates the request, runs one generation call and
// returns the validated recipe. A malformed or schema-violating answer
// is a terminal failure for this attempt.
func (c *Chef) GenerateRecipe(ctx context.Context, req RecipeRequest, retry bool) (*recipe.Recipe, shared.AgentMeta, error) {
	meta := shared.AgentMeta{AgentName: "RecipeChef"}

	if strings.TrimSpace(req.Ingredients) == "" {
		return nil, meta, fmt.Errorf("%w: ingredients must not be empty", ErrInvalidRequest)
	}
	if req.TimeMinutes <= 0 {
		return nil, meta, fmt.Errorf("%w: tiempo_min must be > 0, got %d", ErrInvalidRequest, req.TimeMinutes)
	}

	prompt, err := BuildRecipePrompt(req, retry)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to build recipe prompt: %w", err)
	}

	start := time.Now()
	resp, err := c.gen.GenerateJSON(ctx, prompt, recipe.ResponseSchema())
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return nil, meta, err
	}

	rec, err := recipe.Decode([]byte(resp.Content))
	if err != nil {
		return nil, meta, err
	}
	return rec, meta, nil
}

// GenerateWeeklyPlan validates the request, runs one generation call
// and returns the validated plan. Besides the model invariants, the
// result must match the requested week start and meals per day.
func (c *Chef) GenerateWeeklyPlan(ctx context.Context, req PlanRequest, retry bool) (*plan.WeeklyPlan, shared.AgentMeta, error) {
	meta := shared.AgentMeta{AgentName: "MenuPlanner"}

	if req.MealsPerDay < 1 {
		return nil, meta, fmt.Errorf("%w: comidas_por_dia must be >= 1, got %d", ErrInvalidRequest, req.MealsPerDay)
	}
	if req.CaloriesPerDay <= 0 {
		return nil, meta, fmt.Errorf("%w: calorias_por_dia must be > 0, got %d", ErrInvalidRequest, req.CaloriesPerDay)
	}
	if req.WeekStart.IsZero() {
		return nil, meta, fmt.Errorf("%w: week_start must be set", ErrInvalidRequest)
	}

	prompt, err := BuildWeeklyPlanPrompt(req, retry)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to build weekly plan prompt: %w", err)
	}

	start := time.Now()
	resp, err := c.gen.GenerateJSON(ctx, prompt, plan.ResponseSchema())
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return nil, meta, err
	}

	p, err := plan.Decode([]byte(resp.Content))
	if err != nil {
		return nil, meta, err
	}
	if !p.WeekStart.Equal(req.WeekStart) {
		return nil, meta, fmt.Errorf("generated plan starts at %s, requested %s", p.WeekStart, req.WeekStart)
	}
	if p.MealsPerDay != req.MealsPerDay {
		return nil, meta, fmt.Errorf("generated plan has %d meals per day, requested %d", p.MealsPerDay, req.MealsPerDay)
	}
	return p, meta, nil
}
