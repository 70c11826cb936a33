package chef

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"personal-chef/internal/llm"
	"personal-chef/internal/plan"
	"personal-chef/internal/schema"
	"personal-chef/internal/shared"
)

const (
	retryDirective     = "COMPLETAMENTE DISTINTA"
	planRetryDirective = "COMPLETAMENTE DISTINTO"
)

type mockGenerator struct {
	content string
	err     error

	calls      int
	lastPrompt string
	lastSchema *genai.Schema
}

func (m *mockGenerator) GenerateJSON(_ context.Context, prompt string, responseSchema *genai.Schema) (llm.ContentResponse, error) {
	m.calls++
	m.lastPrompt = prompt
	m.lastSchema = responseSchema
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{
		Content: m.content,
		Usage:   shared.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30, Model: "mock"},
	}, nil
}

const validRecipeJSON = `{
	"tipo": "receta",
	"titulo": "Tortilla francesa",
	"raciones_base": 1,
	"tiempo_min": 10,
	"ingredientes": [{"nombre": "huevo", "cantidad": 2, "unidad": "ud"}],
	"pasos": ["Bate los huevos.", "Cuaja en la sartén."]
}`

func validPlanJSON(t *testing.T, weekStart string, mealsPerDay int) string {
	t.Helper()
	start, err := plan.ParseDate(weekStart)
	if err != nil {
		t.Fatal(err)
	}

	var days []string
	for i := 0; i < plan.DaysPerWeek; i++ {
		var meals []string
		for j := 0; j < mealsPerDay; j++ {
			meals = append(meals, fmt.Sprintf(`{
				"tipo": "comida",
				"receta": {
					"titulo": "Plato %d-%d",
					"tiempo_min": 20,
					"ingredientes": [{"nombre": "arroz", "cantidad": 100, "unidad": "g"}],
					"pasos": ["Cuece el arroz."]
				}
			}`, i, j))
		}
		days = append(days, fmt.Sprintf(`{"fecha": "%s", "comidas": [%s]}`,
			start.AddDays(i), strings.Join(meals, ",")))
	}

	return fmt.Sprintf(`{
		"tipo": "menu_semanal",
		"week_start": "%s",
		"comidas_por_dia": %d,
		"dias": [%s],
		"lista_compra": [{"nombre": "arroz", "cantidad": 700, "unidad": "g"}]
	}`, weekStart, mealsPerDay, strings.Join(days, ","))
}

func TestBuildRecipePrompt(t *testing.T) {
	req := RecipeRequest{Ingredients: "pollo, arroz", TimeMinutes: 30, Constraints: "sin lactosa"}

	prompt, err := BuildRecipePrompt(req, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"pollo, arroz", "30 minutos", "sin lactosa", `"receta"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, retryDirective) {
		t.Error("first attempt must not carry the variation directive")
	}

	retryPrompt, err := BuildRecipePrompt(req, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(retryPrompt, retryDirective) {
		t.Error("retry prompt must demand a different recipe")
	}

	// The builder is a pure function: out-of-range parameters are the
	// caller's problem, not the template's.
	outOfRange, err := BuildRecipePrompt(RecipeRequest{Ingredients: "pollo", TimeMinutes: 0}, false)
	if err != nil || outOfRange == "" {
		t.Errorf("builder must still render for out-of-range input: %q, %v", outOfRange, err)
	}
}

func TestBuildWeeklyPlanPrompt(t *testing.T) {
	req := PlanRequest{
		Constraints:    "vegetariano",
		MealsPerDay:    3,
		WeekStart:      mustDate(t, "2026-03-02"),
		CaloriesPerDay: 2000,
	}
	prompt, err := BuildWeeklyPlanPrompt(req, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"2026-03-02", "vegetariano", "2000", "menu_semanal"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, planRetryDirective) {
		t.Error("first attempt must not carry the variation directive")
	}

	retryPrompt, err := BuildWeeklyPlanPrompt(req, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(retryPrompt, planRetryDirective) {
		t.Error("retry prompt must demand a different menu")
	}
	if retryPrompt == prompt {
		t.Error("rejection must not regenerate with an identical prompt")
	}
}

func TestGenerateRecipe(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		gen := &mockGenerator{content: validRecipeJSON}
		c := New(gen)

		rec, meta, err := c.GenerateRecipe(ctx, RecipeRequest{Ingredients: "huevos", TimeMinutes: 10}, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Title != "Tortilla francesa" {
			t.Errorf("unexpected title: %q", rec.Title)
		}
		if gen.calls != 1 {
			t.Errorf("expected exactly one generation call, got %d", gen.calls)
		}
		if gen.lastSchema == nil {
			t.Error("generation must be schema-constrained")
		}
		if meta.AgentName != "RecipeChef" || meta.Usage.TotalTokens != 30 {
			t.Errorf("unexpected meta: %+v", meta)
		}
	})

	t.Run("typical generation", func(t *testing.T) {
		gen := &mockGenerator{content: `{"tipo":"receta","titulo":"Arroz con pollo","raciones_base":1,"tiempo_min":30,"ingredientes":[{"nombre":"pollo","cantidad":150,"unidad":"g"}],"pasos":["Cocinar el arroz","Saltear el pollo"]}`}
		c := New(gen)

		rec, _, err := c.GenerateRecipe(ctx, RecipeRequest{Ingredients: "pollo, arroz", TimeMinutes: 30, Constraints: "sin lactosa"}, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.TimeMinutes != 30 {
			t.Errorf("expected 30 minutes, got %d", rec.TimeMinutes)
		}
		if len(rec.Steps) != 2 {
			t.Errorf("expected 2 steps, got %d", len(rec.Steps))
		}
	})

	t.Run("empty ingredients rejected before backend call", func(t *testing.T) {
		gen := &mockGenerator{content: validRecipeJSON}
		c := New(gen)

		_, _, err := c.GenerateRecipe(ctx, RecipeRequest{Ingredients: "  ", TimeMinutes: 10}, false)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
		if gen.calls != 0 {
			t.Errorf("backend must not be called, got %d calls", gen.calls)
		}
	})

	t.Run("zero time rejected before backend call", func(t *testing.T) {
		gen := &mockGenerator{content: validRecipeJSON}
		c := New(gen)

		_, _, err := c.GenerateRecipe(ctx, RecipeRequest{Ingredients: "huevos", TimeMinutes: 0}, false)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
		if gen.calls != 0 {
			t.Errorf("backend must not be called, got %d calls", gen.calls)
		}
	})

	t.Run("backend error passes through", func(t *testing.T) {
		gen := &mockGenerator{err: fmt.Errorf("%w: boom", llm.ErrBackend)}
		c := New(gen)

		_, _, err := c.GenerateRecipe(ctx, RecipeRequest{Ingredients: "huevos", TimeMinutes: 10}, false)
		if !errors.Is(err, llm.ErrBackend) {
			t.Fatalf("expected backend error, got %v", err)
		}
	})

	t.Run("malformed answer is terminal for the attempt", func(t *testing.T) {
		gen := &mockGenerator{content: `{"tipo": "receta"}`}
		c := New(gen)

		_, _, err := c.GenerateRecipe(ctx, RecipeRequest{Ingredients: "huevos", TimeMinutes: 10}, false)
		if !schema.IsViolation(err) {
			t.Fatalf("expected violation, got %v", err)
		}
		if gen.calls != 1 {
			t.Errorf("no retry on malformed output, got %d calls", gen.calls)
		}
	})
}

func TestGenerateWeeklyPlan(t *testing.T) {
	ctx := context.Background()
	req := PlanRequest{MealsPerDay: 2, WeekStart: mustDate(t, "2026-03-02"), CaloriesPerDay: 2000}

	t.Run("success", func(t *testing.T) {
		gen := &mockGenerator{content: validPlanJSON(t, "2026-03-02", 2)}
		c := New(gen)

		p, meta, err := c.GenerateWeeklyPlan(ctx, req, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(p.Days) != plan.DaysPerWeek {
			t.Errorf("expected 7 days, got %d", len(p.Days))
		}
		if meta.AgentName != "MenuPlanner" {
			t.Errorf("unexpected agent name: %q", meta.AgentName)
		}
		if strings.Contains(gen.lastPrompt, planRetryDirective) {
			t.Error("first attempt must not carry the variation directive")
		}
	})

	t.Run("retry reaches the prompt", func(t *testing.T) {
		gen := &mockGenerator{content: validPlanJSON(t, "2026-03-02", 2)}
		c := New(gen)

		if _, _, err := c.GenerateWeeklyPlan(ctx, req, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(gen.lastPrompt, planRetryDirective) {
			t.Error("retry must add the variation directive to the prompt")
		}
	})

	t.Run("invalid parameters rejected before backend call", func(t *testing.T) {
		cases := []struct {
			name string
			req  PlanRequest
		}{
			{"zero meals", PlanRequest{MealsPerDay: 0, WeekStart: mustDate(t, "2026-03-02"), CaloriesPerDay: 2000}},
			{"zero calories", PlanRequest{MealsPerDay: 2, WeekStart: mustDate(t, "2026-03-02"), CaloriesPerDay: 0}},
			{"missing week start", PlanRequest{MealsPerDay: 2, CaloriesPerDay: 2000}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				gen := &mockGenerator{content: validPlanJSON(t, "2026-03-02", 2)}
				c := New(gen)

				_, _, err := c.GenerateWeeklyPlan(ctx, tc.req, false)
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("expected ErrInvalidRequest, got %v", err)
				}
				if gen.calls != 0 {
					t.Errorf("backend must not be called, got %d calls", gen.calls)
				}
			})
		}
	})

	t.Run("week start mismatch rejected", func(t *testing.T) {
		gen := &mockGenerator{content: validPlanJSON(t, "2026-03-09", 2)}
		c := New(gen)

		if _, _, err := c.GenerateWeeklyPlan(ctx, req, false); err == nil {
			t.Fatal("expected error on week start mismatch")
		}
	})

	t.Run("meals per day mismatch rejected", func(t *testing.T) {
		gen := &mockGenerator{content: validPlanJSON(t, "2026-03-02", 3)}
		c := New(gen)

		if _, _, err := c.GenerateWeeklyPlan(ctx, req, false); err == nil {
			t.Fatal("expected error on meals per day mismatch")
		}
	})
}

func mustDate(t *testing.T, s string) plan.Date {
	t.Helper()
	d, err := plan.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
