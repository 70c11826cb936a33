// Package cookbook is the persistence gateway for accepted artifacts.
// Records are append-only from this core's perspective: saved once on
// acceptance, never mutated, listed most-recent-first.
package cookbook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"personal-chef/internal/plan"
	"personal-chef/internal/recipe"
)

// ErrStorage wraps persistence I/O failures.
var ErrStorage = errors.New("storage error")

// SavedRecipe is one stored recipe record.
type SavedRecipe struct {
	Title      string
	RecipeJSON string
	SavedAt    time.Time
}

// SavedPlan is one stored weekly plan record.
type SavedPlan struct {
	WeekStart        string
	MealsPerDay      int
	PlanJSON         string
	ShoppingListJSON string
	SavedAt          time.Time
}

// Repository stores recipes and weekly plans in sqlite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveRecipe inserts an accepted recipe with its request metadata.
func (r *Repository) SaveRecipe(ctx context.Context, title, baseIngredients string, timeMinutes int, recipeJSON string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recetas_guardadas (titulo, ingredientes_base, tiempo, receta_completa, fecha)
		VALUES (?, ?, ?, ?, ?)`,
		title, baseIngredients, timeMinutes, recipeJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert recipe: %v", ErrStorage, err)
	}
	return nil
}

// ListRecipes returns all saved recipes, most recent first.
func (r *Repository) ListRecipes(ctx context.Context) ([]SavedRecipe, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT titulo, fecha, receta_completa
		FROM recetas_guardadas
		ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list recipes: %v", ErrStorage, err)
	}
	defer rows.Close()

	var records []SavedRecipe
	for rows.Next() {
		var rec SavedRecipe
		if err := rows.Scan(&rec.Title, &rec.SavedAt, &rec.RecipeJSON); err != nil {
			return nil, fmt.Errorf("%w: failed to scan recipe row: %v", ErrStorage, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate recipe rows: %v", ErrStorage, err)
	}
	return records, nil
}

// SaveWeeklyPlan inserts an accepted weekly plan.
func (r *Repository) SaveWeeklyPlan(ctx context.Context, weekStart string, mealsPerDay int, planJSON, shoppingListJSON string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO menus_semanales (week_start, comidas_por_dia, menu_json, lista_compra_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		weekStart, mealsPerDay, planJSON, shoppingListJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert weekly plan: %v", ErrStorage, err)
	}
	return nil
}

// ListWeeklyPlans returns all saved plans, most recent first.
func (r *Repository) ListWeeklyPlans(ctx context.Context) ([]SavedPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT week_start, comidas_por_dia, menu_json, lista_compra_json, created_at
		FROM menus_semanales
		ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list weekly plans: %v", ErrStorage, err)
	}
	defer rows.Close()

	var records []SavedPlan
	for rows.Next() {
		var p SavedPlan
		if err := rows.Scan(&p.WeekStart, &p.MealsPerDay, &p.PlanJSON, &p.ShoppingListJSON, &p.SavedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan plan row: %v", ErrStorage, err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate plan rows: %v", ErrStorage, err)
	}
	return records, nil
}

// Decode re-validates the stored payload. Records predating the strict
// schema may hold raw markdown instead of canonical JSON; callers
// should fall back to RenderRaw when this fails.
func (s SavedRecipe) Decode() (*recipe.Recipe, error) {
	return recipe.Decode([]byte(s.RecipeJSON))
}

// IsJSON sniffs whether the stored payload looks like a canonical JSON
// document rather than legacy free text.
func (s SavedRecipe) IsJSON() bool {
	return strings.HasPrefix(strings.TrimSpace(s.RecipeJSON), "{")
}

// Markdown renders the stored recipe, degrading to the raw payload for
// records that no longer pass the strict schema.
func (s SavedRecipe) Markdown() string {
	if s.IsJSON() {
		if rec, err := s.Decode(); err == nil {
			return rec.Markdown()
		}
	}
	return s.RecipeJSON
}

// Decode re-validates the stored plan payload.
func (s SavedPlan) Decode() (*plan.WeeklyPlan, error) {
	return plan.Decode([]byte(s.PlanJSON))
}

// Markdown renders the stored plan for one person, or a placeholder
// when the payload no longer validates.
func (s SavedPlan) Markdown() string {
	p, err := s.Decode()
	if err != nil {
		return "No se ha podido mostrar el menú guardado."
	}
	return p.Markdown(1)
}
