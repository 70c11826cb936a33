// Package plan defines the strict data model for a weekly menu: seven
// consecutive days, a fixed number of meals per day and a consolidated
// single-person shopping list. Wire format follows the original
// recetario contract ("menu_semanal" discriminator, Spanish keys).
package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"personal-chef/internal/recipe"
	"personal-chef/internal/schema"
)

// Kind is the fixed discriminator carried by every weekly plan document.
const Kind = "menu_semanal"

// DaysPerWeek is the exact number of days a plan must cover.
const DaysPerWeek = 7

// PlanRecipe is the reduced recipe embedded inside a day's meal: no
// discriminator and no base-servings field.
type PlanRecipe struct {
	Title       string              `json:"titulo"`
	TimeMinutes int                 `json:"tiempo_min"`
	Ingredients []recipe.Ingredient `json:"ingredientes"`
	Steps       []string            `json:"pasos"`
}

// Meal pairs a free-text meal category with its recipe.
type Meal struct {
	Type   string     `json:"tipo"`
	Recipe PlanRecipe `json:"receta"`
}

// Day holds the meals planned for one calendar date.
type Day struct {
	Date  Date   `json:"fecha"`
	Meals []Meal `json:"comidas"`
}

// ShoppingItem is one consolidated shopping list entry, quantity summed
// across the whole week for a single person.
type ShoppingItem struct {
	Name     string   `json:"nombre"`
	Quantity float64  `json:"cantidad"`
	Unit     string   `json:"unidad"`
	Notes    []string `json:"notas,omitempty"`
}

// WeeklyPlan is a validated seven-day menu.
type WeeklyPlan struct {
	Kind         string         `json:"tipo"`
	WeekStart    Date           `json:"week_start"`
	MealsPerDay  int            `json:"comidas_por_dia"`
	Days         []Day          `json:"dias"`
	ShoppingList []ShoppingItem `json:"lista_compra"`
}

// Validate checks the structural invariants of a parsed weekly plan:
// exactly seven consecutive days from week_start, exactly meals_per_day
// meals each day, positive single-person quantities throughout.
func (p *WeeklyPlan) Validate() error {
	if p.Kind != Kind {
		return schema.Violationf("tipo", "must be %q, got %q", Kind, p.Kind)
	}
	if p.WeekStart.IsZero() {
		return schema.Violationf("week_start", "must be a YYYY-MM-DD date")
	}
	if p.MealsPerDay <= 1 {
		return schema.Violationf("comidas_por_dia", "must be > 1, got %d", p.MealsPerDay)
	}
	if len(p.Days) != DaysPerWeek {
		return schema.Violationf("dias", "must contain exactly %d days, got %d", DaysPerWeek, len(p.Days))
	}
	for i, day := range p.Days {
		path := fmt.Sprintf("dias[%d]", i)
		if want := p.WeekStart.AddDays(i); !day.Date.Equal(want) {
			return schema.Violationf(path+".fecha", "must be %s (week_start + %d), got %s", want, i, day.Date)
		}
		if len(day.Meals) != p.MealsPerDay {
			return schema.Violationf(path+".comidas", "must contain exactly %d meals, got %d", p.MealsPerDay, len(day.Meals))
		}
		for j, meal := range day.Meals {
			if err := meal.validate(fmt.Sprintf("%s.comidas[%d]", path, j)); err != nil {
				return err
			}
		}
	}
	for i, item := range p.ShoppingList {
		path := fmt.Sprintf("lista_compra[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			return schema.Violationf(path+".nombre", "must be a non-empty string")
		}
		if item.Quantity <= 0 {
			return schema.Violationf(path+".cantidad", "must be > 0, got %v", item.Quantity)
		}
	}
	return nil
}

func (m Meal) validate(path string) error {
	if strings.TrimSpace(m.Type) == "" {
		return schema.Violationf(path+".tipo", "must be a non-empty string")
	}
	r := m.Recipe
	if strings.TrimSpace(r.Title) == "" {
		return schema.Violationf(path+".receta.titulo", "must be a non-empty string")
	}
	if r.TimeMinutes <= 0 {
		return schema.Violationf(path+".receta.tiempo_min", "must be > 0, got %d", r.TimeMinutes)
	}
	for i, ing := range r.Ingredients {
		ingPath := fmt.Sprintf("%s.receta.ingredientes[%d]", path, i)
		if strings.TrimSpace(ing.Name) == "" {
			return schema.Violationf(ingPath+".nombre", "must be a non-empty string")
		}
		if ing.Quantity <= 0 {
			return schema.Violationf(ingPath+".cantidad", "must be > 0, got %v", ing.Quantity)
		}
	}
	for i, step := range r.Steps {
		if strings.TrimSpace(step) == "" {
			return schema.Violationf(fmt.Sprintf("%s.receta.pasos[%d]", path, i), "must be a non-empty string")
		}
	}
	return nil
}

// Decode strictly parses raw JSON into a validated WeeklyPlan.
func Decode(data []byte) (*WeeklyPlan, error) {
	var p WeeklyPlan
	if err := schema.Decode(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CanonicalJSON serializes the plan deterministically.
func (p *WeeklyPlan) CanonicalJSON() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal weekly plan: %w", err)
	}
	return string(data), nil
}

// ShoppingListJSON serializes just the shopping list, as stored in its
// own persistence column.
func (p *WeeklyPlan) ShoppingListJSON() (string, error) {
	data, err := json.Marshal(p.ShoppingList)
	if err != nil {
		return "", fmt.Errorf("failed to marshal shopping list: %w", err)
	}
	return string(data), nil
}

// RenderShoppingItem formats one shopping line scaled to peopleCount.
// Scaling happens only at render time; stored quantities stay
// single-person.
func RenderShoppingItem(item ShoppingItem, peopleCount int) string {
	if peopleCount < 1 {
		peopleCount = 1
	}
	line := fmt.Sprintf("- %s %s de %s",
		recipe.FormatQuantity(item.Quantity*float64(peopleCount)), item.Unit, item.Name)
	if len(item.Notes) > 0 {
		line += " (" + strings.Join(item.Notes, "; ") + ")"
	}
	return line
}

// Markdown renders the plan with its shopping list scaled to
// peopleCount, mirroring the reference UI.
func (p *WeeklyPlan) Markdown(peopleCount int) string {
	var sb strings.Builder
	sb.WriteString("### 📅 Menú semanal (1 persona)\n")
	for _, day := range p.Days {
		sb.WriteString("\n#### " + day.Date.String() + "\n")
		for _, meal := range day.Meals {
			sb.WriteString(fmt.Sprintf("**%s**: %s\n", capitalize(meal.Type), meal.Recipe.Title))
		}
	}
	sb.WriteString("\n---\n### 🧺 Lista de la compra\n")
	for _, item := range p.ShoppingList {
		sb.WriteString(RenderShoppingItem(item, peopleCount) + "\n")
	}
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
