// Package recipe defines the strict data model for a single generated
// recipe. The wire format matches the original recetario contract:
// Spanish JSON keys, single-serving quantities, "receta" discriminator.
package recipe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"personal-chef/internal/schema"
)

// Kind is the fixed discriminator carried by every recipe document.
const Kind = "receta"

// Ingredient is one ingredient of a recipe. Quantities are always
// expressed for exactly one person.
type Ingredient struct {
	Name     string  `json:"nombre"`
	Quantity float64 `json:"cantidad"`
	Unit     string  `json:"unidad"`
	Note     string  `json:"nota,omitempty"`
}

// Recipe is a validated single-serving recipe.
type Recipe struct {
	Kind         string       `json:"tipo"`
	Title        string       `json:"titulo"`
	BaseServings int          `json:"raciones_base"`
	TimeMinutes  int          `json:"tiempo_min"`
	Ingredients  []Ingredient `json:"ingredientes"`
	Steps        []string     `json:"pasos"`
}

// Validate checks the structural invariants of a parsed recipe.
func (r *Recipe) Validate() error {
	if r.Kind != Kind {
		return schema.Violationf("tipo", "must be %q, got %q", Kind, r.Kind)
	}
	if strings.TrimSpace(r.Title) == "" {
		return schema.Violationf("titulo", "must be a non-empty string")
	}
	if r.BaseServings <= 0 {
		return schema.Violationf("raciones_base", "must be > 0, got %d", r.BaseServings)
	}
	if r.TimeMinutes <= 0 {
		return schema.Violationf("tiempo_min", "must be > 0, got %d", r.TimeMinutes)
	}
	if len(r.Ingredients) == 0 {
		return schema.Violationf("ingredientes", "must not be empty")
	}
	for i, ing := range r.Ingredients {
		if err := ing.validate(fmt.Sprintf("ingredientes[%d]", i)); err != nil {
			return err
		}
	}
	if len(r.Steps) == 0 {
		return schema.Violationf("pasos", "must not be empty")
	}
	for i, step := range r.Steps {
		if strings.TrimSpace(step) == "" {
			return schema.Violationf(fmt.Sprintf("pasos[%d]", i), "must be a non-empty string")
		}
	}
	return nil
}

func (ing Ingredient) validate(path string) error {
	if strings.TrimSpace(ing.Name) == "" {
		return schema.Violationf(path+".nombre", "must be a non-empty string")
	}
	if ing.Quantity <= 0 {
		return schema.Violationf(path+".cantidad", "must be > 0, got %v", ing.Quantity)
	}
	return nil
}

// Decode strictly parses raw JSON into a validated Recipe.
func Decode(data []byte) (*Recipe, error) {
	var r Recipe
	if err := schema.Decode(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CanonicalJSON serializes the recipe deterministically: stable key
// order (struct order) and no extraneous fields.
func (r *Recipe) CanonicalJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recipe: %w", err)
	}
	return string(data), nil
}

// FormatQuantity renders a quantity without a trailing ".0" so that
// 200*3 shows as "600" and a half unit as "0.5".
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// Markdown renders the recipe the way the reference UI shows it.
func (r *Recipe) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# " + r.Title + "\n\n")
	sb.WriteString("### 🛒 Ingredientes (para 1 persona)\n")
	for _, ing := range r.Ingredients {
		sb.WriteString(fmt.Sprintf("- %s %s de %s", FormatQuantity(ing.Quantity), ing.Unit, ing.Name))
		if ing.Note != "" {
			sb.WriteString(" (" + ing.Note + ")")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n### 👩‍🍳 Instrucciones a seguir\n")
	for i, step := range r.Steps {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}
	return sb.String()
}

// BaseIngredientsText joins the ingredient names for the saved-record
// metadata column.
func (r *Recipe) BaseIngredientsText() string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	return strings.Join(names, ", ")
}
