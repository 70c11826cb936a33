package plan

import (
	"github.com/google/generative-ai-go/genai"

	"personal-chef/internal/recipe"
)

// ResponseSchema is the machine-checkable contract sent to the backend
// alongside the weekly plan prompt.
func ResponseSchema() *genai.Schema {
	planRecipe := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"titulo":     {Type: genai.TypeString},
			"tiempo_min": {Type: genai.TypeInteger, Description: "Entero > 0"},
			"ingredientes": {
				Type:  genai.TypeArray,
				Items: recipe.IngredientSchema(),
			},
			"pasos": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"titulo", "tiempo_min", "ingredientes", "pasos"},
	}

	meal := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"tipo": {
				Type:        genai.TypeString,
				Description: "desayuno, comida, cena, snack, etc.",
			},
			"receta": planRecipe,
		},
		Required: []string{"tipo", "receta"},
	}

	day := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"fecha": {
				Type:        genai.TypeString,
				Description: `Fecha en formato "YYYY-MM-DD"`,
			},
			"comidas": {Type: genai.TypeArray, Items: meal},
		},
		Required: []string{"fecha", "comidas"},
	}

	shoppingItem := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"nombre": {Type: genai.TypeString},
			"cantidad": {
				Type:        genai.TypeNumber,
				Description: "Para UNA persona sumando todo el menú, > 0",
			},
			"unidad": {Type: genai.TypeString},
			"notas": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				Nullable: true,
			},
		},
		Required: []string{"nombre", "cantidad", "unidad"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"tipo": {
				Type: genai.TypeString,
				Enum: []string{Kind},
			},
			"week_start": {
				Type:        genai.TypeString,
				Description: `Fecha de inicio en formato "YYYY-MM-DD"`,
			},
			"comidas_por_dia": {Type: genai.TypeInteger},
			"dias":            {Type: genai.TypeArray, Items: day},
			"lista_compra":    {Type: genai.TypeArray, Items: shoppingItem},
		},
		Required: []string{"tipo", "week_start", "comidas_por_dia", "dias", "lista_compra"},
	}
}
