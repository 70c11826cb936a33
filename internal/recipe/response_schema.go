package recipe

import (
	"github.com/google/generative-ai-go/genai"
)

// IngredientSchema is the response schema fragment for one ingredient.
// It is shared with the weekly plan schema.
func IngredientSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"nombre": {
				Type:        genai.TypeString,
				Description: "Nombre del ingrediente, en singular y sin mayúsculas innecesarias",
			},
			"cantidad": {
				Type:        genai.TypeNumber,
				Description: "Cantidad numérica referida a UNA persona",
			},
			"unidad": {
				Type:        genai.TypeString,
				Description: "Unidad de medida, por ejemplo: g, ml, ud, cda",
			},
			"nota": {
				Type:        genai.TypeString,
				Description: "Detalle opcional, por ejemplo: picado, en rodajas",
				Nullable:    true,
			},
		},
		Required: []string{"nombre", "cantidad", "unidad"},
	}
}

// ResponseSchema is the machine-checkable contract sent to the backend
// alongside the recipe prompt.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"tipo": {
				Type: genai.TypeString,
				Enum: []string{Kind},
			},
			"titulo": {
				Type: genai.TypeString,
			},
			"raciones_base": {
				Type:        genai.TypeInteger,
				Description: "Siempre 1",
			},
			"tiempo_min": {
				Type:        genai.TypeInteger,
				Description: "Tiempo total en minutos, entero > 0",
			},
			"ingredientes": {
				Type:  genai.TypeArray,
				Items: IngredientSchema(),
			},
			"pasos": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"tipo", "titulo", "raciones_base", "tiempo_min", "ingredientes", "pasos"},
	}
}
