// Package clipper imports a recipe from a web page. The page text is
// extracted with goquery, normalized by the LLM into the strict recipe
// schema and handed to the session as a regular candidate.
package clipper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"personal-chef/internal/llm"
	"personal-chef/internal/recipe"
	"personal-chef/internal/shared"
)

const clipPromptFormat = `Actúa como un chef experto que transcribe recetas.

A continuación tienes el texto extraído de una página web con una receta.
Normalízala a UNA receta para UNA sola persona (raciones_base=1),
ajustando las cantidades si la receta original era para más personas.

Responde ÚNICAMENTE en formato JSON que cumpla este esquema (no añadas comentarios ni markdown fuera del JSON):
- tipo: "receta"
- titulo: string
- raciones_base: 1
- tiempo_min: entero > 0
- ingredientes: lista de objetos con nombre (string), cantidad (número > 0, para UNA persona), unidad (string) y nota (string opcional)
- pasos: lista de strings.

Texto de la página:
%s`

// Clipper fetches URLs and turns their content into recipe candidates.
type Clipper struct {
	gen        llm.TextGenerator
	httpClient *http.Client
}

// NewClipper creates a new Clipper instance.
func NewClipper(gen llm.TextGenerator) *Clipper {
	return &Clipper{
		gen: gen,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ClipURL fetches the URL and extracts a validated single-serving recipe.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*recipe.Recipe, shared.AgentMeta, error) {
	meta := shared.AgentMeta{AgentName: "Clipper"}

	content, err := c.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(clipPromptFormat, content)

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

func (c *Clipper) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return ExtractText(resp.Body)
}

// ExtractText strips scripts, styles and navigation chrome from an HTML
// document and returns the remaining body text.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens.
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}
