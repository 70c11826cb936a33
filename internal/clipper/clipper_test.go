package clipper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"personal-chef/internal/llm"
	"personal-chef/internal/shared"
)

type mockGenerator struct {
	content    string
	lastPrompt string
}

func (m *mockGenerator) GenerateJSON(_ context.Context, prompt string, _ *genai.Schema) (llm.ContentResponse, error) {
	m.lastPrompt = prompt
	return llm.ContentResponse{Content: m.content, Usage: shared.TokenUsage{TotalTokens: 5}}, nil
}

const pageHTML = `<html>
<head><title>Recetas</title><style>body { color: red }</style></head>
<body>
<nav>Inicio | Recetas | Contacto</nav>
<script>trackVisit();</script>
<h1>Paella de verduras</h1>
<p>Arroz, pimiento y alcachofa para 4 personas.</p>
<div class="ads">Compra ya</div>
<footer>© Recetas SA</footer>
</body>
</html>`

func TestExtractText(t *testing.T) {
	text, err := ExtractText(strings.NewReader(pageHTML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(text, "Paella de verduras") {
		t.Errorf("missing page content: %q", text)
	}
	if !strings.Contains(text, "para 4 personas") {
		t.Errorf("missing page content: %q", text)
	}
	for _, noise := range []string{"trackVisit", "color: red", "Inicio | Recetas", "Recetas SA", "Compra ya"} {
		if strings.Contains(text, noise) {
			t.Errorf("noise %q must be stripped: %q", noise, text)
		}
	}
}

func TestClipURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(pageHTML))
	}))
	defer srv.Close()

	gen := &mockGenerator{content: `{
		"tipo": "receta",
		"titulo": "Paella de verduras",
		"raciones_base": 1,
		"tiempo_min": 40,
		"ingredientes": [{"nombre": "arroz", "cantidad": 90, "unidad": "g"}],
		"pasos": ["Sofríe las verduras.", "Añade el arroz y el caldo."]
	}`}
	c := NewClipper(gen)

	rec, meta, err := c.ClipURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Title != "Paella de verduras" || rec.BaseServings != 1 {
		t.Errorf("unexpected recipe: %+v", rec)
	}
	if meta.AgentName != "Clipper" || meta.Usage.TotalTokens != 5 {
		t.Errorf("unexpected meta: %+v", meta)
	}
	if !strings.Contains(gen.lastPrompt, "Paella de verduras") {
		t.Error("page text must reach the prompt")
	}
}

func TestClipURL_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClipper(&mockGenerator{})
	if _, _, err := c.ClipURL(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 404")
	}
}
