package metrics

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"personal-chef/internal/shared"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE execution_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_name TEXT NOT NULL,
			model TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL,
			completion_tokens INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			timestamp TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestStore_RecordAndDailyUsage(t *testing.T) {
	store := NewStore(setupDB(t))

	metrics := []ExecutionMetric{
		{AgentName: "RecipeChef", Model: "gemini-2.5-flash", PromptTokens: 100, CompletionTokens: 50, LatencyMS: 1200},
		{AgentName: "MenuPlanner", Model: "gemini-2.5-flash", PromptTokens: 300, CompletionTokens: 400, LatencyMS: 4000},
	}
	for _, m := range metrics {
		if err := store.Record(m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	usage, err := store.GetDailyUsage(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("expected 1 day of usage, got %d", len(usage))
	}
	day := usage[0]
	if day.TotalPrompt != 400 || day.TotalCompletion != 450 || day.TotalExecution != 2 {
		t.Errorf("unexpected totals: %+v", day)
	}
}

func TestStore_RecordMeta(t *testing.T) {
	store := NewStore(setupDB(t))

	// Calls that never reached the backend carry no usage.
	err := store.RecordMeta(shared.AgentMeta{AgentName: "RecipeChef"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	usage, err := store.GetDailyUsage(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(usage) != 0 {
		t.Errorf("zero-usage meta must not be recorded: %+v", usage)
	}

	err = store.RecordMeta(shared.AgentMeta{
		AgentName: "RecipeChef",
		Usage:     shared.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30, Model: "gemini-2.5-flash"},
		Latency:   900 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	usage, err = store.GetDailyUsage(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalPrompt != 10 {
		t.Errorf("unexpected usage: %+v", usage)
	}
}

func TestStore_Cleanup(t *testing.T) {
	store := NewStore(setupDB(t))

	old := ExecutionMetric{AgentName: "RecipeChef", Model: "m", PromptTokens: 1, CompletionTokens: 1,
		Timestamp: time.Now().AddDate(0, 0, -40)}
	recent := ExecutionMetric{AgentName: "RecipeChef", Model: "m", PromptTokens: 1, CompletionTokens: 1}
	if err := store.Record(old); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(recent); err != nil {
		t.Fatal(err)
	}

	affected, err := store.Cleanup(30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 1 {
		t.Errorf("expected 1 deleted row, got %d", affected)
	}
}

func TestMapUsage(t *testing.T) {
	m := MapUsage("Clipper", shared.TokenUsage{PromptTokens: 5, CompletionTokens: 7, Model: "gemini-2.5-flash"}, 1500*time.Millisecond)
	if m.AgentName != "Clipper" || m.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected metric: %+v", m)
	}
	if m.LatencyMS != 1500 {
		t.Errorf("unexpected latency: %d", m.LatencyMS)
	}
	if m.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
}
