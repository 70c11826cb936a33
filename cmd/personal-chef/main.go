package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"personal-chef/internal/chef"
	"personal-chef/internal/config"
	"personal-chef/internal/cookbook"
	"personal-chef/internal/database"
	"personal-chef/internal/llm"
	"personal-chef/internal/metrics"
	"personal-chef/internal/plan"
	"personal-chef/internal/session"
	"personal-chef/internal/shared"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	gen, closeGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	defer closeGen()

	book := cookbook.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)
	sess := session.New(chef.New(gen), book)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "receta":
		runRecipe(ctx, sess, metricsStore, os.Args[2:])
	case "menu":
		runPlan(ctx, sess, metricsStore, os.Args[2:])
	case "recetas":
		runListRecipes(ctx, book)
	case "menus":
		runListPlans(ctx, book)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := metricsStore.Cleanup(*days)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, func() error, error) {
	if cfg.Provider == config.ProviderGroq {
		return llm.NewGroqClient(cfg), func() error { return nil }, nil
	}
	client, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

func runRecipe(ctx context.Context, sess *session.Session, store *metrics.Store, args []string) {
	fs := flag.NewFlagSet("receta", flag.ExitOnError)
	ingredientes := fs.String("ingredientes", "", "Ingredientes disponibles, p. ej. \"pollo, arroz, cebolla\"")
	tiempo := fs.Int("tiempo", 30, "Tiempo disponible en minutos")
	comentarios := fs.String("comentarios", "", "Alergias o comentarios, p. ej. \"sin lactosa\"")
	fs.Parse(args)

	req := chef.RecipeRequest{
		Ingredients: *ingredientes,
		TimeMinutes: *tiempo,
		Constraints: *comentarios,
	}

	fmt.Println("🧑‍🍳 El chef está pensando...")
	rec, meta, err := sess.RequestRecipe(ctx, req)
	recordMeta(store, meta)
	if err != nil {
		fail(err)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println()
		fmt.Println(rec.Markdown())
		fmt.Print("¿Te quedas con esta receta? [s = guardar / n = otra / q = salir] ")

		line, _ := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s", "si", "sí":
			if err := sess.AcceptRecipe(ctx); err != nil {
				fail(err)
			}
			fmt.Println("✅ ¡Receta guardada con éxito!")
			return
		case "n", "no":
			fmt.Println("🧑‍🍳 Buscando una alternativa...")
			rec, meta, err = sess.RejectRecipe(ctx)
			recordMeta(store, meta)
			if err != nil {
				fail(err)
			}
		default:
			sess.DiscardRecipe()
			fmt.Println("Receta descartada sin guardar.")
			return
		}
	}
}

func runPlan(ctx context.Context, sess *session.Session, store *metrics.Store, args []string) {
	fs := flag.NewFlagSet("menu", flag.ExitOnError)
	comidas := fs.Int("comidas", 3, "Comidas por día")
	calorias := fs.Int("calorias", 2000, "Calorías objetivo por día")
	personas := fs.Int("personas", 1, "Personas para la lista de la compra")
	comentarios := fs.String("comentarios", "", "Preferencias o restricciones del menú")
	inicio := fs.String("inicio", "", "Fecha de inicio YYYY-MM-DD (por defecto hoy)")
	fs.Parse(args)

	weekStart := plan.DateOf(time.Now())
	if *inicio != "" {
		parsed, err := plan.ParseDate(*inicio)
		if err != nil {
			log.Fatalf("Invalid -inicio: %v", err)
		}
		weekStart = parsed
	}

	params := session.PlanParams{
		PlanRequest: chef.PlanRequest{
			Constraints:    *comentarios,
			MealsPerDay:    *comidas,
			WeekStart:      weekStart,
			CaloriesPerDay: *calorias,
		},
		PeopleCount: *personas,
	}

	fmt.Println("🧑‍🍳 Planificando tu semana...")
	p, meta, err := sess.RequestPlan(ctx, params)
	recordMeta(store, meta)
	if err != nil {
		fail(err)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println()
		fmt.Println(p.Markdown(sess.PeopleCount()))
		fmt.Print("¿Te quedas con este menú? [s = guardar / n = otro / q = salir] ")

		line, _ := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "s", "si", "sí":
			if err := sess.AcceptPlan(ctx); err != nil {
				fail(err)
			}
			fmt.Println("✅ ¡Menú guardado!")
			return
		case "n", "no":
			fmt.Println("🧑‍🍳 Planificando otra semana...")
			p, meta, err = sess.RejectPlan(ctx)
			recordMeta(store, meta)
			if err != nil {
				fail(err)
			}
		default:
			sess.DiscardPlan()
			fmt.Println("Menú descartado sin guardar.")
			return
		}
	}
}

func runListRecipes(ctx context.Context, book *cookbook.Repository) {
	records, err := book.ListRecipes(ctx)
	if err != nil {
		fail(err)
	}
	if len(records) == 0 {
		fmt.Println("Aún no has guardado ninguna receta.")
		return
	}
	for _, rec := range records {
		fmt.Printf("=== %s (guardada el %s)\n\n", rec.Title, rec.SavedAt.Format("2006-01-02 15:04"))
		fmt.Println(rec.Markdown())
	}
}

func runListPlans(ctx context.Context, book *cookbook.Repository) {
	records, err := book.ListWeeklyPlans(ctx)
	if err != nil {
		fail(err)
	}
	if len(records) == 0 {
		fmt.Println("Aún no has guardado ningún menú semanal.")
		return
	}
	for _, p := range records {
		fmt.Printf("=== Semana del %s (%d comidas/día, guardado el %s)\n\n",
			p.WeekStart, p.MealsPerDay, p.SavedAt.Format("2006-01-02 15:04"))
		fmt.Println(p.Markdown())
	}
}

func recordMeta(store *metrics.Store, meta shared.AgentMeta) {
	if err := store.RecordMeta(meta); err != nil {
		log.Printf("Failed to record metrics: %v", err)
	}
}

func fail(err error) {
	log.Printf("Operation failed (%s): %v", session.LogKind(err), err)
	fmt.Println("❌ " + session.UserMessage(err))
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Usage: personal-chef <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  receta             Generate a single-serving recipe from your ingredients")
	fmt.Println("  menu               Generate a 7-day meal plan with a shopping list")
	fmt.Println("  recetas            Show saved recipes, most recent first")
	fmt.Println("  menus              Show saved weekly menus, most recent first")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
