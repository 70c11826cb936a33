package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"personal-chef/internal/chef"
	"personal-chef/internal/clipper"
	"personal-chef/internal/config"
	"personal-chef/internal/cookbook"
	"personal-chef/internal/metrics"
	"personal-chef/internal/plan"
	"personal-chef/internal/recipe"
	"personal-chef/internal/session"
	"personal-chef/internal/shared"
)

// Swapped out in tests.
var nowFunc = time.Now

// Callback payloads for the candidate keyboards.
const (
	callbackAcceptRecipe = "accept_recipe"
	callbackRejectRecipe = "reject_recipe"
	callbackAcceptPlan   = "accept_plan"
	callbackRejectPlan   = "reject_plan"
)

const helpText = `👨‍🍳 *Tu Chef Personal con IA*

• Receta: envía "ingredientes | minutos | comentarios"
  p. ej. "pollo, arroz | 30 | sin lactosa"
• Menú semanal: /menu <comidas/día> <calorías/día> [personas] [comentarios]
  p. ej. "/menu 3 2000 2 vegetariano"
• Pega una URL para importar una receta de la web.
• /recetas y /menus muestran lo guardado.`

// Bot wraps the Telegram API around one user session.
type Bot struct {
	api          *tgbotapi.BotAPI
	sess         *session.Session
	clip         *clipper.Clipper
	book         *cookbook.Repository
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	sess *session.Session,
	clip *clipper.Clipper,
	book *cookbook.Repository,
	metricsStore *metrics.Store,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          api,
		sess:         sess,
		clip:         clip,
		book:         book,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		if update.CallbackQuery.From.ID != b.cfg.TelegramAllowUserID {
			return
		}
		b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.From.ID != b.cfg.TelegramAllowUserID {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start" || text == "/ayuda":
		b.send(msg.Chat.ID, helpText)
	case text == "/metrics":
		b.handleMetricsCommand(msg.Chat.ID)
	case text == "/recetas":
		b.handleListRecipes(msg.Chat.ID)
	case text == "/menus":
		b.handleListPlans(msg.Chat.ID)
	case strings.HasPrefix(text, "/menu"):
		b.handlePlanRequest(msg.Chat.ID, strings.TrimSpace(strings.TrimPrefix(text, "/menu")))
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleClipRequest(msg.Chat.ID, text)
	default:
		b.handleRecipeRequest(msg.Chat.ID, text)
	}
}

// "pollo, arroz | 30 | sin lactosa" → RecipeRequest.
func parseRecipeRequest(text string) (chef.RecipeRequest, error) {
	parts := strings.Split(text, "|")
	req := chef.RecipeRequest{
		Ingredients: strings.TrimSpace(parts[0]),
		TimeMinutes: 30,
	}
	if req.Ingredients == "" {
		return req, fmt.Errorf("introduce al menos un ingrediente")
	}
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minutes <= 0 {
			return req, fmt.Errorf("el tiempo debe ser un número de minutos > 0")
		}
		req.TimeMinutes = minutes
	}
	if len(parts) > 2 {
		req.Constraints = strings.TrimSpace(strings.Join(parts[2:], "|"))
	}
	return req, nil
}

// "3 2000 2 vegetariano sin lactosa" → PlanParams. The third numeric
// token is the people count for the shopping list; everything after the
// numbers is free-text constraints.
func parsePlanRequest(text string, weekStart plan.Date) (session.PlanParams, error) {
	params := session.PlanParams{PeopleCount: 1}
	params.WeekStart = weekStart

	fields := strings.Fields(text)
	if len(fields) < 2 {
		return params, fmt.Errorf("uso: /menu <comidas/día> <calorías/día> [personas] [comentarios]")
	}

	mealsPerDay, err := strconv.Atoi(fields[0])
	if err != nil || mealsPerDay < 1 {
		return params, fmt.Errorf("comidas/día debe ser un entero >= 1")
	}
	calories, err := strconv.Atoi(fields[1])
	if err != nil || calories <= 0 {
		return params, fmt.Errorf("calorías/día debe ser un entero > 0")
	}
	params.MealsPerDay = mealsPerDay
	params.CaloriesPerDay = calories

	rest := fields[2:]
	if len(rest) > 0 {
		if people, err := strconv.Atoi(rest[0]); err == nil && people >= 1 {
			params.PeopleCount = people
			rest = rest[1:]
		}
	}
	params.Constraints = strings.Join(rest, " ")
	return params, nil
}

func (b *Bot) handleRecipeRequest(chatID int64, text string) {
	req, err := parseRecipeRequest(text)
	if err != nil {
		b.send(chatID, "⚠️ "+err.Error())
		return
	}

	statusID := b.send(chatID, "🧑‍🍳 *El chef está pensando...*")

	rec, meta, err := b.sess.RequestRecipe(context.Background(), req)
	b.recordMeta(meta)
	if err != nil {
		log.Printf("Recipe generation failed (%s): %v", session.LogKind(err), err)
		b.edit(chatID, statusID, "❌ "+session.UserMessage(err))
		return
	}

	b.editWithKeyboard(chatID, statusID, formatRecipeMessage(rec), recipeKeyboard())
}

func (b *Bot) handleClipRequest(chatID int64, url string) {
	statusID := b.send(chatID, "✂️ *Importando receta...*")

	rec, meta, err := b.clip.ClipURL(context.Background(), url)
	b.recordMeta(meta)
	if err != nil {
		log.Printf("Clip failed (%s): %v", session.LogKind(err), err)
		b.edit(chatID, statusID, "❌ "+session.UserMessage(err))
		return
	}

	b.sess.ProposeRecipe(rec, chef.RecipeRequest{
		Ingredients: rec.BaseIngredientsText(),
		TimeMinutes: rec.TimeMinutes,
		Constraints: "importada de " + url,
	})

	b.editWithKeyboard(chatID, statusID, formatRecipeMessage(rec), recipeKeyboard())
}

func (b *Bot) handlePlanRequest(chatID int64, args string) {
	params, err := parsePlanRequest(args, plan.DateOf(nowFunc()))
	if err != nil {
		b.send(chatID, "⚠️ "+err.Error())
		return
	}

	statusID := b.send(chatID, "🧑‍🍳 *Planificando tu semana...*")

	p, meta, err := b.sess.RequestPlan(context.Background(), params)
	b.recordMeta(meta)
	if err != nil {
		log.Printf("Plan generation failed (%s): %v", session.LogKind(err), err)
		b.edit(chatID, statusID, "❌ "+session.UserMessage(err))
		return
	}

	planText, shoppingText := formatPlanMessageParts(p, b.sess.PeopleCount())
	b.edit(chatID, statusID, planText)
	b.sendWithKeyboard(chatID, shoppingText, planKeyboard())
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Answer first to remove the client-side spinner.
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	ctx := context.Background()

	switch query.Data {
	case callbackAcceptRecipe:
		if err := b.sess.AcceptRecipe(ctx); err != nil {
			log.Printf("Accept recipe failed (%s): %v", session.LogKind(err), err)
			b.send(chatID, "❌ "+session.UserMessage(err))
			return
		}
		b.clearKeyboard(chatID, messageID)
		b.send(chatID, "✅ *¡Receta guardada con éxito!* Usa /recetas para verla.")

	case callbackRejectRecipe:
		b.clearKeyboard(chatID, messageID)
		statusID := b.send(chatID, "🧑‍🍳 *Buscando una alternativa...*")
		rec, meta, err := b.sess.RejectRecipe(ctx)
		b.recordMeta(meta)
		if err != nil {
			log.Printf("Recipe regeneration failed (%s): %v", session.LogKind(err), err)
			b.edit(chatID, statusID, "❌ "+session.UserMessage(err))
			return
		}
		b.editWithKeyboard(chatID, statusID, formatRecipeMessage(rec), recipeKeyboard())

	case callbackAcceptPlan:
		if err := b.sess.AcceptPlan(ctx); err != nil {
			log.Printf("Accept plan failed (%s): %v", session.LogKind(err), err)
			b.send(chatID, "❌ "+session.UserMessage(err))
			return
		}
		b.clearKeyboard(chatID, messageID)
		b.send(chatID, "✅ *¡Menú guardado!* Usa /menus para verlo.")

	case callbackRejectPlan:
		b.clearKeyboard(chatID, messageID)
		statusID := b.send(chatID, "🧑‍🍳 *Planificando otra semana...*")
		p, meta, err := b.sess.RejectPlan(ctx)
		b.recordMeta(meta)
		if err != nil {
			log.Printf("Plan regeneration failed (%s): %v", session.LogKind(err), err)
			b.edit(chatID, statusID, "❌ "+session.UserMessage(err))
			return
		}
		planText, shoppingText := formatPlanMessageParts(p, b.sess.PeopleCount())
		b.edit(chatID, statusID, planText)
		b.sendWithKeyboard(chatID, shoppingText, planKeyboard())
	}
}

func (b *Bot) handleListRecipes(chatID int64) {
	records, err := b.book.ListRecipes(context.Background())
	if err != nil {
		log.Printf("List recipes failed (%s): %v", session.LogKind(err), err)
		b.send(chatID, "❌ "+session.UserMessage(err))
		return
	}
	if len(records) == 0 {
		b.send(chatID, "Aún no has guardado ninguna receta.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🍽️ *Mi Recetario*\n\n")
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("• *%s* — %s\n", rec.Title, rec.SavedAt.Format("2006-01-02")))
	}
	b.send(chatID, sb.String())
}

func (b *Bot) handleListPlans(chatID int64) {
	records, err := b.book.ListWeeklyPlans(context.Background())
	if err != nil {
		log.Printf("List plans failed (%s): %v", session.LogKind(err), err)
		b.send(chatID, "❌ "+session.UserMessage(err))
		return
	}
	if len(records) == 0 {
		b.send(chatID, "Aún no has guardado ningún menú semanal.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📅 *Menús semanales guardados*\n\n")
	for _, p := range records {
		sb.WriteString(fmt.Sprintf("• Semana del *%s* (%d comidas/día) — guardado el %s\n",
			p.WeekStart, p.MealsPerDay, p.SavedAt.Format("2006-01-02")))
	}
	b.send(chatID, sb.String())
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.send(chatID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataSize))

	b.send(chatID, sb.String())
}

func (b *Bot) recordMeta(meta shared.AgentMeta) {
	if err := b.metricsStore.RecordMeta(meta); err != nil {
		log.Printf("Warning: failed to record metrics for %s: %v", meta.AgentName, err)
	}
}

func (b *Bot) send(chatID int64, text string) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Failed to send message: %v", err)
		return 0
	}
	return sent.MessageID
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

func (b *Bot) editWithKeyboard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	edit.ReplyMarkup = &keyboard
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

func (b *Bot) clearKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	b.api.Request(edit)
}

func recipeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍 Me la quedo", callbackAcceptRecipe),
			tgbotapi.NewInlineKeyboardButtonData("👎 Dame otra", callbackRejectRecipe),
		),
	)
}

func planKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍 Me lo quedo", callbackAcceptPlan),
			tgbotapi.NewInlineKeyboardButtonData("👎 Dame otro", callbackRejectPlan),
		),
	)
}

func formatRecipeMessage(rec *recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍳 *%s*\n", rec.Title))
	sb.WriteString(fmt.Sprintf("⏱ %d min · 1 persona\n\n", rec.TimeMinutes))

	sb.WriteString("🛒 *Ingredientes (1 persona)*\n")
	for _, ing := range rec.Ingredients {
		sb.WriteString(fmt.Sprintf("• %s %s de %s", recipe.FormatQuantity(ing.Quantity), ing.Unit, ing.Name))
		if ing.Note != "" {
			sb.WriteString(" (" + ing.Note + ")")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n👩‍🍳 *Instrucciones*\n")
	for i, step := range rec.Steps {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}
	sb.WriteString("\n¿Qué te parece esta receta?")
	return sb.String()
}

func formatPlanMessageParts(p *plan.WeeklyPlan, peopleCount int) (string, string) {
	var pb strings.Builder
	pb.WriteString(fmt.Sprintf("📅 *Menú semanal* (semana del %s, 1 persona)\n", p.WeekStart))

	for _, day := range p.Days {
		pb.WriteString(fmt.Sprintf("\n*%s*\n", day.Date))
		for _, meal := range day.Meals {
			pb.WriteString(fmt.Sprintf("• %s: %s\n", meal.Type, meal.Recipe.Title))
		}
	}

	var sb strings.Builder
	if peopleCount > 1 {
		sb.WriteString(fmt.Sprintf("🧺 *Lista de la compra (%d personas)*\n\n", peopleCount))
	} else {
		sb.WriteString("🧺 *Lista de la compra*\n\n")
	}
	for _, item := range p.ShoppingList {
		sb.WriteString(fmt.Sprintf("• %s %s de %s", recipe.FormatQuantity(item.Quantity*float64(peopleCount)), item.Unit, item.Name))
		if len(item.Notes) > 0 {
			sb.WriteString(" (" + strings.Join(item.Notes, "; ") + ")")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n¿Te quedas con este menú?")

	return pb.String(), sb.String()
}
