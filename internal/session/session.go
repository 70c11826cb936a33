// Package session implements the propose → accept/reject protocol. A
// session owns at most one pending candidate per artifact kind; the
// candidate is dropped on rejection failure and handed to the cookbook
// on acceptance. Rejections only count attempts, nothing escalates.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"personal-chef/internal/chef"
	"personal-chef/internal/cookbook"
	"personal-chef/internal/llm"
	"personal-chef/internal/plan"
	"personal-chef/internal/recipe"
	"personal-chef/internal/schema"
	"personal-chef/internal/shared"
)

// ErrNoCandidate is returned by accept/reject when nothing is pending.
var ErrNoCandidate = errors.New("no pending candidate")

// Generator produces validated artifacts from user parameters.
// *chef.Chef satisfies it.
type Generator interface {
	GenerateRecipe(ctx context.Context, req chef.RecipeRequest, retry bool) (*recipe.Recipe, shared.AgentMeta, error)
	GenerateWeeklyPlan(ctx context.Context, req chef.PlanRequest, retry bool) (*plan.WeeklyPlan, shared.AgentMeta, error)
}

// Cookbook persists accepted artifacts. *cookbook.Repository satisfies it.
type Cookbook interface {
	SaveRecipe(ctx context.Context, title, baseIngredients string, timeMinutes int, recipeJSON string) error
	SaveWeeklyPlan(ctx context.Context, weekStart string, mealsPerDay int, planJSON, shoppingListJSON string) error
}

// PlanParams extends the generation request with the people count used
// to scale the shopping list at render time. It never reaches the
// prompt: generated quantities stay single-person.
type PlanParams struct {
	chef.PlanRequest
	PeopleCount int
}

// Session is the per-user protocol state: one pending recipe and one
// pending plan at most, each with its request parameters and rejection
// counter. A mutex serializes all operations, so two quick messages
// from the same user cannot race on the candidate slots; one instance
// per user session.
type Session struct {
	mu   sync.Mutex
	gen  Generator
	book Cookbook

	currentRecipe *recipe.Recipe
	recipeParams  chef.RecipeRequest
	recipeRejects int

	currentPlan *plan.WeeklyPlan
	planParams  PlanParams
	planRejects int
}

// New creates an empty session.
func New(gen Generator, book Cookbook) *Session {
	return &Session{gen: gen, book: book}
}

// CurrentRecipe returns the pending recipe candidate, or nil.
func (s *Session) CurrentRecipe() *recipe.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRecipe
}

// CurrentPlan returns the pending plan candidate, or nil.
func (s *Session) CurrentPlan() *plan.WeeklyPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPlan
}

// RecipeRejections returns how many times the current recipe parameters
// have been rejected.
func (s *Session) RecipeRejections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipeRejects
}

// PlanRejections returns how many times the current plan parameters
// have been rejected.
func (s *Session) PlanRejections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planRejects
}

// PeopleCount returns the people count of the current plan parameters.
func (s *Session) PeopleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.planParams.PeopleCount < 1 {
		return 1
	}
	return s.planParams.PeopleCount
}

// RequestRecipe generates a first candidate for the given parameters.
// On failure the session stays without a candidate.
func (s *Session) RequestRecipe(ctx context.Context, params chef.RecipeRequest) (*recipe.Recipe, shared.AgentMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, meta, err := s.gen.GenerateRecipe(ctx, params, false)
	if err != nil {
		s.currentRecipe = nil
		return nil, meta, err
	}
	s.currentRecipe = rec
	s.recipeParams = params
	s.recipeRejects = 0
	return rec, meta, nil
}

// RejectRecipe discards the pending candidate and regenerates with the
// same parameters plus the variation directive. On failure the previous
// candidate is not restored.
func (s *Session) RejectRecipe(ctx context.Context) (*recipe.Recipe, shared.AgentMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRecipe == nil {
		return nil, shared.AgentMeta{}, ErrNoCandidate
	}
	rec, meta, err := s.gen.GenerateRecipe(ctx, s.recipeParams, true)
	if err != nil {
		s.currentRecipe = nil
		return nil, meta, err
	}
	s.currentRecipe = rec
	s.recipeRejects++
	return rec, meta, nil
}

// AcceptRecipe hands the pending candidate to the cookbook. On storage
// failure the candidate is preserved so an accepted-but-unsaved recipe
// is not lost.
func (s *Session) AcceptRecipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRecipe == nil {
		return ErrNoCandidate
	}
	canonical, err := s.currentRecipe.CanonicalJSON()
	if err != nil {
		return err
	}
	err = s.book.SaveRecipe(ctx,
		s.currentRecipe.Title,
		s.recipeParams.Ingredients,
		s.recipeParams.TimeMinutes,
		canonical,
	)
	if err != nil {
		return err
	}
	s.currentRecipe = nil
	s.recipeRejects = 0
	return nil
}

// DiscardRecipe drops the pending recipe candidate without saving it.
func (s *Session) DiscardRecipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRecipe = nil
	s.recipeRejects = 0
}

// ProposeRecipe installs an externally produced candidate, e.g. one
// clipped from a URL. Rejecting it regenerates from the given params.
func (s *Session) ProposeRecipe(rec *recipe.Recipe, params chef.RecipeRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentRecipe = rec
	s.recipeParams = params
	s.recipeRejects = 0
}

// RequestPlan generates a first weekly plan candidate.
func (s *Session) RequestPlan(ctx context.Context, params PlanParams) (*plan.WeeklyPlan, shared.AgentMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, meta, err := s.gen.GenerateWeeklyPlan(ctx, params.PlanRequest, false)
	if err != nil {
		s.currentPlan = nil
		return nil, meta, err
	}
	s.currentPlan = p
	s.planParams = params
	s.planRejects = 0
	return p, meta, nil
}

// RejectPlan regenerates a plan with the same parameters plus the
// variation directive. As with recipes, a failed regeneration leaves no
// candidate behind.
func (s *Session) RejectPlan(ctx context.Context) (*plan.WeeklyPlan, shared.AgentMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPlan == nil {
		return nil, shared.AgentMeta{}, ErrNoCandidate
	}
	p, meta, err := s.gen.GenerateWeeklyPlan(ctx, s.planParams.PlanRequest, true)
	if err != nil {
		s.currentPlan = nil
		return nil, meta, err
	}
	s.currentPlan = p
	s.planRejects++
	return p, meta, nil
}

// AcceptPlan hands the pending plan to the cookbook, preserving the
// candidate on storage failure.
func (s *Session) AcceptPlan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPlan == nil {
		return ErrNoCandidate
	}
	planJSON, err := s.currentPlan.CanonicalJSON()
	if err != nil {
		return err
	}
	shoppingJSON, err := s.currentPlan.ShoppingListJSON()
	if err != nil {
		return err
	}
	err = s.book.SaveWeeklyPlan(ctx,
		s.currentPlan.WeekStart.String(),
		s.currentPlan.MealsPerDay,
		planJSON,
		shoppingJSON,
	)
	if err != nil {
		return err
	}
	s.currentPlan = nil
	s.planRejects = 0
	return nil
}

// DiscardPlan drops the pending plan candidate without saving it.
func (s *Session) DiscardPlan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPlan = nil
	s.planRejects = 0
}

// UserMessage converts any operation error into the single user-facing
// message. The kind distinctions only matter for logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoCandidate):
		return "No hay ninguna propuesta pendiente."
	case errors.Is(err, chef.ErrInvalidRequest):
		return "Revisa los parámetros de la petición: " + err.Error()
	case errors.Is(err, cookbook.ErrStorage):
		return "No se ha podido guardar. Inténtalo de nuevo."
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, llm.ErrBackend), schema.IsViolation(err):
		return "Error al generar contenido con IA. Revisa la API key o inténtalo de nuevo."
	default:
		return "Error al generar contenido con IA. Revisa la API key o inténtalo de nuevo."
	}
}

// LogKind names the error kind for diagnostic logging.
func LogKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case schema.IsViolation(err):
		return "schema_violation"
	case errors.Is(err, llm.ErrTimeout):
		return "backend_timeout"
	case errors.Is(err, llm.ErrBackend):
		return "backend_error"
	case errors.Is(err, cookbook.ErrStorage):
		return "storage_error"
	case errors.Is(err, chef.ErrInvalidRequest):
		return "invalid_request"
	default:
		return fmt.Sprintf("unknown(%T)", err)
	}
}
