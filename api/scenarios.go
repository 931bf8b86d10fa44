/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	board data for demos and manual testing. Each scenario goes through
	the same ledger, board, and resolver calls the HTTP handlers use.

AVAILABLE SCENARIOS:

	starter-board:    Two users with credits, a few topics and replies
	cookie-drawer:    One user who minted several cookies, one active
	drifted-counters: Likes whose counters were knocked out of step

HOW SCENARIOS WORK:
 1. Create users through the ledger
 2. Post topics and replies through the board
 3. Toggle likes and favorites through the resolver
 4. Optionally corrupt counters so reconcile has work to do

Scenarios only add data. Running one twice creates a second copy.

USAGE VIA API:

	GET  /api/admin/scenarios
	POST /api/admin/scenarios/load
	{"scenario_id": "starter-board"}

SEE ALSO:
  - handlers.go: Handlers the scenarios mirror
  - scheduler.go: Repairs what drifted-counters breaks
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/warp/cookieboard/forum"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ScenarioResult lists the users a scenario created so callers can mint tokens for them.
type ScenarioResult struct {
	ScenarioID string    `json:"scenario_id"`
	Users      []UserDTO `json:"users"`
	Topics     []int64   `json:"topics"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "starter-board",
		Name:        "Starter Board",
		Description: "Two users with credits, three topics, replies, likes and a favorite",
	},
	{
		ID:          "cookie-drawer",
		Name:        "Cookie Drawer",
		Description: "One user who spent four credits and activated the third cookie",
	},
	{
		ID:          "drifted-counters",
		Name:        "Drifted Counters",
		Description: "Liked topics whose counters no longer match their like records",
	},
}

type scenarioLoader func(ctx context.Context, h *Handler) (ScenarioResult, error)

func (h *Handler) scenarioLoaders() map[string]scenarioLoader {
	return map[string]scenarioLoader{
		"starter-board":    loadStarterBoard,
		"cookie-drawer":    loadCookieDrawer,
		"drifted-counters": loadDriftedCounters,
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario runs one scenario against the live store.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := h.scenarioLoaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	result, err := load(r.Context(), h)
	if err != nil {
		writeDomainError(w, "Failed to load scenario", err)
		return
	}
	result.ScenarioID = req.ScenarioID
	writeJSON(w, http.StatusCreated, result)
}

// =============================================================================
// LOADERS
// =============================================================================

func loadStarterBoard(ctx context.Context, h *Handler) (ScenarioResult, error) {
	var result ScenarioResult

	alice, err := createDemoUser(ctx, h, "alice@example.com", "Alice", 5, &result)
	if err != nil {
		return result, err
	}
	bob, err := createDemoUser(ctx, h, "bob@example.com", "Bob", 2, &result)
	if err != nil {
		return result, err
	}

	posts := []struct {
		author   forum.UserID
		category string
		content  string
	}{
		{alice.ID, "general", "Welcome to the board"},
		{bob.ID, "art", "Sketch of the week"},
		{alice.ID, "general", "Cookie etiquette thread"},
	}
	for _, p := range posts {
		topic, err := h.Board.PostTopic(ctx, p.author, p.category, p.content, nil)
		if err != nil {
			return result, err
		}
		result.Topics = append(result.Topics, topic.Seq)
	}

	first := result.Topics[0]
	reply, err := h.Board.PostReply(ctx, bob.ID, first, "Glad to be here", "", nil)
	if err != nil {
		return result, err
	}
	if _, err := h.Board.PostReply(ctx, alice.ID, first, "Likewise", "Glad to be here", nil); err != nil {
		return result, err
	}

	likes := []struct {
		user   forum.UserID
		target string
	}{
		{bob.ID, strconv.FormatInt(first, 10)},
		{alice.ID, reply.ID.String()},
		{alice.ID, strconv.FormatInt(result.Topics[1], 10)},
	}
	for _, l := range likes {
		if _, err := h.Reactions.Toggle(ctx, l.user, l.target, string(forum.ActionLike)); err != nil {
			return result, err
		}
	}

	if _, err := h.Favorites.Toggle(ctx, bob.ID, result.Topics[2], string(forum.ActionFavorite)); err != nil {
		return result, err
	}
	return result, nil
}

func loadCookieDrawer(ctx context.Context, h *Handler) (ScenarioResult, error) {
	var result ScenarioResult

	user, err := createDemoUser(ctx, h, "collector@example.com", "Collector", 4, &result)
	if err != nil {
		return result, err
	}

	var names []string
	for i := 0; i < 4; i++ {
		_, token, err := h.Ledger.Spend(ctx, user.ID)
		if err != nil {
			return result, err
		}
		names = append(names, token.Name)
	}
	if _, err := h.Ledger.SetTokenActive(ctx, names[2]); err != nil {
		return result, err
	}

	refreshed, err := h.Ledger.Balance(ctx, user.ID)
	if err != nil {
		return result, err
	}
	result.Users[0].CreditBalance = &refreshed
	return result, nil
}

func loadDriftedCounters(ctx context.Context, h *Handler) (ScenarioResult, error) {
	var result ScenarioResult

	author, err := createDemoUser(ctx, h, "drift@example.com", "Drift", 0, &result)
	if err != nil {
		return result, err
	}

	for i := 0; i < 2; i++ {
		topic, err := h.Board.PostTopic(ctx, author.ID, "general", fmt.Sprintf("Drifted topic %d", i+1), nil)
		if err != nil {
			return result, err
		}
		result.Topics = append(result.Topics, topic.Seq)
		if _, err := h.Reactions.Toggle(ctx, author.ID, strconv.FormatInt(topic.Seq, 10), string(forum.ActionLike)); err != nil {
			return result, err
		}
	}

	store := h.Reactions.Store
	if err := store.SetLikeCount(ctx, forum.TopicTarget(result.Topics[0]), 0); err != nil {
		return result, err
	}
	if err := store.SetLikeCount(ctx, forum.TopicTarget(result.Topics[1]), 12); err != nil {
		return result, err
	}
	return result, nil
}

func createDemoUser(ctx context.Context, h *Handler, email, name string, credits int64, result *ScenarioResult) (*forum.User, error) {
	user, err := h.Ledger.CreateUser(ctx, email, name, &credits)
	if err != nil {
		return nil, err
	}
	result.Users = append(result.Users, toUserDTO(*user))
	return user, nil
}
