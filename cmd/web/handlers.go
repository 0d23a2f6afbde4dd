package main

import (
	"net/http"

	"github.com/AdamBeresnev/tourney-engine/internal/bracket"
	"github.com/AdamBeresnev/tourney-engine/internal/httputil"
	"github.com/AdamBeresnev/tourney-engine/internal/service"
	"github.com/AdamBeresnev/tourney-engine/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type handlers struct {
	engine *service.Engine
}

// idParam parses a uuid route parameter, answering 400 when it is malformed.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) createPool(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := idParam(w, r, "divisionID")
	if !ok {
		return
	}
	var in service.CreatePoolInput
	if err := httputil.Decode(r, &in); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	in.DivisionID = divisionID

	pool, err := h.engine.CreatePool(r.Context(), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, pool)
}

func (h *handlers) listPools(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := idParam(w, r, "divisionID")
	if !ok {
		return
	}
	pools, err := h.engine.ListPools(r.Context(), divisionID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, pools)
}

func (h *handlers) getPool(w http.ResponseWriter, r *http.Request) {
	poolID, ok := idParam(w, r, "poolID")
	if !ok {
		return
	}
	pool, err := h.engine.GetPool(r.Context(), poolID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, pool)
}

func (h *handlers) deletePool(w http.ResponseWriter, r *http.Request) {
	poolID, ok := idParam(w, r, "poolID")
	if !ok {
		return
	}
	if err := h.engine.DeletePool(r.Context(), poolID); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (h *handlers) updatePoolTeams(w http.ResponseWriter, r *http.Request) {
	poolID, ok := idParam(w, r, "poolID")
	if !ok {
		return
	}
	var body struct {
		Teams []string `json:"teams"`
	}
	if err := httputil.Decode(r, &body); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	pool, err := h.engine.UpdatePoolTeams(r.Context(), poolID, body.Teams)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, pool)
}

func (h *handlers) generatePoolGames(w http.ResponseWriter, r *http.Request) {
	poolID, ok := idParam(w, r, "poolID")
	if !ok {
		return
	}
	games, err := h.engine.GeneratePoolGames(r.Context(), poolID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, games)
}

func (h *handlers) poolStandings(w http.ResponseWriter, r *http.Request) {
	poolID, ok := idParam(w, r, "poolID")
	if !ok {
		return
	}
	standings, err := h.engine.PoolStandings(r.Context(), poolID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, standings)
}

func (h *handlers) createBracket(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := idParam(w, r, "divisionID")
	if !ok {
		return
	}
	var in service.CreateBracketInput
	if err := httputil.Decode(r, &in); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	in.DivisionID = divisionID

	br, err := h.engine.CreateBracket(r.Context(), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, br)
}

func (h *handlers) listBrackets(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := idParam(w, r, "divisionID")
	if !ok {
		return
	}
	brackets, err := h.engine.ListBrackets(r.Context(), divisionID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, brackets)
}

func (h *handlers) getBracket(w http.ResponseWriter, r *http.Request) {
	bracketID, ok := idParam(w, r, "bracketID")
	if !ok {
		return
	}
	br, err := h.engine.GetBracket(r.Context(), bracketID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, br)
}

func (h *handlers) deleteBracket(w http.ResponseWriter, r *http.Request) {
	bracketID, ok := idParam(w, r, "bracketID")
	if !ok {
		return
	}
	if err := h.engine.DeleteBracket(r.Context(), bracketID); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (h *handlers) updateSeeds(w http.ResponseWriter, r *http.Request) {
	bracketID, ok := idParam(w, r, "bracketID")
	if !ok {
		return
	}
	var body struct {
		Seeds []bracket.BracketSeed `json:"seeds"`
	}
	if err := httputil.Decode(r, &body); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	br, err := h.engine.UpdateSeeds(r.Context(), bracketID, body.Seeds)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, br)
}

func (h *handlers) seedFromPools(w http.ResponseWriter, r *http.Request) {
	bracketID, ok := idParam(w, r, "bracketID")
	if !ok {
		return
	}
	var body struct {
		PoolIDs []uuid.UUID `json:"poolIds"`
	}
	if err := httputil.Decode(r, &body); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	br, err := h.engine.SeedBracketFromPools(r.Context(), bracketID, body.PoolIDs)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, br)
}

func (h *handlers) generateBracketGames(w http.ResponseWriter, r *http.Request) {
	bracketID, ok := idParam(w, r, "bracketID")
	if !ok {
		return
	}
	games, err := h.engine.GenerateBracketGames(r.Context(), bracketID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, games)
}

func (h *handlers) bracketByes(w http.ResponseWriter, r *http.Request) {
	bracketID, ok := idParam(w, r, "bracketID")
	if !ok {
		return
	}
	report, err := h.engine.BracketByes(r.Context(), bracketID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// listGames narrows the division's games with the optional poolId and
// bracketId query parameters.
func (h *handlers) listGames(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := idParam(w, r, "divisionID")
	if !ok {
		return
	}
	filter := store.GameFilter{DivisionID: &divisionID}
	for param, dst := range map[string]**uuid.UUID{"poolId": &filter.PoolID, "bracketId": &filter.BracketID} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.BadRequest(w, "Invalid "+param, err)
			return
		}
		*dst = &id
	}

	games, err := h.engine.ListGames(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, games)
}

func (h *handlers) divisionStandings(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := idParam(w, r, "divisionID")
	if !ok {
		return
	}
	standings, err := h.engine.DivisionStandings(r.Context(), divisionID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, standings)
}

func (h *handlers) teamStats(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := idParam(w, r, "divisionID")
	if !ok {
		return
	}
	stats, err := h.engine.TeamStats(r.Context(), chi.URLParam(r, "team"), divisionID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

func (h *handlers) validateDivision(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := idParam(w, r, "divisionID")
	if !ok {
		return
	}
	result, err := h.engine.ValidateDivision(r.Context(), divisionID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

func (h *handlers) getGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := idParam(w, r, "gameID")
	if !ok {
		return
	}
	game, err := h.engine.GetGame(r.Context(), gameID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, game)
}

func (h *handlers) deleteGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := idParam(w, r, "gameID")
	if !ok {
		return
	}
	if err := h.engine.DeleteGame(r.Context(), gameID); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (h *handlers) deletionImpact(w http.ResponseWriter, r *http.Request) {
	gameID, ok := idParam(w, r, "gameID")
	if !ok {
		return
	}
	impact, err := h.engine.DeletionImpact(r.Context(), gameID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, impact)
}

func (h *handlers) recordScore(w http.ResponseWriter, r *http.Request) {
	gameID, ok := idParam(w, r, "gameID")
	if !ok {
		return
	}
	var body struct {
		ScoreA int                `json:"scoreA"`
		ScoreB int                `json:"scoreB"`
		Status bracket.GameStatus `json:"status"`
	}
	if err := httputil.Decode(r, &body); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	game, err := h.engine.RecordScore(r.Context(), gameID, body.ScoreA, body.ScoreB, body.Status)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, game)
}

// advance moves teams out of a completed game. Without a winner in the body
// the result is read from the score.
func (h *handlers) advance(w http.ResponseWriter, r *http.Request) {
	gameID, ok := idParam(w, r, "gameID")
	if !ok {
		return
	}
	var body struct {
		Winner string `json:"winner"`
		Loser  string `json:"loser"`
	}
	if err := httputil.Decode(r, &body); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	var err error
	switch {
	case body.Winner == "":
		if !h.engine.AutoAdvanceTeams(r.Context(), gameID) {
			httputil.BadRequest(w, "Game could not be advanced automatically", nil)
			return
		}
	case body.Loser == "":
		err = h.engine.AdvanceWinner(r.Context(), gameID, body.Winner)
	default:
		err = h.engine.AdvanceTeams(r.Context(), gameID, body.Winner, body.Loser)
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusNoContent, nil)
}

func (h *handlers) setDependencies(w http.ResponseWriter, r *http.Request) {
	gameID, ok := idParam(w, r, "gameID")
	if !ok {
		return
	}
	var body struct {
		Sources []service.DependencySource `json:"sources"`
	}
	if err := httputil.Decode(r, &body); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	if err := h.engine.SetupGameDependencies(r.Context(), gameID, body.Sources); err != nil {
		httputil.Error(w, err)
		return
	}
	h.getGame(w, r)
}

func (h *handlers) removeDependencies(w http.ResponseWriter, r *http.Request) {
	gameID, ok := idParam(w, r, "gameID")
	if !ok {
		return
	}
	if err := h.engine.RemoveGameDependencies(r.Context(), gameID); err != nil {
		httputil.Error(w, err)
		return
	}
	h.getGame(w, r)
}
