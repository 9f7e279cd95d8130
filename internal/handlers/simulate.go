package handlers

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/coinboard/internal/common"
	"github.com/bobmcallan/coinboard/internal/simulator"
)

// Simulator routes.
const (
	SimulatePath = "/api/simulate"
	ProfilesPath = "/api/simulate/profiles"
)

// SimulateHandler runs the investment simulator.
type SimulateHandler struct {
	sim    *simulator.Simulator
	logger *common.Logger
}

// NewSimulateHandler creates a simulator handler.
func NewSimulateHandler(sim *simulator.Simulator, logger *common.Logger) *SimulateHandler {
	return &SimulateHandler{sim: sim, logger: logger}
}

// Simulate handles POST /api/simulate.
func (h *SimulateHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req simulator.Request
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.sim.Simulate(req)
	switch {
	case errors.Is(err, simulator.ErrInvalidInvestment),
		errors.Is(err, simulator.ErrUnknownAsset),
		errors.Is(err, simulator.ErrUnknownTimeframe):
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("simulation failed")
		WriteError(w, http.StatusInternalServerError, "Simulation failed")
		return
	}

	h.logger.Debug().
		Str("asset", req.Asset).
		Str("timeframe", req.Timeframe).
		Str("scenario", result.Scenario).
		Msg("simulation complete")
	WriteJSON(w, http.StatusOK, result)
}

// Profiles handles GET /api/simulate/profiles, listing the selectable assets and timeframes.
func (h *SimulateHandler) Profiles(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.sim.Tables())
}
