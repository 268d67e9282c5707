package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"savings-gateway/internal/aggregator"
	"savings-gateway/internal/fault"
	"savings-gateway/internal/health"
	"savings-gateway/internal/metrics"
	"savings-gateway/internal/models"
	"savings-gateway/internal/orchestrator"
	"savings-gateway/internal/validation"
)

// Server exposes the portfolio and action surfaces over HTTP. It forwards
// intents to the orchestrator and only ever reads the aggregator's latest
// snapshot reference.
type Server struct {
	orch    *orchestrator.Orchestrator
	actions *orchestrator.Actions
	agg     *aggregator.Aggregator
	logger  zerolog.Logger
	timeout time.Duration
}

func NewServer(orch *orchestrator.Orchestrator, actions *orchestrator.Actions, agg *aggregator.Aggregator, timeout time.Duration, logger zerolog.Logger) *Server {
	return &Server{orch: orch, actions: actions, agg: agg, logger: logger, timeout: timeout}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", health.LivenessHandler)
	r.Get("/readyz", health.ReadinessHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/portfolio/{address}", s.handlePortfolio)
		r.Get("/transactions", s.handleTransactions)

		r.Post("/vault/deposit", s.handleVaultDeposit)
		r.Post("/vault/withdraw", s.handleVaultWithdraw)

		r.Post("/goals", s.handleCreateGoal)
		r.Post("/goals/{goalID}/deposit", s.handleGoalDeposit)
		r.Post("/goals/{goalID}/withdraw", s.handleGoalWithdraw)
		r.Post("/goals/{goalID}/pause", s.handlePauseGoal)
		r.Post("/goals/{goalID}/resume", s.handleResumeGoal)

		r.Post("/profit/claim", s.handleClaimProfit)
		r.Post("/faucet/claim", s.handleFaucetClaim)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if err := validation.ValidateAddress(raw); err != nil {
		writeError(w, fault.New(fault.Validation, "%s", err.Error()))
		return
	}
	account := common.HexToAddress(raw)

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	snap, err := s.agg.Refresh(ctx, account)
	stale := err != nil
	writeJSON(w, http.StatusOK, newPortfolioView(snap, stale))
}

func (s *Server) handleTransactions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": s.orch.PendingTransactions(),
	})
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleVaultDeposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, decimals, err := s.parseAssetAmount(r.Context(), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, s.actions.VaultDeposit(amount, decimals))
}

func (s *Server) handleVaultWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shares string `json:"shares"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	shares, decimals, err := s.parseShareAmount(r.Context(), req.Shares)
	if err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, s.actions.VaultWithdraw(shares, decimals))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GoalType          uint8  `json:"goal_type"`
		TargetAmount      string `json:"target_amount"`
		TargetDate        string `json:"target_date,omitempty"`
		MonthlyCommitment string `json:"monthly_commitment"`
		CustomName        string `json:"custom_name,omitempty"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	target, decimals, err := s.parseShareAmount(r.Context(), req.TargetAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	monthly, _, err := s.parseShareAmount(r.Context(), req.MonthlyCommitment)
	if err != nil {
		writeError(w, err)
		return
	}

	params := orchestrator.CreateGoalParams{
		Type:              models.GoalType(req.GoalType),
		TargetAmount:      target,
		MonthlyCommitment: monthly,
		CustomName:        req.CustomName,
		Decimals:          decimals,
	}
	if req.TargetDate != "" {
		date, err := time.Parse(time.RFC3339, req.TargetDate)
		if err != nil {
			writeError(w, fault.New(fault.Validation, "target_date must be RFC3339: %v", err))
			return
		}
		params.TargetDate = date
	}

	s.execute(w, r, s.actions.CreateGoal(params))
}

func (s *Server) handleGoalDeposit(w http.ResponseWriter, r *http.Request) {
	goalID, ok := s.goalID(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, decimals, err := s.parseShareAmount(r.Context(), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, s.actions.GoalDeposit(goalID, amount, decimals))
}

func (s *Server) handleGoalWithdraw(w http.ResponseWriter, r *http.Request) {
	goalID, ok := s.goalID(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount,omitempty"`
		All    bool   `json:"all,omitempty"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	var amount *big.Int
	var decimals uint8
	if req.All || req.Amount == "" {
		req.All = true
		_, d, err := s.shareDecimals(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		decimals = d
	} else {
		var err error
		amount, decimals, err = s.parseShareAmount(r.Context(), req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	s.execute(w, r, s.actions.GoalWithdraw(goalID, amount, req.All, decimals))
}

func (s *Server) handlePauseGoal(w http.ResponseWriter, r *http.Request) {
	goalID, ok := s.goalID(w, r)
	if !ok {
		return
	}
	s.execute(w, r, s.actions.PauseGoal(goalID))
}

func (s *Server) handleResumeGoal(w http.ResponseWriter, r *http.Request) {
	goalID, ok := s.goalID(w, r)
	if !ok {
		return
	}
	s.execute(w, r, s.actions.ResumeGoal(goalID))
}

func (s *Server) handleClaimProfit(w http.ResponseWriter, r *http.Request) {
	_, decimals, err := s.shareDecimals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.execute(w, r, s.actions.ClaimProfit(decimals))
}

func (s *Server) handleFaucetClaim(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, s.actions.FaucetClaim())
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, action *orchestrator.Action) {
	result, err := s.orch.Execute(r.Context(), action)
	if err != nil {
		writeError(w, err)
		return
	}

	hashes := make([]string, len(result.TxHashes))
	for i, h := range result.TxHashes {
		hashes[i] = h.Hex()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"action_id": result.ActionID,
		"kind":      result.Kind,
		"tx_hashes": hashes,
		"stale":     result.Stale,
	})
}

func (s *Server) goalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "goalID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, fault.New(fault.Validation, "invalid goal id %q", raw))
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, fault.New(fault.Validation, "invalid request body: %v", err))
		return false
	}
	return true
}

// parseAssetAmount converts a human-readable amount into base-asset units.
func (s *Server) parseAssetAmount(ctx context.Context, raw string) (*big.Int, uint8, error) {
	assetDec, _, err := s.shareDecimals(ctx)
	if err != nil {
		return nil, 0, err
	}
	return parseAmount(raw, assetDec)
}

// parseShareAmount converts a human-readable amount into vault-share units.
func (s *Server) parseShareAmount(ctx context.Context, raw string) (*big.Int, uint8, error) {
	_, shareDec, err := s.shareDecimals(ctx)
	if err != nil {
		return nil, 0, err
	}
	return parseAmount(raw, shareDec)
}

// shareDecimals returns the session's cached token decimals, refreshing the
// snapshot once if none exists yet.
func (s *Server) shareDecimals(ctx context.Context) (uint8, uint8, error) {
	snap := s.agg.Current()
	if snap == nil || (snap.AssetDecimals == 0 && snap.ShareDecimals == 0) {
		refreshed, err := s.agg.Refresh(ctx, common.Address{})
		if err != nil && (refreshed == nil || refreshed.ShareDecimals == 0) {
			return 0, 0, err
		}
		snap = refreshed
	}
	return snap.AssetDecimals, snap.ShareDecimals, nil
}

func parseAmount(raw string, decimals uint8) (*big.Int, uint8, error) {
	if err := validation.ValidateAmountString(raw); err != nil {
		return nil, 0, fault.New(fault.Validation, "%s", err.Error())
	}
	amount, err := models.ParseTokenAmount(raw, decimals)
	if err != nil {
		return nil, 0, fault.Wrap(fault.Validation, err, "cannot parse amount")
	}
	return amount.Value, decimals, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the fault taxonomy onto HTTP statuses. Invalid input, a
// chain rejection, and an unknown outcome must stay distinguishable.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch fault.KindOf(err) {
	case fault.Validation, fault.InsufficientBalance, fault.InsufficientAllowance:
		status = http.StatusBadRequest
	case fault.SimulationReverted, fault.TransactionReverted:
		status = http.StatusUnprocessableEntity
	case fault.ConfirmationTimeout:
		// Outcome unknown: pending, not failed.
		status = http.StatusAccepted
	case fault.ActionInProgress:
		status = http.StatusTooManyRequests
	case fault.NoWalletConnected:
		status = http.StatusServiceUnavailable
	case fault.UserRejected:
		status = http.StatusConflict
	}
	if errors.Is(err, context.Canceled) {
		status = 499
	}

	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"kind":    string(fault.KindOf(err)),
			"message": err.Error(),
		},
	})
}
