package engine

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/simpletech310/redline/internal/model"
)

// --- Request types ---

// RegisterAccountRequest is the JSON body for POST /api/v1/accounts.
type RegisterAccountRequest struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// CreateRunRequest is the JSON body for POST /api/v1/runs.
type CreateRunRequest struct {
	CreatorID    string          `json:"creator_id"`
	Name         string          `json:"name"`
	Type         model.RunType   `json:"type"`
	Schedule     time.Time       `json:"schedule"`
	Location     string          `json:"location"`
	Description  string          `json:"description"`
	ClassTag     string          `json:"class_tag"`
	EntryFee     decimal.Decimal `json:"entry_fee"`
	AccessFee    decimal.Decimal `json:"access_fee"`
	PicksEnabled bool            `json:"picks_enabled"`
}

// JoinRunRequest is the JSON body for POST /api/v1/runs/{runID}/join.
type JoinRunRequest struct {
	UserID string `json:"user_id"`
}

// PurchaseAccessRequest is the JSON body for POST /api/v1/runs/{runID}/access.
type PurchaseAccessRequest struct {
	UserID string `json:"user_id"`
}

// PlacePickRequest is the JSON body for POST /api/v1/picks.
type PlacePickRequest struct {
	UserID      string          `json:"user_id"`
	RunID       string          `json:"run_id"`
	PredictedID string          `json:"predicted_id"`
	Stake       decimal.Decimal `json:"stake"`
}

// PostResultsRequest is the JSON body for POST /api/v1/runs/{runID}/results.
type PostResultsRequest struct {
	ActorID  string             `json:"actor_id"`
	WinnerID string             `json:"winner_id"`
	Times    map[string]float64 `json:"times"` // participant id → seconds
}

// DepositRequest is the JSON body for POST /api/v1/wallets/{userID}/deposits.
// ExternalRef is the payment provider's event reference and doubles as the
// idempotency key.
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	ExternalRef string          `json:"external_ref"`
}

// --- Handlers ---

// HandleRegisterAccount handles POST /api/v1/accounts
func (s *Service) HandleRegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	acct, err := s.RegisterAccount(r.Context(), req.Username, req.Role)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// HandleCreateRun handles POST /api/v1/runs
func (s *Service) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CreatorID == "" || req.Name == "" {
		writeError(w, "creator_id and name are required", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = model.RunTypeRace
	}

	run, err := s.CreateRun(r.Context(), req.CreatorID, CreateRunParams{
		Name:         req.Name,
		Type:         req.Type,
		Schedule:     req.Schedule,
		Location:     req.Location,
		Description:  req.Description,
		ClassTag:     req.ClassTag,
		EntryFee:     req.EntryFee,
		AccessFee:    req.AccessFee,
		PicksEnabled: req.PicksEnabled,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// HandleListRuns handles GET /api/v1/runs
func (s *Service) HandleListRuns(w http.ResponseWriter, _ *http.Request) {
	runs := s.ListRuns()
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleGetRun handles GET /api/v1/runs/{runID}
func (s *Service) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleJoinRun handles POST /api/v1/runs/{runID}/join
func (s *Service) HandleJoinRun(w http.ResponseWriter, r *http.Request) {
	var req JoinRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	run, err := s.JoinRun(r.Context(), req.UserID, chi.URLParam(r, "runID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandlePurchaseAccess handles POST /api/v1/runs/{runID}/access
func (s *Service) HandlePurchaseAccess(w http.ResponseWriter, r *http.Request) {
	var req PurchaseAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	run, err := s.PurchaseAccess(r.Context(), req.UserID, chi.URLParam(r, "runID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandlePlacePick handles POST /api/v1/picks
func (s *Service) HandlePlacePick(w http.ResponseWriter, r *http.Request) {
	var req PlacePickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.RunID == "" || req.PredictedID == "" {
		writeError(w, "user_id, run_id, and predicted_id are required", http.StatusBadRequest)
		return
	}

	pick, err := s.PlacePick(r.Context(), req.UserID, req.RunID, req.PredictedID, req.Stake)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pick)
}

// HandleListPicks handles GET /api/v1/runs/{runID}/picks
func (s *Service) HandleListPicks(w http.ResponseWriter, r *http.Request) {
	picks, err := s.ListPicks(chi.URLParam(r, "runID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if picks == nil {
		picks = []model.Pick{}
	}
	writeJSON(w, http.StatusOK, picks)
}

// HandlePostResults handles POST /api/v1/runs/{runID}/results
func (s *Service) HandlePostResults(w http.ResponseWriter, r *http.Request) {
	var req PostResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ActorID == "" || req.WinnerID == "" {
		writeError(w, "actor_id and winner_id are required", http.StatusBadRequest)
		return
	}

	snapshot, err := s.PostResults(r.Context(), req.ActorID, chi.URLParam(r, "runID"), req.WinnerID, req.Times)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// HandleGetWallet handles GET /api/v1/wallets/{userID}
func (s *Service) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	view, err := s.GetWallet(chi.URLParam(r, "userID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if view.Entries == nil {
		view.Entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDeposit handles POST /api/v1/wallets/{userID}/deposits
func (s *Service) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := s.Deposit(r.Context(), chi.URLParam(r, "userID"), req.Amount, req.ExternalRef)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleGetCard handles GET /api/v1/cards/{userID}
func (s *Service) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.GetCard(chi.URLParam(r, "userID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if snap.History == nil {
		snap.History = []model.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, snap)
}

// Routes mounts every engine endpoint on the given router.
func (s *Service) Routes(r chi.Router) {
	r.Post("/accounts", s.HandleRegisterAccount)

	r.Get("/runs", s.HandleListRuns)
	r.Post("/runs", s.HandleCreateRun)
	r.Get("/runs/{runID}", s.HandleGetRun)
	r.Post("/runs/{runID}/join", s.HandleJoinRun)
	r.Post("/runs/{runID}/access", s.HandlePurchaseAccess)
	r.Get("/runs/{runID}/picks", s.HandleListPicks)
	r.Post("/runs/{runID}/results", s.HandlePostResults)

	r.Post("/picks", s.HandlePlacePick)

	r.Get("/wallets/{userID}", s.HandleGetWallet)
	r.Post("/wallets/{userID}/deposits", s.HandleDeposit)

	r.Get("/cards/{userID}", s.HandleGetCard)
}

// --- Response helpers ---

// httpStatus maps an engine error kind to a protocol status code.
func httpStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation:
			return http.StatusBadRequest
		case KindPermission:
			return http.StatusForbidden
		case KindState:
			return http.StatusConflict
		case KindNotFound:
			return http.StatusNotFound
		case KindInsufficientFunds:
			return http.StatusPaymentRequired
		}
	}
	return http.StatusInternalServerError
}

func writeEngineError(w http.ResponseWriter, err error) {
	var e *Error
	if errors.As(err, &e) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus(err))
		json.NewEncoder(w).Encode(map[string]string{"error": e.Error(), "code": e.Code})
		return
	}
	writeError(w, err.Error(), http.StatusInternalServerError)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
