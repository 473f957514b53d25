package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"tradecopier/internal/database"
	"tradecopier/internal/engine"
	"tradecopier/internal/models"
)

// APIHandler is the thin HTTP contract surface over the Persistence
// Gateway, Copier Engine and Account Manager. It never holds business
// logic of its own — it decodes, calls through, and encodes.
type APIHandler struct {
	gw       *database.Gateway
	eng      *engine.Engine
	accounts *engine.AccountManager
}

func NewAPIHandler(gw *database.Gateway, eng *engine.Engine, accounts *engine.AccountManager) *APIHandler {
	return &APIHandler{gw: gw, eng: eng, accounts: accounts}
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, APIResponse{Success: false, Error: message})
}

func (h *APIHandler) writeSuccess(w http.ResponseWriter, data interface{}, message string) {
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data, Message: message})
}

// statusForError maps the engine/gateway's typed errors to HTTP status
// codes; anything unrecognised is a 500.
func statusForError(err error) int {
	switch err.(type) {
	case *models.NotFoundError:
		return http.StatusNotFound
	case *models.ValidationError:
		return http.StatusBadRequest
	case *models.ConflictError:
		return http.StatusConflict
	case *models.UnauthorisedError:
		return http.StatusForbidden
	case *models.AlreadyRunningError:
		return http.StatusConflict
	case *models.NotConnectedError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// --- Accounts ---------------------------------------------------------------

type createAccountRequest struct {
	UserID         string             `json:"userId"`
	Firm           models.Firm        `json:"firm"`
	Platform       models.Platform    `json:"platform"`
	AccountNumber  string             `json:"accountNumber"`
	NominalSize    float64            `json:"nominalSize"`
	CurrentBalance float64            `json:"currentBalance"`
	Credentials    models.Credentials `json:"credentials"`
	MaxDrawdown    *float64           `json:"maxDrawdown,omitempty"`
	DailyLossLimit *float64           `json:"dailyLossLimit,omitempty"`
}

// CreateAccount persists a single TradingAccount directly, for the case
// where the caller already knows the account number rather than
// discovering it through ConnectPlatform.
func (h *APIHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	account := &models.TradingAccount{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Firm:           req.Firm,
		Platform:       req.Platform,
		AccountNumber:  req.AccountNumber,
		NominalSize:    req.NominalSize,
		CurrentBalance: req.CurrentBalance,
		Credentials:    req.Credentials,
		MaxDrawdown:    req.MaxDrawdown,
		DailyLossLimit: req.DailyLossLimit,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.gw.CreateTradingAccount(ctx, account); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, account, "account created")
}

func (h *APIHandler) GetAccountByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	account, err := h.gw.GetTradingAccount(ctx, id)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, account, "")
}

type updateAccountRequest struct {
	NominalSize    float64            `json:"nominalSize"`
	CurrentBalance float64            `json:"currentBalance"`
	Credentials    models.Credentials `json:"credentials"`
	MaxDrawdown    *float64           `json:"maxDrawdown,omitempty"`
	DailyLossLimit *float64           `json:"dailyLossLimit,omitempty"`
}

func (h *APIHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	account := &models.TradingAccount{
		ID:             id,
		NominalSize:    req.NominalSize,
		CurrentBalance: req.CurrentBalance,
		Credentials:    req.Credentials,
		MaxDrawdown:    req.MaxDrawdown,
		DailyLossLimit: req.DailyLossLimit,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.gw.UpdateTradingAccount(ctx, account); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, account, "account updated")
}

type connectPlatformRequest struct {
	UserID      string            `json:"userId"`
	Platform    models.Platform   `json:"platform"`
	Firm        models.Firm       `json:"firm"`
	Credentials models.Credentials `json:"credentials"`
}

func (h *APIHandler) ConnectPlatform(w http.ResponseWriter, r *http.Request) {
	var req connectPlatformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	summary, err := h.accounts.ConnectPlatform(ctx, req.Platform, req.Firm, req.Credentials)
	if err != nil {
		log.Error().Err(err).Msg("connectPlatform failed")
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, summary, "")
}

type createAccountsRequest struct {
	UserID      string                       `json:"userId"`
	Platform    models.Platform              `json:"platform"`
	Firm        models.Firm                  `json:"firm"`
	Discovered  []engine.DiscoveredAccount   `json:"discovered"`
	Credentials models.Credentials           `json:"credentials"`
}

func (h *APIHandler) CreateAccountsFromPlatform(w http.ResponseWriter, r *http.Request) {
	var req createAccountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	accounts, err := h.accounts.CreateAccountsFromPlatform(ctx, req.UserID, req.Platform, req.Firm, req.Discovered, req.Credentials)
	if err != nil {
		log.Error().Err(err).Msg("createAccountsFromPlatform failed")
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, accounts, "accounts created")
}

func (h *APIHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "userId parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	accounts, err := h.gw.ListTradingAccountsByUser(ctx, userID)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, accounts, "")
}

func (h *APIHandler) ConnectAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.accounts.Connect(ctx, id); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, nil, "account connected")
}

func (h *APIHandler) DisconnectAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.accounts.Disconnect(ctx, id); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, nil, "account disconnected")
}

type testConnectionRequest struct {
	Platform      models.Platform    `json:"platform"`
	Firm          models.Firm        `json:"firm"`
	Credentials   models.Credentials `json:"credentials"`
	AccountNumber string             `json:"accountNumber"`
}

func (h *APIHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req testConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result := h.accounts.TestConnection(ctx, req.Platform, req.Firm, req.Credentials, req.AccountNumber)
	h.writeSuccess(w, result, "")
}

func (h *APIHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.accounts.DeleteAccount(ctx, id); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, nil, "account deleted")
}

// --- Copiers ------------------------------------------------------------

func (h *APIHandler) CreateCopier(w http.ResponseWriter, r *http.Request) {
	var c models.Copier
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	c.ID = uuid.NewString()
	c.Status = models.CopierStopped

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.gw.CreateCopier(ctx, &c); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, c, "copier created")
}

func (h *APIHandler) GetCopiers(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "userId parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	copiers, err := h.gw.ListCopiersByUser(ctx, userID)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, copiers, "")
}

func (h *APIHandler) GetCopierByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	copier, err := h.gw.GetCopier(ctx, id)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, copier, "")
}

type updateCopierRequest struct {
	Name               string `json:"name"`
	LatencyToleranceMs int    `json:"latencyToleranceMs"`
	CopyEntries        bool   `json:"copyEntries"`
	CopyExits          bool   `json:"copyExits"`
	CopyModifications  bool   `json:"copyModifications"`
}

func (h *APIHandler) UpdateCopier(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateCopierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	c := &models.Copier{
		ID:                 id,
		Name:               req.Name,
		LatencyToleranceMs: req.LatencyToleranceMs,
		CopyEntries:        req.CopyEntries,
		CopyExits:          req.CopyExits,
		CopyModifications:  req.CopyModifications,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.gw.UpdateCopier(ctx, c); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, c, "copier updated")
}

// DeleteCopier refuses nothing itself — a running copier should be stopped
// first, but the gateway's cascades make a stale delete harmless either way.
func (h *APIHandler) DeleteCopier(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.gw.DeleteCopier(ctx, id); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, nil, "copier deleted")
}

func (h *APIHandler) AddSlave(w http.ResponseWriter, r *http.Request) {
	copierID := mux.Vars(r)["id"]

	var cfg models.CopierAccountConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	cfg.ID = uuid.NewString()
	cfg.CopierID = copierID
	cfg.IsActive = true

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.gw.CreateCopierAccountConfig(ctx, &cfg); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, cfg, "follower config created")
}

func (h *APIHandler) UpdateSlave(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	copierID, slaveAccountID := vars["id"], vars["slaveAccountId"]

	var cfg models.CopierAccountConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.gw.UpdateCopierAccountConfigBySlave(ctx, copierID, slaveAccountID, &cfg); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, cfg, "follower config updated")
}

func (h *APIHandler) RemoveSlave(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	copierID, slaveAccountID := vars["id"], vars["slaveAccountId"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.gw.DeleteCopierAccountConfigBySlave(ctx, copierID, slaveAccountID); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, nil, "follower config removed")
}

func (h *APIHandler) StartCopier(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.eng.Start(ctx, id); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, nil, "copier started")
}

func (h *APIHandler) StopCopier(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.eng.Stop(ctx, id); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, nil, "copier stopped")
}

func (h *APIHandler) PauseCopier(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.eng.Pause(ctx, id); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, nil, "copier paused")
}

func (h *APIHandler) GetCopierPerformance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	days := parseDays(r, 30)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	perf, err := h.gw.GetCopierPerformance(ctx, id, days)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, perf, "")
}

// --- Trades ---------------------------------------------------------------

func (h *APIHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("accountId")
	if accountID == "" {
		h.writeError(w, http.StatusBadRequest, "accountId parameter is required")
		return
	}
	limit := parseBounded(r, "limit", 50, 1, 1000)
	offset := parseBounded(r, "offset", 0, 0, 1_000_000)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	trades, err := h.gw.ListTradesByAccount(ctx, accountID, limit, offset)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, map[string]interface{}{
		"trades": trades,
		"pagination": map[string]interface{}{"limit": limit, "offset": offset, "count": len(trades)},
	}, "")
}

// GetTradesHistory is the copier-scoped counterpart to GetTrades, covering
// both the master trade and every follower trade a copier has produced.
func (h *APIHandler) GetTradesHistory(w http.ResponseWriter, r *http.Request) {
	copierID := r.URL.Query().Get("copierId")
	if copierID == "" {
		h.writeError(w, http.StatusBadRequest, "copierId parameter is required")
		return
	}
	limit := parseBounded(r, "limit", 50, 1, 1000)
	offset := parseBounded(r, "offset", 0, 0, 1_000_000)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	trades, err := h.gw.ListTradesByCopier(ctx, copierID, limit, offset)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, map[string]interface{}{
		"trades": trades,
		"pagination": map[string]interface{}{"limit": limit, "offset": offset, "count": len(trades)},
	}, "")
}

func (h *APIHandler) GetTradeMappingsByCopier(w http.ResponseWriter, r *http.Request) {
	copierID := mux.Vars(r)["copierId"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	mappings, err := h.gw.ListTradeMappingsByCopier(ctx, copierID)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, mappings, "")
}

func (h *APIHandler) GetTradeByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	trade, err := h.gw.GetTrade(ctx, id)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, trade, "")
}

func (h *APIHandler) GetAccountPerformance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	days := parseDays(r, 30)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	perf, err := h.gw.GetAccountPerformance(ctx, id, days)
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeSuccess(w, perf, "")
}

// --- Health -----------------------------------------------------------------

func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, dbErr := h.gw.ListCopiersByStatus(ctx, models.CopierActive)
	dbHealthy := dbErr == nil

	status := "healthy"
	httpStatus := http.StatusOK
	if !dbHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	h.writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"services":  map[string]interface{}{"database": dbHealthy},
	})
}

func parseDays(r *http.Request, def int) int {
	return parseBounded(r, "days", def, 1, 365)
}

func parseBounded(r *http.Request, param string, def, min, max int) int {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}

func (h *APIHandler) EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs every request at info, except /health, which is
// polled too often by load balancers to be worth the log volume.
func (h *APIHandler) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		evt := log.Info()
		if r.URL.Path == "/health" {
			evt = log.Debug()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("HTTP request")
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Router builds the full mux.Router for the API surface.
func (h *APIHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.LoggingMiddleware)
	r.Use(h.EnableCORS)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	r.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts", h.GetAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/test-connection", h.TestConnection).Methods(http.MethodPost)
	r.HandleFunc("/accounts/platforms/connect", h.ConnectPlatform).Methods(http.MethodPost)
	r.HandleFunc("/accounts/platforms/create-accounts", h.CreateAccountsFromPlatform).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}", h.GetAccountByID).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}", h.UpdateAccount).Methods(http.MethodPatch)
	r.HandleFunc("/accounts/{id}", h.DeleteAccount).Methods(http.MethodDelete)
	r.HandleFunc("/accounts/{id}/connect", h.ConnectAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}/disconnect", h.DisconnectAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}/performance", h.GetAccountPerformance).Methods(http.MethodGet)

	r.HandleFunc("/copiers", h.CreateCopier).Methods(http.MethodPost)
	r.HandleFunc("/copiers", h.GetCopiers).Methods(http.MethodGet)
	r.HandleFunc("/copiers/{id}", h.GetCopierByID).Methods(http.MethodGet)
	r.HandleFunc("/copiers/{id}", h.UpdateCopier).Methods(http.MethodPatch)
	r.HandleFunc("/copiers/{id}", h.DeleteCopier).Methods(http.MethodDelete)
	r.HandleFunc("/copiers/{id}/start", h.StartCopier).Methods(http.MethodPost)
	r.HandleFunc("/copiers/{id}/stop", h.StopCopier).Methods(http.MethodPost)
	r.HandleFunc("/copiers/{id}/pause", h.PauseCopier).Methods(http.MethodPost)
	r.HandleFunc("/copiers/{id}/performance", h.GetCopierPerformance).Methods(http.MethodGet)
	r.HandleFunc("/copiers/{id}/slaves", h.AddSlave).Methods(http.MethodPost)
	r.HandleFunc("/copiers/{id}/slaves/{slaveAccountId}", h.UpdateSlave).Methods(http.MethodPatch)
	r.HandleFunc("/copiers/{id}/slaves/{slaveAccountId}", h.RemoveSlave).Methods(http.MethodDelete)

	r.HandleFunc("/trades", h.GetTrades).Methods(http.MethodGet)
	r.HandleFunc("/trades/history", h.GetTradesHistory).Methods(http.MethodGet)
	r.HandleFunc("/trades/mappings/{copierId}", h.GetTradeMappingsByCopier).Methods(http.MethodGet)
	r.HandleFunc("/trades/{id}", h.GetTradeByID).Methods(http.MethodGet)

	return r
}
