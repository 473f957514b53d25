package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tradecopier/config"
	"tradecopier/internal/adapter"
	"tradecopier/internal/models"
)

// maxFanOutConcurrency bounds the errgroup used for one master fill's
// follower fan-out so a copier with many followers can't grow goroutines
// without limit.
const maxFanOutConcurrency = 16

// runningCopier is the live state for one ACTIVE copier: its master
// subscription disposers and heartbeat stop channel. Pause and Stop both
// remove it.
type runningCopier struct {
	dispose       adapter.Disposer
	disposeModif  adapter.Disposer
	stopHeartbeat chan struct{}
}

// Engine is the Copier Engine: owns the state machine, master subscriptions,
// fan-out, risk gate and scaling for every running copier.
type Engine struct {
	cfg      *config.Config
	gw       Gateway
	registry *adapter.Registry
	gate     *RiskGate
	classify *Classifier

	mu      sync.RWMutex
	running map[string]*runningCopier

	wg sync.WaitGroup
}

func NewEngine(cfg *config.Config, gw Gateway, registry *adapter.Registry) *Engine {
	return &Engine{
		cfg:      cfg,
		gw:       gw,
		registry: registry,
		gate:     NewRiskGate(gw),
		classify: NewClassifier(gw),
		running:  make(map[string]*runningCopier),
	}
}

// Start loads the copier, requires a connected master account, subscribes
// to its trade stream, starts the heartbeat, and persists ACTIVE.
func (e *Engine) Start(ctx context.Context, copierID string) error {
	e.mu.Lock()
	if _, ok := e.running[copierID]; ok {
		e.mu.Unlock()
		return &models.AlreadyRunningError{CopierID: copierID}
	}
	e.mu.Unlock()

	copier, err := e.gw.GetCopier(ctx, copierID)
	if err != nil {
		return err
	}

	master, err := e.gw.GetTradingAccount(ctx, copier.MasterAccountID)
	if err != nil {
		return err
	}
	if !master.IsConnected {
		return &models.NotConnectedError{AccountID: master.ID}
	}

	masterAdapter, err := e.registry.GetAdapter(master.Platform, master.Firm)
	if err != nil {
		return err
	}

	rc := &runningCopier{stopHeartbeat: make(chan struct{})}
	rc.dispose = masterAdapter.OnTradeUpdate(func(exec models.Execution) {
		e.handleMasterExecution(context.Background(), copierID, exec)
	})
	rc.disposeModif = masterAdapter.OnModification(func(mod models.OrderModification) {
		e.handleMasterModification(context.Background(), copierID, master.ID, mod)
	})

	e.mu.Lock()
	e.running[copierID] = rc
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runHeartbeat(copierID, masterAdapter, rc.stopHeartbeat)
	}()

	if err := e.gw.UpdateCopierStatus(ctx, copierID, models.CopierActive); err != nil {
		return err
	}
	e.logInfo(ctx, copierID, "copier started", nil)
	return nil
}

// Stop disposes the subscription, clears the heartbeat, and persists
// STOPPED. Idempotent.
func (e *Engine) Stop(ctx context.Context, copierID string) error {
	return e.halt(ctx, copierID, models.CopierStopped)
}

// Pause is equivalent to Stop at the runtime level but persists PAUSED.
func (e *Engine) Pause(ctx context.Context, copierID string) error {
	return e.halt(ctx, copierID, models.CopierPaused)
}

func (e *Engine) halt(ctx context.Context, copierID string, status models.CopierStatus) error {
	e.mu.Lock()
	rc, ok := e.running[copierID]
	if ok {
		delete(e.running, copierID)
	}
	e.mu.Unlock()

	if ok {
		close(rc.stopHeartbeat)
		rc.dispose()
		rc.disposeModif()
	}

	if err := e.gw.UpdateCopierStatus(ctx, copierID, status); err != nil {
		return err
	}
	e.logInfo(ctx, copierID, fmt.Sprintf("copier %s", status), nil)
	return nil
}

// Fault transitions a copier to ERROR on an unrecoverable engine failure
// and disposes its master subscription.
func (e *Engine) Fault(ctx context.Context, copierID string, reason string) {
	e.mu.Lock()
	rc, ok := e.running[copierID]
	if ok {
		delete(e.running, copierID)
	}
	e.mu.Unlock()

	if ok {
		close(rc.stopHeartbeat)
		rc.dispose()
		rc.disposeModif()
	}

	if err := e.gw.UpdateCopierStatus(ctx, copierID, models.CopierError); err != nil {
		log.Error().Err(err).Str("copier", copierID).Msg("failed to persist ERROR status")
	}
	e.logError(ctx, copierID, fmt.Sprintf("engine fault: %s", reason), nil)
}

func (e *Engine) runHeartbeat(copierID string, a adapter.Adapter, stop chan struct{}) {
	interval := e.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.IsConnected() {
				log.Warn().Str("copier", copierID).Msg("master adapter session lost during heartbeat check")
			}
		}
	}
}

// handleMasterExecution runs the fan-out triggered by one master fill.
func (e *Engine) handleMasterExecution(ctx context.Context, copierID string, exec models.Execution) {
	copier, err := e.gw.GetCopier(ctx, copierID)
	if err != nil {
		log.Error().Err(err).Str("copier", copierID).Msg("failed to reload copier for fan-out")
		return
	}
	if copier.Status != models.CopierActive {
		return
	}

	isEntry, err := e.classify.IsEntry(ctx, exec.AccountID, exec)
	if err != nil {
		log.Error().Err(err).Str("copier", copierID).Msg("entry/exit classification failed")
		return
	}
	exec.IsEntry = isEntry
	if isEntry && !copier.CopyEntries {
		return
	}
	if !isEntry && !copier.CopyExits {
		return
	}

	masterTrade := &models.Trade{
		ID:              uuid.NewString(),
		AccountID:       exec.AccountID,
		CopierID:        &copier.ID,
		Symbol:          exec.Symbol,
		Side:            exec.Side,
		Type:            exec.Type,
		Quantity:        exec.Quantity,
		Status:          exec.Status,
		FilledAt:        &exec.FilledAt,
		ExternalOrderID: exec.ExternalOrderID,
		ExternalTradeID: exec.ExternalTradeID,
		StopLossPrice:   exec.StopLossPrice,
		TakeProfitPrice: exec.TakeProfitPrice,
	}
	if err := e.gw.CreateTrade(ctx, masterTrade); err != nil {
		if _, isConflict := err.(*models.ConflictError); isConflict {
			// Replayed master execution: already recorded on a prior delivery,
			// so fan-out already ran (or is running). Stop here rather than
			// risk placing duplicate follower orders.
			log.Debug().Str("copier", copierID).Str("externalTradeId", exec.ExternalTradeID).Msg("master execution already recorded, skipping fan-out")
			return
		}
		log.Error().Err(err).Str("copier", copierID).Msg("failed to persist master trade")
		return
	}

	configs, err := e.gw.GetActiveCopierAccountConfigs(ctx, copierID)
	if err != nil {
		log.Error().Err(err).Str("copier", copierID).Msg("failed to load follower configs")
		return
	}
	if len(configs) == 0 {
		return
	}

	e.fanOut(ctx, copier, masterTrade, exec, configs)
}

// fanOut places one order per active follower config, concurrently and
// best-effort: no follower's failure affects another.
func (e *Engine) fanOut(ctx context.Context, copier *models.Copier, masterTrade *models.Trade, exec models.Execution, configs []models.CopierAccountConfig) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOutConcurrency)

	var mu sync.Mutex
	var fanOutErrs *multierror.Error

	for i := range configs {
		cfg := configs[i]
		g.Go(func() error {
			if ferr := e.copyToFollower(gctx, copier, masterTrade, exec, cfg); ferr != nil {
				mu.Lock()
				fanOutErrs = multierror.Append(fanOutErrs, fmt.Errorf("follower %s: %w", cfg.SlaveAccountID, ferr))
				mu.Unlock()
			}
			return nil
		})
	}
	// errgroup's own first-error cancellation is deliberately unused: every
	// follower goroutine above returns nil to the group regardless of its
	// own outcome, so one failing follower never cancels its siblings.
	_ = g.Wait()

	if fanOutErrs != nil {
		log.Warn().Str("copier", copier.ID).Err(fanOutErrs).Msg("fan-out completed with follower errors")
		e.logWarn(ctx, copier.ID, "fan-out completed with follower errors", &masterTrade.ID, nil, fanOutErrs.Error())
	}
}

func (e *Engine) copyToFollower(ctx context.Context, copier *models.Copier, masterTrade *models.Trade, exec models.Execution, cfg models.CopierAccountConfig) error {
	approved, reason := e.gate.Evaluate(ctx, &cfg)
	if !approved {
		e.logWarn(ctx, copier.ID, "risk gate rejected follower copy", &masterTrade.ID, &cfg.SlaveAccountID, reason)
		return nil
	}

	follower, err := e.gw.GetTradingAccount(ctx, cfg.SlaveAccountID)
	if err != nil {
		return err
	}

	q := ScaleQuantity(exec.Quantity, cfg, follower.CurrentBalance, e.cfg.BalanceBasedReferenceSize)
	if q <= 0 {
		e.logInfo(ctx, copier.ID, "scaled quantity is zero, skipping follower", &masterTrade.ID)
		return nil
	}

	followerAdapter, err := e.registry.GetAdapter(follower.Platform, follower.Firm)
	if err != nil {
		return err
	}
	if !followerAdapter.IsConnected() {
		if connErr := followerAdapter.Connect(ctx, adapter.ConnectConfig{
			AccountNumber: follower.AccountNumber,
			Credentials:   follower.Credentials,
		}); connErr != nil {
			return e.recordFailedMapping(ctx, copier.ID, masterTrade.ID, cfg.SlaveAccountID, connErr)
		}
	}

	order := adapter.TradeOrder{
		Symbol:          exec.Symbol,
		Side:            exec.Side,
		Type:            models.OrderMarket,
		Quantity:        q,
		StopLossPrice:   exec.StopLossPrice,
		TakeProfitPrice: exec.TakeProfitPrice,
	}

	placed, placeErr := followerAdapter.PlaceOrder(ctx, order)
	if placeErr != nil {
		return e.recordFailedMapping(ctx, copier.ID, masterTrade.ID, cfg.SlaveAccountID, placeErr)
	}

	followerTrade := &models.Trade{
		ID:              uuid.NewString(),
		AccountID:       cfg.SlaveAccountID,
		CopierID:        &copier.ID,
		Symbol:          placed.Symbol,
		Side:            placed.Side,
		Type:            placed.Type,
		Quantity:        placed.Quantity,
		Status:          placed.Status,
		FilledAt:        &placed.FilledAt,
		ExternalOrderID: placed.ExternalOrderID,
		ExternalTradeID: placed.ExternalTradeID,
		StopLossPrice:   placed.StopLossPrice,
		TakeProfitPrice: placed.TakeProfitPrice,
	}
	if err := e.gw.CreateTrade(ctx, followerTrade); err != nil {
		return err
	}

	synced := models.MappingSynced
	now := time.Now()
	mapping := &models.TradeMapping{
		ID:             uuid.NewString(),
		CopierID:       copier.ID,
		MasterTradeID:  masterTrade.ID,
		SlaveAccountID: cfg.SlaveAccountID,
		SlaveTradeID:   followerTrade.ID,
		Status:         synced,
		SyncedAt:       &now,
	}
	if err := e.gw.CreateTradeMapping(ctx, mapping); err != nil {
		if _, isConflict := err.(*models.ConflictError); isConflict {
			// The fan-out already ran for this (masterTradeId, slaveAccountId)
			// pair — treat as success, not failure.
			return nil
		}
		return err
	}
	return nil
}

// handleMasterModification amends every synced follower trade when the
// master order it was copied from has its stop, target or quantity changed.
// Gated on copier.CopyModifications, mirroring the copyEntries/copyExits
// gates on the initial fill.
func (e *Engine) handleMasterModification(ctx context.Context, copierID, masterAccountID string, mod models.OrderModification) {
	copier, err := e.gw.GetCopier(ctx, copierID)
	if err != nil {
		log.Error().Err(err).Str("copier", copierID).Msg("failed to reload copier for modification fan-out")
		return
	}
	if copier.Status != models.CopierActive || !copier.CopyModifications {
		return
	}

	masterTrade, err := e.gw.FindTradeByExternalOrderID(ctx, masterAccountID, mod.ExternalOrderID)
	if err != nil {
		log.Warn().Err(err).Str("copier", copierID).Str("externalOrderId", mod.ExternalOrderID).Msg("modification referenced unknown master order")
		return
	}

	mappings, err := e.gw.ListTradeMappingsByMasterTrade(ctx, masterTrade.ID)
	if err != nil {
		log.Error().Err(err).Str("copier", copierID).Msg("failed to load trade mappings for modification fan-out")
		return
	}

	for _, m := range mappings {
		if m.Status != models.MappingSynced || m.SlaveTradeID == "" {
			continue
		}
		e.modifyFollower(ctx, copier, masterTrade, m, mod)
	}
}

func (e *Engine) modifyFollower(ctx context.Context, copier *models.Copier, masterTrade *models.Trade, mapping models.TradeMapping, mod models.OrderModification) {
	followerTrade, err := e.gw.GetTrade(ctx, mapping.SlaveTradeID)
	if err != nil {
		log.Error().Err(err).Str("copier", copier.ID).Str("slaveTrade", mapping.SlaveTradeID).Msg("failed to load follower trade for modification")
		return
	}

	follower, err := e.gw.GetTradingAccount(ctx, mapping.SlaveAccountID)
	if err != nil {
		log.Error().Err(err).Str("copier", copier.ID).Msg("failed to load follower account for modification")
		return
	}

	followerAdapter, err := e.registry.GetAdapter(follower.Platform, follower.Firm)
	if err != nil {
		log.Error().Err(err).Str("copier", copier.ID).Msg("failed to resolve follower adapter for modification")
		return
	}

	updates := adapter.OrderUpdates{StopLossPrice: mod.StopLossPrice, TakeProfitPrice: mod.TakeProfitPrice}
	if mod.Quantity != nil {
		cfg := e.followerConfig(ctx, copier.ID, mapping.SlaveAccountID)
		q := ScaleQuantity(*mod.Quantity, cfg, follower.CurrentBalance, e.cfg.BalanceBasedReferenceSize)
		updates.Quantity = &q
	}

	if err := followerAdapter.ModifyOrder(ctx, followerTrade.ExternalOrderID, updates); err != nil {
		e.logWarn(ctx, copier.ID, "follower modify failed", &masterTrade.ID, &mapping.SlaveAccountID, err.Error())
		return
	}
	e.logInfo(ctx, copier.ID, "follower order amended", &masterTrade.ID)
}

// followerConfig re-reads the follower's scaling config for one modification;
// best-effort, since a config lookup failure should still let stop/target
// amendments with no quantity change through untouched.
func (e *Engine) followerConfig(ctx context.Context, copierID, slaveAccountID string) models.CopierAccountConfig {
	configs, err := e.gw.GetActiveCopierAccountConfigs(ctx, copierID)
	if err != nil {
		return models.CopierAccountConfig{}
	}
	for _, cfg := range configs {
		if cfg.SlaveAccountID == slaveAccountID {
			return cfg
		}
	}
	return models.CopierAccountConfig{}
}

func (e *Engine) recordFailedMapping(ctx context.Context, copierID, masterTradeID, slaveAccountID string, cause error) error {
	mapping := &models.TradeMapping{
		ID:             uuid.NewString(),
		CopierID:       copierID,
		MasterTradeID:  masterTradeID,
		SlaveAccountID: slaveAccountID,
		Status:         models.MappingFailed,
		ErrorMessage:   cause.Error(),
	}
	if err := e.gw.CreateTradeMapping(ctx, mapping); err != nil {
		if _, isConflict := err.(*models.ConflictError); isConflict {
			return nil
		}
		log.Error().Err(err).Str("copier", copierID).Msg("failed to persist failed trade mapping")
	}
	e.logError(ctx, copierID, fmt.Sprintf("follower placement failed: %v", cause), &masterTradeID)
	return cause
}

func (e *Engine) logInfo(ctx context.Context, copierID, message string, masterTradeID *string) {
	e.writeLog(ctx, copierID, models.LogInfo, message, masterTradeID, nil, "")
}

func (e *Engine) logWarn(ctx context.Context, copierID, message string, masterTradeID, slaveAccountID *string, reason string) {
	full := message
	if reason != "" {
		full = fmt.Sprintf("%s: %s", message, reason)
	}
	e.writeLog(ctx, copierID, models.LogWarn, full, masterTradeID, slaveAccountID, "")
}

func (e *Engine) logError(ctx context.Context, copierID, message string, masterTradeID *string) {
	e.writeLog(ctx, copierID, models.LogError, message, masterTradeID, nil, "")
}

func (e *Engine) writeLog(ctx context.Context, copierID string, level models.LogLevel, message string, masterTradeID, slaveAccountID *string, slaveTradeID string) {
	entry := &models.ExecutionLog{
		ID:             uuid.NewString(),
		CopierID:       copierID,
		Level:          level,
		Message:        message,
		MasterTradeID:  masterTradeID,
		SlaveAccountID: slaveAccountID,
	}
	if slaveTradeID != "" {
		entry.SlaveTradeID = &slaveTradeID
	}
	if err := e.gw.CreateExecutionLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("copier", copierID).Msg("failed to write execution log")
	}
}

// Shutdown stops every running copier, giving each Stop its own 5-second
// timeout, then waits for the heartbeat goroutines to exit. It does not
// disconnect any adapter.
func (e *Engine) Shutdown(ctx context.Context) {
	e.mu.RLock()
	ids := make([]string, 0, len(e.running))
	for id := range e.running {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	for _, id := range ids {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := e.Stop(stopCtx, id); err != nil {
			log.Error().Err(err).Str("copier", id).Msg("failed to stop copier during shutdown")
		}
		cancel()
	}
	e.wg.Wait()
}

// RecoverActiveCopiers re-subscribes every copier whose persisted status
// is ACTIVE, relying on TradeMapping uniqueness for idempotency against
// any replayed executions.
func (e *Engine) RecoverActiveCopiers(ctx context.Context) {
	copiers, err := e.gw.ListCopiersByStatus(ctx, models.CopierActive)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active copiers for crash recovery")
		return
	}
	for _, c := range copiers {
		if err := e.Start(ctx, c.ID); err != nil {
			if _, already := err.(*models.AlreadyRunningError); already {
				continue
			}
			log.Error().Err(err).Str("copier", c.ID).Msg("failed to recover copier on startup")
		}
	}
}
