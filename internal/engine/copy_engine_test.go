package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradecopier/config"
	"tradecopier/internal/adapter"
	"tradecopier/internal/engine"
	"tradecopier/internal/models"
)

const (
	testMasterAccountID   = "master-1"
	testFollowerAccountID = "follower-1"
	testCopierID          = "copier-1"
	testConfigID          = "config-1"
)

func newTestRegistry() *adapter.Registry {
	return adapter.NewRegistry(true, nil, 0, adapter.EndpointOverrides{})
}

func newTestEngine(t *testing.T, gw *fakeGateway, registry *adapter.Registry) *engine.Engine {
	t.Helper()
	cfg := &config.Config{
		HeartbeatInterval:         time.Hour,
		BalanceBasedReferenceSize: 50000,
	}
	return engine.NewEngine(cfg, gw, registry)
}

func seedMasterAndFollower(gw *fakeGateway, cfg models.CopierAccountConfig) {
	gw.addAccount(&models.TradingAccount{
		ID:          testMasterAccountID,
		Platform:    models.PlatformProjectX,
		Firm:        models.FirmTopstepX,
		IsConnected: true,
	})
	gw.addAccount(&models.TradingAccount{
		ID:             testFollowerAccountID,
		Platform:       models.PlatformTradovate,
		Firm:           models.FirmTakeProfitTrader,
		IsConnected:    true,
		CurrentBalance: 50000,
	})
	gw.addCopier(&models.Copier{
		ID:              testCopierID,
		MasterAccountID: testMasterAccountID,
		Status:          models.CopierActive,
		CopyEntries:     true,
		CopyExits:       true,
	})
	gw.addConfig(cfg)
}

func fixedContracts(n int) models.CopierAccountConfig {
	v := n
	return models.CopierAccountConfig{
		ID:             testConfigID,
		CopierID:       testCopierID,
		SlaveAccountID: testFollowerAccountID,
		ScalingType:    models.ScalingFixed,
		FixedContracts: &v,
		IsActive:       true,
	}
}

// startAndGetMasterAdapter starts the copier and returns the mock standing
// in for its master adapter, so the test can push a synthetic fill.
func startAndGetMasterAdapter(t *testing.T, eng *engine.Engine, registry *adapter.Registry) *adapter.MockAdapter {
	t.Helper()
	require.NoError(t, eng.Start(context.Background(), testCopierID))
	a, err := registry.GetAdapter(models.PlatformProjectX, models.FirmTopstepX)
	require.NoError(t, err)
	return a.(*adapter.MockAdapter)
}

func pushFill(master *adapter.MockAdapter, qty int) {
	master.PushTrade(models.Execution{
		AccountID:       testMasterAccountID,
		Symbol:          "ES",
		Side:            models.SideBuy,
		Type:            models.OrderMarket,
		Quantity:        qty,
		Price:           5000,
		Status:          models.TradeFilled,
		ExternalOrderID: "mo-1",
		ExternalTradeID: "mt-1",
		FilledAt:        time.Now(),
	})
}

// waitForMapping polls for a TradeMapping to appear, failing the test if
// none is recorded for masterTradeID within two seconds.
func waitForMapping(t *testing.T, gw *fakeGateway, masterTradeID string) models.TradeMapping {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ms := gw.mappingsFor(masterTradeID); len(ms) > 0 {
			return ms[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no trade mapping recorded for master trade %s", masterTradeID)
	return models.TradeMapping{}
}

func masterTradeID(gw *fakeGateway) string {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	for i := len(gw.trades) - 1; i >= 0; i-- {
		if gw.trades[i].AccountID == testMasterAccountID {
			return gw.trades[i].ID
		}
	}
	return ""
}

func TestHappyPathFixedScaling(t *testing.T) {
	gw := newFakeGateway()
	seedMasterAndFollower(gw, fixedContracts(2))
	registry := newTestRegistry()
	eng := newTestEngine(t, gw, registry)

	master := startAndGetMasterAdapter(t, eng, registry)
	pushFill(master, 1)

	mtID := ""
	require.Eventually(t, func() bool {
		mtID = masterTradeID(gw)
		return mtID != ""
	}, 2*time.Second, 5*time.Millisecond)

	mapping := waitForMapping(t, gw, mtID)
	require.Equal(t, models.MappingSynced, mapping.Status)

	followerTrades := gw.tradesFor(testFollowerAccountID)
	require.Len(t, followerTrades, 1)
	require.Equal(t, 2, followerTrades[0].Quantity)

	masterTrades := gw.tradesFor(testMasterAccountID)
	require.Len(t, masterTrades, 1)
	require.Equal(t, 1, masterTrades[0].Quantity)
}

func TestPercentageScalingRoundsDown(t *testing.T) {
	scale := 0.5
	cfg := models.CopierAccountConfig{
		ID:              testConfigID,
		CopierID:        testCopierID,
		SlaveAccountID:  testFollowerAccountID,
		ScalingType:     models.ScalingPercentage,
		PercentageScale: &scale,
		IsActive:        true,
	}
	gw := newFakeGateway()
	seedMasterAndFollower(gw, cfg)
	registry := newTestRegistry()
	eng := newTestEngine(t, gw, registry)

	master := startAndGetMasterAdapter(t, eng, registry)
	pushFill(master, 3)

	require.Eventually(t, func() bool {
		return len(gw.tradesFor(testFollowerAccountID)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	followerTrades := gw.tradesFor(testFollowerAccountID)
	require.Equal(t, 1, followerTrades[0].Quantity) // floor(3 * 0.5) = 1
}

func TestBalanceBasedScaling(t *testing.T) {
	cfg := models.CopierAccountConfig{
		ID:             testConfigID,
		CopierID:       testCopierID,
		SlaveAccountID: testFollowerAccountID,
		ScalingType:    models.ScalingBalanceBased,
		IsActive:       true,
	}
	gw := newFakeGateway()
	seedMasterAndFollower(gw, cfg)
	gw.accounts[testFollowerAccountID].CurrentBalance = 25000 // half the 50000 reference
	registry := newTestRegistry()
	eng := newTestEngine(t, gw, registry)

	master := startAndGetMasterAdapter(t, eng, registry)
	pushFill(master, 4)

	require.Eventually(t, func() bool {
		return len(gw.tradesFor(testFollowerAccountID)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	followerTrades := gw.tradesFor(testFollowerAccountID)
	require.Equal(t, 2, followerTrades[0].Quantity) // 4 * (25000/50000) = 2
}

func TestRiskGateTripsAndAutoDisablesFollower(t *testing.T) {
	limit := 100.0
	cfg := fixedContracts(2)
	cfg.DailyLossLimit = &limit
	cfg.AutoDisable = true

	gw := newFakeGateway()
	seedMasterAndFollower(gw, cfg)
	gw.setPnLToday(testFollowerAccountID, -100) // exactly at the limit: >= rejects

	registry := newTestRegistry()
	eng := newTestEngine(t, gw, registry)

	master := startAndGetMasterAdapter(t, eng, registry)
	pushFill(master, 1)

	require.Eventually(t, func() bool {
		return len(gw.trades) > 0
	}, 2*time.Second, 5*time.Millisecond)
	// Give the (rejected) fan-out a moment to run; no follower trade or
	// mapping should ever appear.
	time.Sleep(50 * time.Millisecond)

	require.Empty(t, gw.tradesFor(testFollowerAccountID))
	require.Empty(t, gw.mappings)

	disabled := gw.configFor(testCopierID, testFollowerAccountID)
	require.False(t, disabled.IsActive)
	require.NotEmpty(t, disabled.DisabledReason)
}

func TestFollowerPlacementFailureRecordsFailedMapping(t *testing.T) {
	gw := newFakeGateway()
	seedMasterAndFollower(gw, fixedContracts(2))
	registry := newTestRegistry()
	eng := newTestEngine(t, gw, registry)

	master := startAndGetMasterAdapter(t, eng, registry)

	followerAdapter, err := registry.GetAdapter(models.PlatformTradovate, models.FirmTakeProfitTrader)
	require.NoError(t, err)
	followerAdapter.(*adapter.MockAdapter).FailNextPlaceOrder(&models.TransportError{Op: "placeOrder"})

	pushFill(master, 1)

	var mtID string
	require.Eventually(t, func() bool {
		mtID = masterTradeID(gw)
		return mtID != ""
	}, 2*time.Second, 5*time.Millisecond)

	mapping := waitForMapping(t, gw, mtID)
	require.Equal(t, models.MappingFailed, mapping.Status)
	require.NotEmpty(t, mapping.ErrorMessage)
	require.Empty(t, gw.tradesFor(testFollowerAccountID))

	gw.mu.Lock()
	var sawErrorLog bool
	for _, l := range gw.logs {
		if l.Level == models.LogError {
			sawErrorLog = true
		}
	}
	gw.mu.Unlock()
	require.True(t, sawErrorLog)
}

func TestModificationFanOutAmendsFollowerOrder(t *testing.T) {
	gw := newFakeGateway()
	seedMasterAndFollower(gw, fixedContracts(2))
	gw.copiers[testCopierID].CopyModifications = true
	registry := newTestRegistry()
	eng := newTestEngine(t, gw, registry)

	master := startAndGetMasterAdapter(t, eng, registry)
	pushFill(master, 1)

	require.Eventually(t, func() bool {
		return len(gw.tradesFor(testFollowerAccountID)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	newSL := 4950.0
	master.PushModification(models.OrderModification{
		AccountID:       testMasterAccountID,
		ExternalOrderID: "mo-1",
		StopLossPrice:   &newSL,
		ModifiedAt:      time.Now(),
	})

	// modifyFollower runs synchronously off PushModification, but give the
	// mapping lookup a moment in case it lands before the fill mapping does.
	time.Sleep(50 * time.Millisecond)

	gw.mu.Lock()
	var sawAmendLog bool
	for _, l := range gw.logs {
		if l.Message == "follower order amended" {
			sawAmendLog = true
		}
	}
	gw.mu.Unlock()
	require.True(t, sawAmendLog)
}

func TestModificationIgnoredWhenCopierDisallows(t *testing.T) {
	gw := newFakeGateway()
	seedMasterAndFollower(gw, fixedContracts(2)) // CopyModifications defaults false
	registry := newTestRegistry()
	eng := newTestEngine(t, gw, registry)

	master := startAndGetMasterAdapter(t, eng, registry)
	pushFill(master, 1)

	require.Eventually(t, func() bool {
		return len(gw.tradesFor(testFollowerAccountID)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	newSL := 4950.0
	master.PushModification(models.OrderModification{
		AccountID:       testMasterAccountID,
		ExternalOrderID: "mo-1",
		StopLossPrice:   &newSL,
		ModifiedAt:      time.Now(),
	})
	time.Sleep(50 * time.Millisecond)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	for _, l := range gw.logs {
		require.NotEqual(t, "follower order amended", l.Message)
	}
}

func TestReplayedMasterExecutionIsIdempotent(t *testing.T) {
	gw := newFakeGateway()
	seedMasterAndFollower(gw, fixedContracts(2))
	registry := newTestRegistry()
	eng := newTestEngine(t, gw, registry)

	master := startAndGetMasterAdapter(t, eng, registry)

	exec := models.Execution{
		AccountID:       testMasterAccountID,
		Symbol:          "ES",
		Side:            models.SideBuy,
		Type:            models.OrderMarket,
		Quantity:        1,
		Price:           5000,
		Status:          models.TradeFilled,
		ExternalOrderID: "mo-replay",
		ExternalTradeID: "mt-replay",
		FilledAt:        time.Now(),
	}

	master.PushTrade(exec)
	require.Eventually(t, func() bool {
		return len(gw.tradesFor(testFollowerAccountID)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The adapter's push stream redelivers the exact same fill (e.g. after
	// a reconnect). The master Trade's (accountId, externalTradeId)
	// uniqueness rejects the duplicate before fan-out ever runs a second
	// time, so no second follower Trade or TradeMapping is produced.
	master.PushTrade(exec)
	time.Sleep(50 * time.Millisecond)

	require.Len(t, gw.tradesFor(testMasterAccountID), 1)
	require.Len(t, gw.tradesFor(testFollowerAccountID), 1)

	mtID := masterTradeID(gw)
	require.Len(t, gw.mappingsFor(mtID), 1)
}
