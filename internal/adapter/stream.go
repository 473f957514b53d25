package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tradecopier/internal/models"
)

// streamDecoder turns one raw push-stream frame into zero or more
// normalised Executions / Positions. Each concrete adapter supplies its own
// decoder since wire shapes differ per platform family.
type streamDecoder interface {
	DecodeTrade(frame map[string]interface{}) (models.Execution, bool)
	DecodePosition(frame map[string]interface{}) (models.Position, bool)
	DecodeModification(frame map[string]interface{}) (models.OrderModification, bool)
	SubscribeFrame(accountNumber string) interface{}
}

// pollFetcher is called on the polling-fallback timer when the auth
// response issued no session token to open a push stream against.
type pollFetcher func(ctx context.Context) ([]models.Execution, error)

const (
	maxReconnectAttempts = 5
	pollInterval         = 5 * time.Second
	pingInterval         = 30 * time.Second
	readDeadline         = 60 * time.Second
)

// stream owns one push-stream (or polling-fallback) subscription for one
// account, following the reconnect policy in the connection protocol:
// backoff min(1000*2^attempt, 30000)ms up to 5 attempts, then give up and
// mark the adapter disconnected.
type stream struct {
	wsURL         string
	accountNumber string
	decoder       streamDecoder
	poll          pollFetcher

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	shutdown  chan struct{}
	wg        sync.WaitGroup

	onTrade        []TradeUpdateFunc
	onPosition     []PositionUpdateFunc
	onModification []ModificationUpdateFunc
	cbMu           sync.Mutex

	onExhausted func()
}

func newStream(wsURL, accountNumber string, decoder streamDecoder, poll pollFetcher, onExhausted func()) *stream {
	return &stream{
		wsURL:         wsURL,
		accountNumber: accountNumber,
		decoder:       decoder,
		poll:          poll,
		shutdown:      make(chan struct{}),
		onExhausted:   onExhausted,
	}
}

func (s *stream) start(ctx context.Context) error {
	if s.wsURL == "" || s.poll != nil {
		s.startPolling(ctx)
		return nil
	}
	return s.connectWithRetry(ctx, 0)
}

func (s *stream) connectWithRetry(ctx context.Context, attempt int) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		if attempt >= maxReconnectAttempts {
			log.Warn().Str("account", s.accountNumber).Msg("stream reconnect attempts exhausted")
			if s.onExhausted != nil {
				s.onExhausted()
			}
			return &models.TransportError{Op: "stream connect", Err: err}
		}
		delay := backoffDelay(attempt)
		select {
		case <-time.After(delay):
			return s.connectWithRetry(ctx, attempt+1)
		case <-s.shutdown:
			return nil
		}
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	if err := conn.WriteJSON(s.decoder.SubscribeFrame(s.accountNumber)); err != nil {
		return &models.TransportError{Op: "subscribe", Err: err}
	}

	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.pingLoop()
	return nil
}

func backoffDelay(attempt int) time.Duration {
	ms := 1000 * (1 << attempt)
	if ms > 30000 {
		ms = 30000
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *stream) readLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		s.conn.SetReadDeadline(time.Now().Add(readDeadline))
		var frame map[string]interface{}
		if err := s.conn.ReadJSON(&frame); err != nil {
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()
			select {
			case <-s.shutdown:
				return
			default:
				log.Warn().Err(err).Str("account", s.accountNumber).Msg("stream read failed, reconnecting")
				_ = s.connectWithRetry(ctx, 0)
				return
			}
		}
		s.dispatch(frame)
	}
}

func (s *stream) dispatch(frame map[string]interface{}) {
	if exec, ok := s.decoder.DecodeTrade(frame); ok {
		s.cbMu.Lock()
		cbs := append([]TradeUpdateFunc{}, s.onTrade...)
		s.cbMu.Unlock()
		for _, cb := range cbs {
			cb(exec)
		}
	}
	if pos, ok := s.decoder.DecodePosition(frame); ok {
		s.cbMu.Lock()
		cbs := append([]PositionUpdateFunc{}, s.onPosition...)
		s.cbMu.Unlock()
		for _, cb := range cbs {
			cb(pos)
		}
	}
	if mod, ok := s.decoder.DecodeModification(frame); ok {
		s.cbMu.Lock()
		cbs := append([]ModificationUpdateFunc{}, s.onModification...)
		s.cbMu.Unlock()
		for _, cb := range cbs {
			cb(mod)
		}
	}
}

func (s *stream) pingLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		case <-s.shutdown:
			return
		}
	}
}

func (s *stream) startPolling(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if s.poll == nil {
					continue
				}
				execs, err := s.poll(ctx)
				if err != nil {
					log.Warn().Err(err).Str("account", s.accountNumber).Msg("polling fetch failed")
					continue
				}
				s.cbMu.Lock()
				cbs := append([]TradeUpdateFunc{}, s.onTrade...)
				s.cbMu.Unlock()
				for _, exec := range execs {
					for _, cb := range cbs {
						cb(exec)
					}
				}
			case <-s.shutdown:
				return
			}
		}
	}()
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
}

func (s *stream) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *stream) stop() {
	s.mu.Lock()
	if !s.connected && s.conn == nil {
		s.mu.Unlock()
		return
	}
	s.connected = false
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
	if conn != nil {
		_ = conn.Close()
	}
	s.wg.Wait()
}

func (s *stream) addTradeCallback(cb TradeUpdateFunc) Disposer {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onTrade = append(s.onTrade, cb)
	idx := len(s.onTrade) - 1
	return func() {
		s.cbMu.Lock()
		defer s.cbMu.Unlock()
		if idx < len(s.onTrade) {
			s.onTrade = append(s.onTrade[:idx], s.onTrade[idx+1:]...)
		}
	}
}

func (s *stream) addPositionCallback(cb PositionUpdateFunc) Disposer {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onPosition = append(s.onPosition, cb)
	idx := len(s.onPosition) - 1
	return func() {
		s.cbMu.Lock()
		defer s.cbMu.Unlock()
		if idx < len(s.onPosition) {
			s.onPosition = append(s.onPosition[:idx], s.onPosition[idx+1:]...)
		}
	}
}

func (s *stream) addModificationCallback(cb ModificationUpdateFunc) Disposer {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onModification = append(s.onModification, cb)
	idx := len(s.onModification) - 1
	return func() {
		s.cbMu.Lock()
		defer s.cbMu.Unlock()
		if idx < len(s.onModification) {
			s.onModification = append(s.onModification[:idx], s.onModification[idx+1:]...)
		}
	}
}

func (s *stream) clearCallbacks() {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onTrade = nil
	s.onPosition = nil
	s.onModification = nil
}
