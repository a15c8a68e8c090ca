package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketpulse/internal/domain/models"
	"marketpulse/pkg/logger"
)

// Config holds provider stream settings.
type Config struct {
	URL            string
	APIKey         string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// QuoteStream maintains a WebSocket subscription to the provider's quote
// feed and keeps the last quote per symbol. Adapters consult Last before
// falling back to REST.
type QuoteStream struct {
	cfg Config
	log *logger.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	last      map[string]*models.Quote
}

func New(cfg Config, log *logger.Logger) *QuoteStream {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &QuoteStream{
		cfg:  cfg,
		log:  log,
		last: make(map[string]*models.Quote),
	}
}

// Last returns the most recent streamed quote for the symbol.
func (s *QuoteStream) Last(symbol string) (*models.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.last[symbol]
	return q, ok
}

// Connect establishes the WebSocket connection.
func (s *QuoteStream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.cfg.URL, s.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("quote stream connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.log.Info("quote stream connected", logger.String("url", s.cfg.URL))
	return nil
}

// Subscribe subscribes to the configured symbols.
func (s *QuoteStream) Subscribe(ctx context.Context) error {
	s.mu.RLock()
	conn, connected := s.conn, s.connected
	s.mu.RUnlock()
	if conn == nil || !connected {
		return fmt.Errorf("quote stream not connected")
	}
	for _, sym := range s.cfg.Symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
		s.log.Debug("quote stream subscribed", logger.String("symbol", sym))
	}
	return nil
}

type wireQuote struct {
	Symbol    string  `json:"s"`
	Market    string  `json:"m"`
	Price     float64 `json:"p"`
	PrevClose float64 `json:"pc"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"` // ms
}

type wireMessage struct {
	Type string      `json:"type"`
	Data []wireQuote `json:"data"`
}

// Run drives the stream until ctx is cancelled, reconnecting on read
// failures. Call after Connect and Subscribe.
func (s *QuoteStream) Run(ctx context.Context) {
	go s.pingLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			if err := s.reconnect(ctx); err != nil {
				s.log.Error("quote stream reconnect failed", logger.Error(err))
			}
			continue
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("quote stream read failed", logger.Error(err))
			if err := s.reconnect(ctx); err != nil {
				s.log.Error("quote stream reconnect failed", logger.Error(err))
			}
			continue
		}

		var m wireMessage
		if err := json.Unmarshal(b, &m); err != nil || m.Type != "quote" {
			// ignore non-quote frames
			continue
		}
		s.absorb(m.Data)
	}
}

func (s *QuoteStream) absorb(quotes []wireQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range quotes {
		s.last[w.Symbol] = &models.Quote{
			Symbol:    w.Symbol,
			Market:    w.Market,
			Price:     w.Price,
			PrevClose: w.PrevClose,
			Volume:    w.Volume,
			AsOf:      time.UnixMilli(w.Timestamp).UTC(),
		}
	}
}

func (s *QuoteStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *QuoteStream) reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.ReconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the connection.
func (s *QuoteStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (s *QuoteStream) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
