package adapters

import (
	"context"
	"fmt"
	"time"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/market"
	httpkit "marketpulse/pkg/http"
	"marketpulse/pkg/logger"
)

// QuoteSource serves last-seen quotes from a live stream. Optional; when
// absent every Quote call goes to the provider REST API.
type QuoteSource interface {
	Last(symbol string) (*models.Quote, bool)
}

// Config holds the provider settings shared by all REST-backed adapters.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// providerAdapter implements Adapter on top of a market-data provider's REST
// API, with an optional streaming quote source consulted first.
type providerAdapter struct {
	id     string
	cal    *market.Calendar
	cfg    Config
	client *httpkit.Client
	stream QuoteSource
	log    *logger.Logger
}

func newProviderAdapter(id string, cal *market.Calendar, cfg Config, stream QuoteSource, log *logger.Logger) *providerAdapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &providerAdapter{
		id:     id,
		cal:    cal,
		cfg:    cfg,
		client: httpkit.NewClient(httpkit.WithTimeout(timeout)),
		stream: stream,
		log:    log,
	}
}

func (a *providerAdapter) ID() string                 { return a.id }
func (a *providerAdapter) Calendar() *market.Calendar { return a.cal }

func (a *providerAdapter) get(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	if params == nil {
		params = map[string][]string{}
	}
	params["market"] = []string{a.id}
	return a.client.SendAndParse(ctx, &httpkit.RequestOptions{
		Method:      httpkit.MethodGet,
		URL:         a.cfg.BaseURL + path,
		Headers:     map[string]string{"X-Api-Key": a.cfg.APIKey},
		QueryParams: params,
	}, dest)
}

type quotePayload struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prevClose"`
	Volume    float64 `json:"volume"`
	Currency  string  `json:"currency"`
	Timestamp int64   `json:"timestamp"` // ms
}

func (a *providerAdapter) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if a.stream != nil {
		if q, ok := a.stream.Last(symbol); ok {
			return q, nil
		}
	}

	var p quotePayload
	if err := a.get(ctx, "/v1/quote", map[string][]string{"symbol": {symbol}}, &p); err != nil {
		return nil, fmt.Errorf("%s quote %s: %w", a.id, symbol, err)
	}
	return &models.Quote{
		Symbol:    p.Symbol,
		Market:    a.id,
		Price:     p.Price,
		Open:      p.Open,
		High:      p.High,
		Low:       p.Low,
		PrevClose: p.PrevClose,
		Volume:    p.Volume,
		Currency:  p.Currency,
		AsOf:      time.UnixMilli(p.Timestamp).UTC(),
	}, nil
}

type indicatorPayload struct {
	Symbol     string  `json:"symbol"`
	Timeframe  string  `json:"timeframe"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macdSignal"`
	SMA50      float64 `json:"sma50"`
	SMA200     float64 `json:"sma200"`
	EMA20      float64 `json:"ema20"`
	ATR        float64 `json:"atr"`
	Timestamp  int64   `json:"timestamp"`
}

func (a *providerAdapter) Indicators(ctx context.Context, symbol, timeframe string) (*models.IndicatorSet, error) {
	var p indicatorPayload
	params := map[string][]string{"symbol": {symbol}, "timeframe": {timeframe}}
	if err := a.get(ctx, "/v1/indicators", params, &p); err != nil {
		return nil, fmt.Errorf("%s indicators %s/%s: %w", a.id, symbol, timeframe, err)
	}
	return &models.IndicatorSet{
		Symbol:     p.Symbol,
		Timeframe:  p.Timeframe,
		RSI:        p.RSI,
		MACD:       p.MACD,
		MACDSignal: p.MACDSignal,
		SMA50:      p.SMA50,
		SMA200:     p.SMA200,
		EMA20:      p.EMA20,
		ATR:        p.ATR,
		AsOf:       time.UnixMilli(p.Timestamp).UTC(),
	}, nil
}

type fundamentalsPayload struct {
	Symbol        string  `json:"symbol"`
	MarketCap     float64 `json:"marketCap"`
	PERatio       float64 `json:"peRatio"`
	EPS           float64 `json:"eps"`
	DividendYield float64 `json:"dividendYield"`
	BookValue     float64 `json:"bookValue"`
	DebtToEquity  float64 `json:"debtToEquity"`
	Timestamp     int64   `json:"timestamp"`
}

func (a *providerAdapter) Fundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	var p fundamentalsPayload
	if err := a.get(ctx, "/v1/fundamentals", map[string][]string{"symbol": {symbol}}, &p); err != nil {
		return nil, fmt.Errorf("%s fundamentals %s: %w", a.id, symbol, err)
	}
	return &models.Fundamentals{
		Symbol:        p.Symbol,
		MarketCap:     p.MarketCap,
		PERatio:       p.PERatio,
		EPS:           p.EPS,
		DividendYield: p.DividendYield,
		BookValue:     p.BookValue,
		DebtToEquity:  p.DebtToEquity,
		AsOf:          time.UnixMilli(p.Timestamp).UTC(),
	}, nil
}

type overviewPayload struct {
	IndexName  string  `json:"indexName"`
	IndexLevel float64 `json:"indexLevel"`
	ChangePct  float64 `json:"changePct"`
	Advancers  int     `json:"advancers"`
	Decliners  int     `json:"decliners"`
	Unchanged  int     `json:"unchanged"`
	Timestamp  int64   `json:"timestamp"`
}

func (a *providerAdapter) Overview(ctx context.Context) (*models.MarketOverview, error) {
	var p overviewPayload
	if err := a.get(ctx, "/v1/overview", nil, &p); err != nil {
		return nil, fmt.Errorf("%s overview: %w", a.id, err)
	}
	return &models.MarketOverview{
		Market:     a.id,
		IndexName:  p.IndexName,
		IndexLevel: p.IndexLevel,
		ChangePct:  p.ChangePct,
		Advancers:  p.Advancers,
		Decliners:  p.Decliners,
		Unchanged:  p.Unchanged,
		AsOf:       time.UnixMilli(p.Timestamp).UTC(),
	}, nil
}

type sentimentPayload struct {
	Items []struct {
		ID        string  `json:"id"`
		Source    string  `json:"source"`
		Score     float64 `json:"score"`
		Summary   string  `json:"summary"`
		Timestamp int64   `json:"timestamp"`
	} `json:"items"`
}

func (a *providerAdapter) Sentiment(ctx context.Context, symbol string) ([]models.SentimentRecord, error) {
	var p sentimentPayload
	if err := a.get(ctx, "/v1/sentiment", map[string][]string{"symbol": {symbol}}, &p); err != nil {
		return nil, fmt.Errorf("%s sentiment %s: %w", a.id, symbol, err)
	}
	records := make([]models.SentimentRecord, 0, len(p.Items))
	for _, it := range p.Items {
		records = append(records, models.SentimentRecord{
			ID:         it.ID,
			Instrument: symbol,
			Source:     it.Source,
			Score:      it.Score,
			Summary:    it.Summary,
			ObservedAt: time.UnixMilli(it.Timestamp).UTC(),
		})
	}
	return records, nil
}
