package models

// Requests for analysis and market HTTP endpoints. Defined in domain for
// consistency and reuse.

type SignalRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Market     string `query:"market" json:"market" default:"NSE" validate:"required"`
	Strategy   string `query:"strategy" json:"strategy" default:"swing" validate:"oneof=intraday swing positional"`
	Timeframe  string `query:"timeframe" json:"timeframe" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	Force      bool   `query:"force" json:"force"`
}

type PatternRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Market     string `query:"market" json:"market" default:"NSE" validate:"required"`
	Timeframe  string `query:"timeframe" json:"timeframe" default:"1d" validate:"oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	Force      bool   `query:"force" json:"force"`
}

type QuoteRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}
