package oracle

import (
	dservice "marketpulse/internal/domain/service"
)

// analysisPayload is the request body Kronos expects. Blocks absent from
// the gathered context are omitted rather than sent empty.
type analysisPayload struct {
	Instrument string            `json:"instrument"`
	Market     string            `json:"market,omitempty"`
	Timeframe  string            `json:"timeframe"`
	Strategy   string            `json:"strategy,omitempty"`
	Quote      *quoteBlock       `json:"quote,omitempty"`
	Indicators *indicatorBlock   `json:"indicators,omitempty"`
	Forecasts  []forecastBlock   `json:"forecasts,omitempty"`
	Sentiment  *sentimentBlock   `json:"sentiment,omitempty"`
	Patterns   []openPatternItem `json:"openPatterns,omitempty"`
}

type quoteBlock struct {
	Price     float64 `json:"price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prevClose"`
	ChangePct float64 `json:"changePct"`
	Volume    float64 `json:"volume"`
}

type indicatorBlock struct {
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macdSignal"`
	SMA50      float64 `json:"sma50"`
	SMA200     float64 `json:"sma200"`
	EMA20      float64 `json:"ema20"`
	ATR        float64 `json:"atr"`
}

type forecastBlock struct {
	Kind       string  `json:"kind"`
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

type sentimentBlock struct {
	AverageScore float64  `json:"averageScore"`
	SampleSize   int      `json:"sampleSize"`
	Summaries    []string `json:"summaries,omitempty"`
}

type openPatternItem struct {
	PatternType string  `json:"patternType"`
	Direction   string  `json:"direction"`
	Status      string  `json:"status"`
	Confidence  float64 `json:"confidence"`
}

const maxSentimentSummaries = 5

func buildPayload(ac dservice.AnalysisContext) analysisPayload {
	p := analysisPayload{
		Instrument: ac.Instrument,
		Market:     ac.Market,
		Timeframe:  ac.Timeframe,
		Strategy:   ac.Strategy,
	}

	if q := ac.Quote; q != nil {
		p.Quote = &quoteBlock{
			Price:     q.Price,
			Open:      q.Open,
			High:      q.High,
			Low:       q.Low,
			PrevClose: q.PrevClose,
			ChangePct: q.ChangePct(),
			Volume:    q.Volume,
		}
	}

	if in := ac.Indicators; in != nil {
		p.Indicators = &indicatorBlock{
			RSI:        in.RSI,
			MACD:       in.MACD,
			MACDSignal: in.MACDSignal,
			SMA50:      in.SMA50,
			SMA200:     in.SMA200,
			EMA20:      in.EMA20,
			ATR:        in.ATR,
		}
	}

	for _, f := range ac.Predictions {
		p.Forecasts = append(p.Forecasts, forecastBlock{
			Kind:       f.Kind,
			Value:      f.Value,
			Confidence: f.Confidence,
		})
	}

	if len(ac.Sentiment) > 0 {
		var sum float64
		var summaries []string
		for _, s := range ac.Sentiment {
			sum += s.Score
			if s.Summary != "" && len(summaries) < maxSentimentSummaries {
				summaries = append(summaries, s.Summary)
			}
		}
		p.Sentiment = &sentimentBlock{
			AverageScore: sum / float64(len(ac.Sentiment)),
			SampleSize:   len(ac.Sentiment),
			Summaries:    summaries,
		}
	}

	for _, op := range ac.OpenPatterns {
		p.Patterns = append(p.Patterns, openPatternItem{
			PatternType: op.PatternType,
			Direction:   string(op.Direction),
			Status:      string(op.Status),
			Confidence:  op.Confidence,
		})
	}

	return p
}
