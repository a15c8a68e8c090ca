package di

import (
	"context"
	"fmt"
	"time"

	"marketpulse/internal/domain/repository"
	dservice "marketpulse/internal/domain/service"
	"marketpulse/internal/handler/api"
	"marketpulse/internal/market"
	"marketpulse/internal/market/adapters"
	internalrepo "marketpulse/internal/repository"
	"marketpulse/internal/service/analysiscache"
	"marketpulse/internal/service/oracle"
	"marketpulse/internal/service/stream"
	"marketpulse/internal/usecase"
	"marketpulse/pkg/cache"
	pkgch "marketpulse/pkg/clickhouse"
	"marketpulse/pkg/config"
	xhttp "marketpulse/pkg/http"
	pkgkafka "marketpulse/pkg/kafka"
	applogger "marketpulse/pkg/logger"
	pkgmetrics "marketpulse/pkg/metrics"
	"marketpulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS marketpulse",
		`CREATE TABLE IF NOT EXISTS marketpulse.analysis_records (
			instrument String, timeframe String, kind String,
			created_at DateTime64(3), freshness_sec Int64, payload String
		) ENGINE=MergeTree ORDER BY (instrument, timeframe, kind, created_at)`,
		`CREATE TABLE IF NOT EXISTS marketpulse.signals (
			id String, instrument String, timeframe String, strategy String,
			signal_type String, strength Float64, confidence Float64,
			price_target Float64, stop_loss Float64, risk_reward Float64,
			rationale String, key_factors String, time_horizon String,
			created_at DateTime64(3), expires_at DateTime64(3)
		) ENGINE=MergeTree ORDER BY (instrument, timeframe, created_at)`,
		`CREATE TABLE IF NOT EXISTS marketpulse.patterns (
			id String, instrument String, timeframe String, pattern_type String,
			direction String, confidence Float64, status String,
			start_price Float64, end_price Float64,
			target_price Nullable(Float64), stop_price Nullable(Float64),
			description String, created_at DateTime64(3)
		) ENGINE=MergeTree ORDER BY (instrument, created_at)`,
		`CREATE TABLE IF NOT EXISTS marketpulse.predictions (
			id String, instrument String, timeframe String, kind String,
			value Float64, confidence Float64,
			created_at DateTime64(3), expires_at DateTime64(3)
		) ENGINE=MergeTree ORDER BY (instrument, created_at)`,
		`CREATE TABLE IF NOT EXISTS marketpulse.sentiment (
			id String, instrument String, source String, score Float64,
			summary String, observed_at DateTime64(3)
		) ENGINE=MergeTree ORDER BY (instrument, observed_at)`,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideAnalysisStore creates the ClickHouse-backed analysis store.
func ProvideAnalysisStore(chClient *pkgch.Client, log *applogger.Logger) repository.AnalysisStore {
	store := internalrepo.NewCHAnalysisStore(chClient)
	store.SetLogger(log)
	return store
}

// ProvideHotCache creates the optional Redis hot layer.
func ProvideHotCache(cfg *config.Config, log *applogger.Logger) cache.Service {
	if !cfg.Redis.Enabled {
		return nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("marketpulse"),
	)
	if err != nil {
		// Hot layer is optional; lookups fall back to the store.
		log.Error("redis hot cache unavailable, running without hot layer",
			applogger.String("host", cfg.Redis.Host),
			applogger.Error(err))
		return nil
	}
	return cache.NewLayeredCache(rc)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher creates the Kafka-backed event publisher and hooks
// up aggregated log shipping on the same producer.
func ProvideEventPublisher(producer *pkgkafka.Producer, log *applogger.Logger) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	log.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "marketpulse.logs",
		Publisher:      kafkaLogPublisher{producer},
	})
	return internalrepo.NewKafkaEventPublisher(producer, log)
}

type kafkaLogPublisher struct {
	p *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.p.Publish(ctx, topic, nil, payload)
}

// ProvideKafkaConsumer creates the sentiment consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Sentiment.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Sentiment.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Sentiment.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Sentiment.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Sentiment.RetryMax, cfg.Kafka.Sentiment.BackoffMin, cfg.Kafka.Sentiment.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Sentiment.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Sentiment.MinBytes, cfg.Kafka.Sentiment.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.ObserverHook{
		OnHandled: func(topic string, elapsed time.Duration, err error) {
			m.RecordLatency("consume_"+topic, elapsed.Seconds())
			if err != nil {
				m.RecordError("consume")
				log.Error("message handling failed",
					applogger.String("topic", topic),
					applogger.Error(err))
			}
		},
	})
	return consumer, nil
}

// ProvideSentimentHandler registers the handler for the sentiment topic.
func ProvideSentimentHandler(store repository.AnalysisStore, m repository.Metrics, cfg *config.Config) *usecase.SentimentHandler {
	return usecase.NewSentimentHandler(cfg.Kafka.Sentiment.Topic, store, m)
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return pkgmetrics.New()
}

// ProvideQuoteStream creates the provider WebSocket stream, or nil when
// disabled.
func ProvideQuoteStream(cfg *config.Config, log *applogger.Logger) *stream.QuoteStream {
	if !cfg.Provider.Stream.Enabled {
		return nil
	}
	return stream.New(stream.Config{
		URL:            cfg.Provider.Stream.URL,
		APIKey:         cfg.Provider.APIKey,
		Symbols:        cfg.Provider.Stream.Symbols,
		ReconnectDelay: cfg.Provider.Stream.ReconnectDelay,
		PingInterval:   cfg.Provider.Stream.PingInterval,
	}, log)
}

// ProvideRegistry builds the adapter registry from the enabled markets.
func ProvideRegistry(cfg *config.Config, quotes *stream.QuoteStream, log *applogger.Logger) (*market.Registry, error) {
	acfg := adapters.Config{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
	}
	year := cfg.Markets.CalendarYear
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	// Typed nil would defeat the nil checks inside the adapter.
	var src adapters.QuoteSource
	if quotes != nil {
		src = quotes
	}

	reg := market.NewRegistry()
	for _, id := range cfg.Markets.Enabled {
		var (
			a   market.Adapter
			err error
		)
		switch id {
		case "NSE":
			a, err = adapters.NewNSE(acfg, src, log, year)
		case "NYSE":
			a, err = adapters.NewNYSE(acfg, src, log, year)
		case "LSE":
			a, err = adapters.NewLSE(acfg, src, log, year)
		case "TSE":
			a, err = adapters.NewTSE(acfg, src, log, year)
		default:
			return nil, fmt.Errorf("unsupported market '%s'", id)
		}
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", id, err)
		}
		reg.Register(a)
	}
	return reg, nil
}

// ProvideScheduler creates the trading-hours scheduler.
func ProvideScheduler(reg *market.Registry) *market.Scheduler {
	return market.NewScheduler(reg)
}

// ProvideOracle creates the Kronos analysis client.
func ProvideOracle(cfg *config.Config, log *applogger.Logger) dservice.Oracle {
	return oracle.NewClient(oracle.Config{
		BaseURL:      cfg.Oracle.BaseURL,
		APIKey:       cfg.Oracle.APIKey,
		Timeout:      cfg.Oracle.Timeout,
		MaxRetries:   cfg.Oracle.MaxRetries,
		RetryBackoff: cfg.Oracle.RetryBackoff,
	}, log)
}

// ProvideAnalysisCache creates the freshness gate.
func ProvideAnalysisCache(store repository.AnalysisStore, hot cache.Service, m repository.Metrics, log *applogger.Logger) *analysiscache.Cache {
	return analysiscache.New(store, hot, m, log)
}

// ProvideSynthesizer creates the synthesis use case.
func ProvideSynthesizer(
	reg *market.Registry,
	orc dservice.Oracle,
	c *analysiscache.Cache,
	store repository.AnalysisStore,
	events repository.EventPublisher,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.Synthesizer {
	return usecase.NewSynthesizer(reg, orc, c, store, events, m, log)
}

// ProvideMarketService creates the market query use case.
func ProvideMarketService(reg *market.Registry, sched *market.Scheduler, log *applogger.Logger) *usecase.MarketService {
	return usecase.NewMarketService(reg, sched, log)
}

// ProvideHTTPHandler composes the API router.
func ProvideHTTPHandler(
	log *applogger.Logger,
	synth *usecase.Synthesizer,
	ms *usecase.MarketService,
	store repository.AnalysisStore,
) xhttp.Handler {
	analysis := api.NewAnalysisHandler(log, synth, store)
	markets := api.NewMarketsHandler(log, ms)
	return api.NewRouter(analysis, markets, store)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	chClient *pkgch.Client,
	consumer *pkgkafka.Consumer,
	sh *usecase.SentimentHandler,
	quotes *stream.QuoteStream,
	events repository.EventPublisher,
	handler xhttp.Handler,
) *server.App {
	var mh pkgkafka.MessageHandler
	if sh != nil {
		mh = sh
	}
	return server.New(cfg, log, chClient, consumer, mh, quotes, events, handler)
}
