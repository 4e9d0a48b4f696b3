package di

import (
	"context"
	"fmt"
	"time"

	"MacroCompass/internal/domain/repository"
	"MacroCompass/internal/handler/api"
	"MacroCompass/internal/middleware"
	internalrepo "MacroCompass/internal/repository"
	"MacroCompass/internal/service/alphavantage"
	"MacroCompass/internal/service/breaker"
	icache "MacroCompass/internal/service/cache"
	"MacroCompass/internal/service/fred"
	"MacroCompass/internal/service/ratelimit"
	"MacroCompass/internal/service/yahoo"
	"MacroCompass/internal/services/regime"
	"MacroCompass/internal/usecase"
	pkgcache "MacroCompass/pkg/cache"
	pkgch "MacroCompass/pkg/clickhouse"
	"MacroCompass/pkg/config"
	xhttp "MacroCompass/pkg/http"
	pkgkafka "MacroCompass/pkg/kafka"
	applogger "MacroCompass/pkg/logger"
	"MacroCompass/pkg/metrics"
	"MacroCompass/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideBreakers creates the provider circuit breakers.
func ProvideBreakers(cfg *config.Config, l *applogger.Logger) *breaker.Group {
	return breaker.NewGroup(breaker.Config{
		ConsecutiveFailures: cfg.Providers.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Providers.Breaker.OpenTimeout,
	}, l)
}

// ProvideHTTPClient creates the outbound client shared by the JSON APIs.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Regime.HTTPTimeout))
}

// ProvideMacroSource creates the FRED client.
func ProvideMacroSource(cfg *config.Config, hc *xhttp.Client, br *breaker.Group) repository.MacroSource {
	return fred.New(hc, cfg.Providers.FRED.BaseURL, cfg.Providers.FRED.APIKey, br)
}

// ProvidePriceSource creates the Yahoo chart client. Yahoo rejects requests
// without a browser-like User-Agent, so it gets its own transport.
func ProvidePriceSource(cfg *config.Config, br *breaker.Group) repository.PriceSource {
	hc := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Regime.HTTPTimeout),
		xhttp.WithUserAgent(cfg.Providers.Yahoo.UserAgent),
	)
	return yahoo.New(hc, cfg.Providers.Yahoo.BaseURL, cfg.Providers.Yahoo.Range, br)
}

// ProvideSentimentSource creates the rate-limited Alpha Vantage client.
func ProvideSentimentSource(cfg *config.Config, hc *xhttp.Client, br *breaker.Group) repository.SentimentSource {
	av := cfg.Providers.AlphaVantage
	return alphavantage.New(hc, av.BaseURL, av.APIKey, ratelimit.New(av.RatePerMinute, 1), br)
}

// ProvideIndicatorFetcher creates the provider group fetcher.
func ProvideIndicatorFetcher(
	macro repository.MacroSource,
	prices repository.PriceSource,
	sentiment repository.SentimentSource,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.IndicatorFetcher {
	return usecase.NewIndicatorFetcher(macro, prices, sentiment, m, l,
		usecase.WithSentimentLimit(cfg.Providers.AlphaVantage.FeedLimit))
}

// ProvideAggregator creates the composite aggregator with production weights.
func ProvideAggregator() (*regime.Aggregator, error) {
	return regime.NewAggregator(regime.DefaultWeights)
}

// ProvideRegimeEngine creates the scoring pipeline.
func ProvideRegimeEngine(
	f *usecase.IndicatorFetcher,
	agg *regime.Aggregator,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.RegimeEngine {
	return usecase.NewRegimeEngine(f, agg, m, l)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(5, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.ReadTimeout),
		pkgch.WithCreateDatabase(true),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSnapshotStore creates the snapshot history store, or nil without
// ClickHouse.
func ProvideSnapshotStore(ch *pkgch.Client, cfg *config.Config) (repository.SnapshotStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseSnapshotStore(ch.DB(), ch.Database()+"."+cfg.ClickHouse.Table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse snapshot table: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer when snapshots or error logs
// go to Kafka, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 || (cfg.Backend.Type != usecase.BackendKafka && cfg.Kafka.LogTopic == "") {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSnapshotPublisher creates Kafka publisher repository, or nil.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil || cfg.Backend.Type != usecase.BackendKafka {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSnapshotRecorder creates the recorder and checks that its backend
// has what it needs.
func ProvideSnapshotRecorder(
	pub repository.SnapshotPublisher,
	store repository.SnapshotStore,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) (*usecase.SnapshotRecorder, error) {
	switch cfg.Backend.Type {
	case usecase.BackendKafka:
		if pub == nil {
			return nil, fmt.Errorf("backend %q needs kafka.brokers", cfg.Backend.Type)
		}
	case usecase.BackendClickHouse:
		if store == nil {
			return nil, fmt.Errorf("backend %q needs clickhouse.enabled", cfg.Backend.Type)
		}
	}
	// The kafka backend publishes; the consumer owns the store.
	if cfg.Backend.Type != usecase.BackendClickHouse {
		store = nil
	}
	return usecase.NewSnapshotRecorder(pub, store, m, l, cfg.Backend.Type), nil
}

// ProvideSnapshotPipeline puts retry buffering in front of the recorder.
func ProvideSnapshotPipeline(recorder *usecase.SnapshotRecorder, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *middleware.SnapshotPipeline {
	return middleware.NewSnapshotPipeline(recorder, m,
		middleware.WithPipelineLogger(l),
		middleware.WithMinInterval(cfg.Backend.MinInterval),
	)
}

// ProvideSharedCache connects the Redis mirror, or returns nil when disabled.
func ProvideSharedCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		pkgcache.WithRedisTimeouts(5*time.Second, cfg.Redis.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideRegimeCache wraps the engine in the single-slot cache.
func ProvideRegimeCache(
	engine *usecase.RegimeEngine,
	mirror *pkgcache.RedisCache,
	pipeline *middleware.SnapshotPipeline,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *icache.RegimeCache {
	opts := []icache.Option{
		icache.WithTTL(cfg.Regime.CacheTTL),
		icache.WithMetrics(m),
		icache.WithLogger(l),
		icache.WithOnRefresh(pipeline.OnRefresh),
	}
	if mirror != nil {
		opts = append(opts, icache.WithMirror(mirror))
	}
	return icache.NewRegimeCache(engine, opts...)
}

// ProvideChartCache creates the in-process cache for rendered charts.
func ProvideChartCache() pkgcache.Service {
	return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(16))
}

// ProvideRegimeHandler creates the HTTP handler.
func ProvideRegimeHandler(
	l *applogger.Logger,
	rc *icache.RegimeCache,
	store repository.SnapshotStore,
	charts pkgcache.Service,
	cfg *config.Config,
) *api.RegimeEchoHandler {
	return api.NewRegimeEchoHandler(l, rc, store, charts, cfg.Server.PushInterval).
		AllowOrigins(cfg.Server.AllowedOrigins...)
}

// ProvideStatusHandler creates the /api/status handler.
func ProvideStatusHandler(
	br *breaker.Group,
	store repository.SnapshotStore,
	pipeline *middleware.SnapshotPipeline,
	agg *regime.Aggregator,
) *api.StatusHandler {
	return api.NewStatusHandler(br, store, pipeline, agg)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when the consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSnapshotsHandler creates the snapshot topic handler, or nil
// without a store to write into.
func ProvideKafkaSnapshotsHandler(store repository.SnapshotStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaSnapshotsHandler {
	if store == nil {
		return nil
	}
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.RegimeEchoHandler,
	status *api.StatusHandler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotsHandler,
	recorder *usecase.SnapshotRecorder,
	pipeline *middleware.SnapshotPipeline,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	mirror *pkgcache.RedisCache,
	charts pkgcache.Service,
) *server.App {
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
			MinLevel:       "warn",
		})
	}

	app := server.New(cfg, l, []xhttp.Handler{handler, status}, recorder, pipeline)
	if consumer != nil && kh != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
		app.SetConsumer(consumer, kh)
	}
	app.AddCloser("charts", charts)
	if mirror != nil {
		app.AddCloser("redis", mirror)
	}
	// The producer outlives the recorder when it also carries error logs.
	if producer != nil && cfg.Backend.Type != usecase.BackendKafka {
		app.AddCloser("kafka producer", producer)
	}
	if chClient != nil {
		app.AddCloser("clickhouse", chClient)
	}
	return app
}
