package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"SignalFuse/internal/domain/repository"
	domsvc "SignalFuse/internal/domain/service"
	"SignalFuse/internal/handler/api"
	mid "SignalFuse/internal/middleware"
	internalrepo "SignalFuse/internal/repository"
	icache "SignalFuse/internal/service/cache"
	"SignalFuse/internal/services/collector"
	"SignalFuse/internal/services/predictors"
	"SignalFuse/internal/services/resolver"
	"SignalFuse/internal/services/stability"
	"SignalFuse/internal/services/trust"
	"SignalFuse/internal/usecase"
	pkgcache "SignalFuse/pkg/cache"
	pkgch "SignalFuse/pkg/clickhouse"
	"SignalFuse/pkg/config"
	pkgkafka "SignalFuse/pkg/kafka"
	applogger "SignalFuse/pkg/logger"
	"SignalFuse/pkg/metrics"
	"SignalFuse/pkg/queue"
	"SignalFuse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	l, err := applogger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRedisCache creates the shared Redis cache client.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr '%s': %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port '%s': %w", portStr, err)
	}

	c, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideClickHouseClient creates the ClickHouse client and applies the
// archive schema.
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

	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
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

// ProvideKafkaConsumer creates the outcomes consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideDecisionStore creates the Redis-backed decision store.
func ProvideDecisionStore(rc *pkgcache.RedisCache) repository.DecisionStore {
	return internalrepo.NewRedisDecisionStore(rc)
}

// ProvidePerformanceStore creates the performance store. Reliability records
// are read every evaluation and tolerate short staleness, so they sit behind
// a layered memory-over-Redis cache.
func ProvidePerformanceStore(rc *pkgcache.RedisCache) repository.PerformanceStore {
	return internalrepo.NewRedisPerformanceStore(pkgcache.NewLayeredCache(rc))
}

// ProvideArchive creates the ClickHouse history archive.
func ProvideArchive(chClient *pkgch.Client, cfg *config.Config) repository.Archive {
	return internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Database)
}

// ProvideDecisionPublisher creates the Kafka decision publisher.
func ProvideDecisionPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic)
}

// ProvideTrustModel creates the EMA trust model with its snapshot cache.
func ProvideTrustModel(
	cfg *config.Config,
	store repository.PerformanceStore,
	rc *pkgcache.RedisCache,
	l *applogger.Logger,
) *trust.EMATrustModel {
	m := trust.NewEMATrustModel(trust.Config{
		Smoothing:         cfg.Engine.Tracker.Smoothing,
		Window:            cfg.Engine.Tracker.Window,
		MinOutcomes:       cfg.Engine.Tracker.MinOutcomes,
		BootstrapAccuracy: cfg.Engine.Tracker.BootstrapAccuracy,
		Priors:            cfg.Engine.Tracker.Priors,
		SnapshotTTLSecs:   int(cfg.Engine.Tracker.SnapshotTTL.Seconds()),
	}, store)
	m.SetSnapshotCache(rc)
	m.SetLogger(l)
	return m
}

// ProvideSentimentStream creates the WebSocket sentiment source.
func ProvideSentimentStream(cfg *config.Config, l *applogger.Logger) *predictors.SentimentStream {
	s := predictors.NewSentimentStream(cfg)
	s.SetLogger(l)
	return s
}

// ProvidePredictorSources assembles every configured prediction source.
func ProvidePredictorSources(cfg *config.Config, stream *predictors.SentimentStream) []domsvc.PredictorSource {
	var sources []domsvc.PredictorSource
	if cfg.Predictors.Technical.URL != "" {
		sources = append(sources, predictors.NewTechnical(cfg))
	}
	sources = append(sources, predictors.NewModels(cfg)...)
	if cfg.Predictors.Fundamental.URL != "" {
		sources = append(sources, predictors.NewFundamental(cfg))
	}
	if cfg.Predictors.Sentiment.WebSocketURL != "" {
		sources = append(sources, stream)
	}
	return sources
}

// ProvideCollector creates the signal collector. Signals older than one cycle
// are stale.
func ProvideCollector(
	sources []domsvc.PredictorSource,
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
) *collector.Collector {
	c := collector.New(sources, cfg.Engine.CycleInterval)
	c.SetLogger(l)
	c.SetMetrics(m)
	return c
}

// ProvideResolver creates the conflict resolver.
func ProvideResolver(cfg *config.Config) *resolver.Resolver {
	return resolver.New(resolver.Config{
		ContestedGap:    cfg.Engine.Resolver.ContestedGap,
		StrongThreshold: cfg.Engine.Resolver.StrongThreshold,
		BuyThreshold:    cfg.Engine.Resolver.BuyThreshold,
	})
}

// ProvideStability creates the stability manager. Lock tiers share the
// resolver's confidence thresholds.
func ProvideStability(cfg *config.Config) *stability.Manager {
	return stability.New(stability.Config{
		Confirmations:   cfg.Engine.Stability.Confirmations,
		StrongThreshold: cfg.Engine.Resolver.StrongThreshold,
		StrongHoldDays:  cfg.Engine.Stability.StrongHoldDays,
		FirmHoldDays:    cfg.Engine.Stability.FirmHoldDays,
		WeakHoldDays:    cfg.Engine.Stability.WeakHoldDays,
		HistoryCap:      cfg.Engine.HistoryCap,
	})
}

// ProvideEvaluator creates the per-key evaluation use case.
func ProvideEvaluator(
	col *collector.Collector,
	trustModel *trust.EMATrustModel,
	res *resolver.Resolver,
	stab *stability.Manager,
	store repository.DecisionStore,
	archive repository.Archive,
	publisher repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Evaluator {
	ev := usecase.NewEvaluator(col, trustModel, res, stab, store, m)
	ev.SetArchive(archive)
	ev.SetPublisher(publisher)
	ev.SetLogger(l)
	return ev
}

// ProvideCycleRunner creates the batch cycle runner.
func ProvideCycleRunner(
	ev *usecase.Evaluator,
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.CycleRunner {
	r := usecase.NewCycleRunner(ev, cfg.Engine.Instruments, cfg.Engine.Horizons, cfg.Engine.Workers)
	r.SetLogger(l)
	r.SetMetrics(m)
	return r
}

// ProvideOutcomeIngest creates the outcome feedback use case.
func ProvideOutcomeIngest(
	trustModel *trust.EMATrustModel,
	archive repository.Archive,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.OutcomeIngest {
	u := usecase.NewOutcomeIngest(trustModel, m)
	u.SetArchive(archive)
	u.SetLogger(l)
	return u
}

// ProvideOutcomePipeline wraps the ingest in the intake pipeline so a
// replayed outcomes topic cannot flood the tracker.
func ProvideOutcomePipeline(ingest *usecase.OutcomeIngest, m repository.Metrics) *mid.OutcomePipeline {
	return mid.NewOutcomePipeline(ingest, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(1000),
	)
}

// ProvideOutcomesHandler registers the handler for the outcomes topic.
func ProvideOutcomesHandler(cfg *config.Config, pipe *mid.OutcomePipeline, m repository.Metrics) *usecase.KafkaOutcomesHandler {
	return usecase.NewKafkaOutcomesHandler(cfg.Kafka.OutcomesTopic, pipe, m)
}

// ProvideStatusReporter creates the aggregate status reporter.
func ProvideStatusReporter(store repository.DecisionStore) *usecase.StatusReporter {
	return usecase.NewStatusReporter(store)
}

// ProvideJobQueue creates the Redis job queue with the cycle job registered.
// The same instance publishes and consumes, so a forced cycle survives a
// restart of the instance that accepted it.
func ProvideJobQueue(
	l *applogger.Logger,
	rc *pkgcache.RedisCache,
	runner *usecase.CycleRunner,
) *queue.RedisQueue {
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    1,
		QueueSize:  16,
		RetryLimit: 2,
		RetryDelay: 30 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewCycleJob(runner))
	return q
}

// ProvideEngineHandler creates the HTTP API handler.
func ProvideEngineHandler(
	cfg *config.Config,
	store repository.DecisionStore,
	trustModel *trust.EMATrustModel,
	status *usecase.StatusReporter,
	runner *usecase.CycleRunner,
	jobs *queue.RedisQueue,
	l *applogger.Logger,
) *api.EngineHandler {
	h := api.NewEngineHandler(store, trustModel, status, runner)
	h.SetJobQueue(jobs)
	h.SetCache(icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}))
	h.SetLogger(l)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.EngineHandler,
	runner *usecase.CycleRunner,
	stream *predictors.SentimentStream,
	consumer *pkgkafka.Consumer,
	oh *usecase.KafkaOutcomesHandler,
	pipe *mid.OutcomePipeline,
	jobs *queue.RedisQueue,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, handler, runner, stream, consumer, oh, pipe, jobs, producer, chClient)
}
