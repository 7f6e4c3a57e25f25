package di

import (
	"context"
	"fmt"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/domain/service"
	"ComputeOracle/internal/handler/api"
	"ComputeOracle/internal/repository"
	"ComputeOracle/internal/service/ratelimit"
	"ComputeOracle/internal/services/causal"
	"ComputeOracle/internal/services/evaluation"
	"ComputeOracle/internal/services/ingestion"
	"ComputeOracle/internal/services/learning"
	"ComputeOracle/internal/services/oracle"
	"ComputeOracle/internal/usecase"
	pkgch "ComputeOracle/pkg/clickhouse"
	"ComputeOracle/pkg/config"
	xhttp "ComputeOracle/pkg/http"
	pkgkafka "ComputeOracle/pkg/kafka"
	"ComputeOracle/pkg/logger"
	"ComputeOracle/pkg/metrics"
	"ComputeOracle/pkg/queue"
	"ComputeOracle/pkg/server"
	"ComputeOracle/pkg/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideRegistry returns the registry served on the scrape path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideRedisStore dials Redis.
func ProvideRedisStore(cfg *config.Config) (*store.RedisStore, error) {
	st, err := store.NewRedisStore(
		store.WithRedisAddr(cfg.Redis.Addr),
		store.WithRedisPassword(cfg.Redis.Password),
		store.WithRedisDB(cfg.Redis.DB),
		store.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		store.WithRedisPrefix(cfg.Redis.Prefix),
		store.WithMaxRetries(cfg.Redis.MaxRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("redis store: %w", err)
	}
	return st, nil
}

// ProvideClickHouseClient connects the archive database. Returns nil when the
// archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSignalArchive creates the archive table. The result is a nil
// interface when chClient is nil.
func ProvideSignalArchive(chClient *pkgch.Client, cfg *config.Config, l *logger.Logger) (domrepo.SignalArchive, error) {
	if chClient == nil {
		return nil, nil
	}
	archive := repository.NewCHSignalArchive(chClient.DB(), cfg.ClickHouse.Database, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideEventPublisher publishes to Kafka when enabled.
func ProvideEventPublisher(cfg *config.Config, reg *prometheus.Registry) (domrepo.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return repository.NoopEventPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return repository.NewKafkaEventPublisher(producer, cfg.Kafka.LearnTopic, cfg.Kafka.CycleTopic), nil
}

func ProvideGraphStore(st *store.RedisStore) *causal.GraphStore {
	return causal.NewGraphStore(repository.NewRedisGraphRepository(st))
}

func ProvideSignalStore(st *store.RedisStore, cfg *config.Config) domrepo.SignalStore {
	return repository.NewRedisSignalStore(st, cfg.Ingestion.HistoryRetain)
}

func ProvidePredictionRepository(st *store.RedisStore) domrepo.PredictionRepository {
	return repository.NewRedisPredictionRepository(st)
}

func ProvideEvaluationRepository(st *store.RedisStore) domrepo.EvaluationRepository {
	return repository.NewRedisEvaluationRepository(st)
}

func ProvideLearningLog(st *store.RedisStore, cfg *config.Config) domrepo.LearningLog {
	return repository.NewRedisLearningLog(st, cfg.Learning.LogCap)
}

// ProvideOracleClient creates the chat-completions client shared by both oracles.
func ProvideOracleClient(cfg *config.Config, l *logger.Logger) *oracle.Client {
	return oracle.NewClientFromConfig(cfg, l)
}

func ProvidePredictor(client *oracle.Client, cfg *config.Config) service.PredictionOracle {
	return oracle.NewPredictor(client, oracle.WithPredictorModel(cfg.Oracle.PredictorModel))
}

func ProvideReasoner(client *oracle.Client, cfg *config.Config) service.Reasoner {
	return oracle.NewReasoner(client, cfg.Oracle.ReasonerModel)
}

// ProvideSpotSource creates the primary signal source.
func ProvideSpotSource(cfg *config.Config, l *logger.Logger) *ingestion.SpotPricingSource {
	return ingestion.NewSpotPricingSource(
		ingestion.WithCatalogURL(cfg.Ingestion.SpotCatalogURL),
		ingestion.WithHistorySeed(cfg.Ingestion.HistorySeed),
		ingestion.WithSpotHTTPClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.Ingestion.Timeout),
			xhttp.WithUserAgent("compute-oracle/"+api.Version),
		)),
		ingestion.WithSpotLimiter(ratelimit.New(1, 1)),
		ingestion.WithSpotLogger(l.With(logger.String("source", "aws_spot"))),
	)
}

// ProvideEIASource creates the electricity demand source. It is nil when no
// EIA API key is configured.
func ProvideEIASource(cfg *config.Config, l *logger.Logger) *ingestion.EIAElectricitySource {
	if cfg.Ingestion.EIAAPIKey == "" {
		l.Info("eia electricity source disabled, no api key")
		return nil
	}
	return ingestion.NewEIAElectricitySource(
		ingestion.WithEIABaseURL(cfg.Ingestion.EIABaseURL),
		ingestion.WithEIAAPIKey(cfg.Ingestion.EIAAPIKey),
		ingestion.WithEIAHTTPClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.Ingestion.Timeout),
			xhttp.WithUserAgent("compute-oracle/"+api.Version),
		)),
		ingestion.WithEIALogger(l.With(logger.String("source", models.SourceEIAElectricity))),
	)
}

func ProvideIngestor(
	signals domrepo.SignalStore,
	spot *ingestion.SpotPricingSource,
	eia *ingestion.EIAElectricitySource,
	archive domrepo.SignalArchive,
	m domrepo.Metrics,
	l *logger.Logger,
) *ingestion.Ingestor {
	sources := []service.SignalSource{spot}
	if eia != nil {
		sources = append(sources, eia)
	}
	return ingestion.NewIngestor(signals, sources,
		ingestion.WithArchive(archive),
		ingestion.WithIngestMetrics(m),
		ingestion.WithIngestLogger(l.With(logger.String("component", "ingestion"))),
	)
}

func ProvideEvaluator(preds domrepo.PredictionRepository, evals domrepo.EvaluationRepository) *evaluation.Evaluator {
	return evaluation.NewEvaluator(preds, evals)
}

func ProvideLearner(
	graph *causal.GraphStore,
	log domrepo.LearningLog,
	st *store.RedisStore,
	publisher domrepo.EventPublisher,
	m domrepo.Metrics,
	cfg *config.Config,
	l *logger.Logger,
) *learning.Learner {
	return learning.NewLearner(graph, log,
		learning.WithLocker(repository.NewRedisGraphLock(st, cfg.Learning.LockTTL, cfg.Learning.LockWait)),
		learning.WithPublisher(publisher),
		learning.WithMetrics(m),
		learning.WithLogger(l.With(logger.String("component", "learning"))),
	)
}

func ProvideOrchestrator(
	st *store.RedisStore,
	ingestor *ingestion.Ingestor,
	signals domrepo.SignalStore,
	graph *causal.GraphStore,
	predictor service.PredictionOracle,
	preds domrepo.PredictionRepository,
	evaluator *evaluation.Evaluator,
	learner *learning.Learner,
	publisher domrepo.EventPublisher,
	m domrepo.Metrics,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(
		repository.NewRedisCycleCounter(st),
		ingestor,
		models.SourceAWSSpot,
		signals,
		graph,
		predictor,
		preds,
		evaluator,
		learner,
		repository.NewRedisCycleRepository(st),
		publisher,
		m,
		usecase.Target{Instance: cfg.Target.Instance, Zone: cfg.Target.Zone},
		l,
	)
}

// ProvideQueue creates the replay job queue on the shared Redis client.
func ProvideQueue(st *store.RedisStore, cfg *config.Config, l *logger.Logger) *queue.RedisQueue {
	return queue.NewRedisQueue(l.With(logger.String("component", "queue")),
		&queue.QueueConfig{Workers: cfg.Replay.Workers},
		st.Client(),
		queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"),
	)
}

// ProvideReplayEngine builds the engine and registers its job on q. EIA
// demand and the archive join as secondary history sources when configured.
func ProvideReplayEngine(
	orch *usecase.Orchestrator,
	spot *ingestion.SpotPricingSource,
	eia *ingestion.EIAElectricitySource,
	archive domrepo.SignalArchive,
	st *store.RedisStore,
	q *queue.RedisQueue,
	m domrepo.Metrics,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.ReplayEngine {
	var secondary []service.SignalSource
	if eia != nil {
		secondary = append(secondary, eia)
	}
	if archive != nil {
		secondary = append(secondary, ingestion.NewArchiveSource(archive))
	}
	engine := usecase.NewReplayEngine(orch, spot, secondary,
		repository.NewRedisReplayStatusRepository(st), q, m, cfg.Replay.StatusEvery, l)
	q.RegisterJob(usecase.NewReplayJob(engine, l))
	return engine
}

func ProvideScheduler(
	preds domrepo.PredictionRepository,
	evals domrepo.EvaluationRepository,
	st *store.RedisStore,
) *usecase.SchedulerOptimizer {
	return usecase.NewSchedulerOptimizer(preds, evals, repository.NewRedisSavingsRepository(st))
}

// ProvideHTTPHandler registers every API area.
func ProvideHTTPHandler(
	l *logger.Logger,
	st *store.RedisStore,
	signals domrepo.SignalStore,
	ingestor *ingestion.Ingestor,
	graph *causal.GraphStore,
	reasoner service.Reasoner,
	evaluator *evaluation.Evaluator,
	log domrepo.LearningLog,
	preds domrepo.PredictionRepository,
	evals domrepo.EvaluationRepository,
	scheduler *usecase.SchedulerOptimizer,
	replay *usecase.ReplayEngine,
	orch *usecase.Orchestrator,
) xhttp.Handler {
	hl := l.With(logger.String("component", "http"))
	return xhttp.Handlers{
		api.NewSystemHandler(hl, st, dataSources),
		api.NewSignalsHandler(hl, signals, ingestor),
		api.NewCausalHandler(hl, graph, signals, reasoner),
		api.NewLearningHandler(hl, evaluator, log),
		api.NewPredictionsHandler(hl, preds, evals, orch.Target().String()),
		api.NewSchedulerHandler(hl, scheduler),
		api.NewReplayHandler(hl, replay),
		api.NewCycleHandler(hl, orch),
	}
}

var dataSources = []string{
	models.SourceAWSSpot,
	models.SourceEIAElectricity,
	models.SourceWeather,
	models.SourceGPUPricing,
	models.SourceNews,
}

func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, h xhttp.Handler, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithRegistry(reg),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Metrics.SlowThreshold))
	} else {
		opts = append(opts, xhttp.WithMetrics("", 0))
	}
	return xhttp.NewServer(l, h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	st *store.RedisStore,
	chClient *pkgch.Client,
	srv *xhttp.Server,
	q *queue.RedisQueue,
	publisher domrepo.EventPublisher,
	orch *usecase.Orchestrator,
	replay *usecase.ReplayEngine,
) *server.App {
	return server.New(cfg, l, st, chClient, srv, q, publisher, orch, replay)
}
