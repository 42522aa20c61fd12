package di

import (
	"context"
	"fmt"
	"time"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/handler/api"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/parser"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/regional"
	internalrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/repository"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/service/devicefeed"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/session"
	"github.com/n2ilva/MotoristaInteligente-sub003/internal/usecase"
	pkgch "github.com/n2ilva/MotoristaInteligente-sub003/pkg/clickhouse"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/config"
	xhttp "github.com/n2ilva/MotoristaInteligente-sub003/pkg/http"
	pkgkafka "github.com/n2ilva/MotoristaInteligente-sub003/pkg/kafka"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/logger"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/metrics"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := &logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return logger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the offer
// archive schema exists.
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
	if err := client.InitSchema(ctx, internalrepo.OffersSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideBucketStore creates the Redis-backed shared bucket store.
func ProvideBucketStore(cfg *config.Config, m repository.Metrics) (repository.BucketStore, error) {
	return internalrepo.NewRedisBucketStore(internalrepo.RedisBucketConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		Prefix:     cfg.Redis.Prefix,
		TTL:        cfg.Redis.BucketTTL,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	}, m)
}

// ProvideOfferArchive creates the ClickHouse offer archive.
func ProvideOfferArchive(chClient *pkgch.Client, l *logger.Logger) repository.OfferArchive {
	archive := internalrepo.NewCHOfferArchive(chClient)
	archive.SetLogger(l)
	return archive
}

// ProvideOfferPublisher creates the Kafka fan-out for parsed offers, or nil
// when publishing is disabled.
func ProvideOfferPublisher(cfg *config.Config) (repository.OfferPublisher, error) {
	if !cfg.Kafka.Publish {
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
	return internalrepo.NewKafkaOfferPublisher(producer, cfg.Kafka.OffersTopic), nil
}

// ProvideFieldParser creates the offer field parser.
func ProvideFieldParser(cfg *config.Config) *parser.FieldParser {
	return parser.New(parser.Config{
		MinPrice:      cfg.Parser.MinPrice,
		ContextWindow: cfg.Parser.ContextWindow,
	})
}

// ProvideSessionRegistry creates the per-driver session registry.
func ProvideSessionRegistry(cfg *config.Config) *session.Registry {
	return session.NewRegistry(session.Config{
		Capacity:        cfg.Session.Capacity,
		AcceptWindow:    cfg.Session.AcceptWindow,
		HighThreshold:   cfg.Session.HighThreshold,
		MediumThreshold: cfg.Session.MediumThreshold,
		LowThreshold:    cfg.Session.LowThreshold,
	})
}

// ProvideAggregator creates the regional demand aggregator.
func ProvideAggregator(store repository.BucketStore, archive repository.OfferArchive, m repository.Metrics, l *logger.Logger) *regional.Aggregator {
	return regional.New(store, archive, m, l)
}

// ProvideObservationProcessor creates the core pipeline use case.
func ProvideObservationProcessor(
	p *parser.FieldParser,
	sessions *session.Registry,
	agg *regional.Aggregator,
	pub repository.OfferPublisher,
	m repository.Metrics,
) *usecase.ObservationProcessor {
	return usecase.NewObservationProcessor(p, sessions, agg, pub, m)
}

// ProvideDeviceStream creates the capture gateway WebSocket stream, or nil
// when ingest runs over Kafka.
func ProvideDeviceStream(cfg *config.Config) repository.ObservationStream {
	if cfg.Ingest.Type != "websocket" {
		return nil
	}
	return devicefeed.New(
		cfg.Gateway.WebSocketURL,
		cfg.Gateway.Token,
		cfg.Gateway.ReconnectDelay,
		cfg.Gateway.PingInterval,
	)
}

// ProvideObservationCollector creates the websocket ingest loop, or nil when
// the stream is not configured.
func ProvideObservationCollector(
	stream repository.ObservationStream,
	proc *usecase.ObservationProcessor,
	m repository.Metrics,
) *usecase.ObservationCollector {
	if stream == nil {
		return nil
	}
	return usecase.NewObservationCollector(stream, proc, m)
}

// ProvideKafkaConsumer creates the raw observation consumer, or nil when
// ingest runs over WebSocket. Workers default to 1 so one driver's
// observations are handled in arrival order.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Type != "kafka" {
		return nil, nil
	}
	workers := cfg.Kafka.Consumer.Workers
	if workers <= 0 {
		workers = 1
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(workers),
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

// ProvideKafkaObservationsHandler registers the handler for the raw
// observations topic.
func ProvideKafkaObservationsHandler(proc *usecase.ObservationProcessor, m repository.Metrics, cfg *config.Config) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.Topic, proc, m)
}

// ProvideDemandReader creates the read-path use case.
func ProvideDemandReader(sessions *session.Registry, agg *regional.Aggregator) *usecase.DemandReader {
	return usecase.NewDemandReader(sessions, agg)
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(l *logger.Logger, reader *usecase.DemandReader, proc *usecase.ObservationProcessor) xhttp.Handler {
	return api.NewDemandEchoHandler(l, reader, proc)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	collector *usecase.ObservationCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	chClient *pkgch.Client,
	bucketStore repository.BucketStore,
	httpHandler xhttp.Handler,
	proc *usecase.ObservationProcessor,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, collector, consumer, kh, chClient, bucketStore)
	app.SetHTTPHandler(httpHandler)
	app.Proc = proc
	return app
}
