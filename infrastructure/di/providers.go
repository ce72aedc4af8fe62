// Package di wires the application together.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sandgraph/application/cascade"
	"sandgraph/application/commands"
	"sandgraph/application/commands/bus"
	commandhandlers "sandgraph/application/commands/handlers"
	"sandgraph/application/ports"
	"sandgraph/infrastructure/config"
	"sandgraph/infrastructure/messaging/eventbridge"
	"sandgraph/infrastructure/messaging/outbox"
	"sandgraph/infrastructure/ontology"
	"sandgraph/infrastructure/persistence/dynamodb"
	"sandgraph/pkg/auth"
	"sandgraph/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *zap.Logger
	ElementStore     ports.ElementStore
	TermMentions     ports.TermMentionRepository
	Workspaces       ports.WorkspaceRepository
	ChangeEventStore ports.ChangeEventStore
	ChangeQueue      ports.ChangeQueue
	EventPublisher   ports.EventPublisher
	Relay            *outbox.Relay
	Engine           *cascade.Engine
	CommandBus       *bus.CommandBus
	JWTValidator     *auth.JWTValidator
	Metrics          *observability.Metrics
}

// ProvideLogger creates a logger for the configured environment
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics recorder. Disabled metrics yield a nil
// recorder, which every caller treats as a no-op.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	namespace := fmt.Sprintf("Sandgraph/%s", cfg.Environment)
	return observability.NewMetrics(namespace, client)
}

// ProvideElementStore creates the element store
func ProvideElementStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ElementStore {
	return dynamodb.NewElementStore(client, cfg.DynamoDBTable, logger)
}

// ProvideTermMentionRepository creates the term mention repository
func ProvideTermMentionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.TermMentionRepository {
	return dynamodb.NewTermMentionRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideWorkspaceRepository creates the workspace repository
func ProvideWorkspaceRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.WorkspaceRepository {
	return dynamodb.NewWorkspaceRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideChangeEventStore creates the outbox record store
func ProvideChangeEventStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ChangeEventStore {
	return dynamodb.NewChangeEventStore(client, cfg.DynamoDBTable, cfg.EventIndexName, logger)
}

// ProvideChangeQueue creates the outbox-backed change queue
func ProvideChangeQueue(eventStore ports.ChangeEventStore, logger *zap.Logger) ports.ChangeQueue {
	return outbox.NewQueue(eventStore, logger)
}

// ProvideEventPublisher creates the EventBridge publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewEventBridgePublisher(client, cfg.EventBusName, logger)
}

// ProvideOutboxRelay creates the background relay draining the outbox
func ProvideOutboxRelay(eventStore ports.ChangeEventStore, publisher ports.EventPublisher, metrics *observability.Metrics, cfg *config.Config, logger *zap.Logger) *outbox.Relay {
	return outbox.NewRelay(eventStore, publisher, metrics, outbox.RelayConfig{
		BatchSize:  cfg.RelayBatchSize,
		Interval:   time.Duration(cfg.RelayIntervalMS) * time.Millisecond,
		MaxRetries: cfg.RelayMaxRetries,
	}, logger)
}

// ProvideOntologyReader creates the intent to IRI resolver
func ProvideOntologyReader(cfg *config.Config) ports.OntologyReader {
	return ontology.NewStaticReader(cfg.OntologyIntents())
}

// ProvideCascadeEngine creates the deletion cascade engine
func ProvideCascadeEngine(
	store ports.ElementStore,
	mentions ports.TermMentionRepository,
	workspaces ports.WorkspaceRepository,
	reader ports.OntologyReader,
	queue ports.ChangeQueue,
	logger *zap.Logger,
) *cascade.Engine {
	return cascade.NewEngine(store, mentions, workspaces, reader, queue, logger)
}

// ProvideJWTValidator creates the bearer token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && cfg.IsDevelopment() {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideCommandBus creates a command bus with every handler registered
func ProvideCommandBus(
	store ports.ElementStore,
	engine *cascade.Engine,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()
	pipeline := bus.NewPipeline(bus.LoggingMiddleware(logger))

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.DeleteVertexCommand{}, commandhandlers.NewDeleteVertexHandler(store, engine, metrics, logger)},
		{commands.DeleteEdgeCommand{}, commandhandlers.NewDeleteEdgeHandler(store, engine, metrics, logger)},
		{commands.DeletePropertyCommand{}, commandhandlers.NewDeletePropertyHandler(store, engine, metrics, logger)},
	}
	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, pipeline.Execute(reg.handler)); err != nil {
			return nil, fmt.Errorf("failed to register command handler: %w", err)
		}
	}
	return commandBus, nil
}
