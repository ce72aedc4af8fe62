//go:build !wireinject
// +build !wireinject

package di

import (
	"context"

	"sandgraph/infrastructure/config"
)

// InitializeContainer creates a fully wired container. Kept by hand in
// dependency order; must mirror SuperSet in wire.go.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	awsConfig, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client := ProvideDynamoDBClient(awsConfig)
	eventbridgeClient := ProvideEventBridgeClient(awsConfig)
	cloudwatchClient := ProvideCloudWatchClient(awsConfig)
	metrics := ProvideMetrics(cloudwatchClient, cfg)
	elementStore := ProvideElementStore(client, cfg, logger)
	termMentionRepository := ProvideTermMentionRepository(client, cfg, logger)
	workspaceRepository := ProvideWorkspaceRepository(client, cfg, logger)
	changeEventStore := ProvideChangeEventStore(client, cfg, logger)
	changeQueue := ProvideChangeQueue(changeEventStore, logger)
	eventPublisher := ProvideEventPublisher(eventbridgeClient, cfg, logger)
	relay := ProvideOutboxRelay(changeEventStore, eventPublisher, metrics, cfg, logger)
	ontologyReader := ProvideOntologyReader(cfg)
	engine := ProvideCascadeEngine(elementStore, termMentionRepository, workspaceRepository, ontologyReader, changeQueue, logger)
	jwtValidator, err := ProvideJWTValidator(cfg)
	if err != nil {
		return nil, err
	}
	commandBus, err := ProvideCommandBus(elementStore, engine, metrics, logger)
	if err != nil {
		return nil, err
	}
	container := &Container{
		Config:           cfg,
		Logger:           logger,
		ElementStore:     elementStore,
		TermMentions:     termMentionRepository,
		Workspaces:       workspaceRepository,
		ChangeEventStore: changeEventStore,
		ChangeQueue:      changeQueue,
		EventPublisher:   eventPublisher,
		Relay:            relay,
		Engine:           engine,
		CommandBus:       commandBus,
		JWTValidator:     jwtValidator,
		Metrics:          metrics,
	}
	return container, nil
}
