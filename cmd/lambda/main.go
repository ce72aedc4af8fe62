package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sandgraph/infrastructure/config"
	"sandgraph/infrastructure/di"
	"sandgraph/interfaces/http/rest"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
)

// init runs during cold start
func init() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	router := rest.NewRouter(container.CommandBus, container.Workspaces, container.JWTValidator, cfg, container.Logger)
	handler := router.Setup()

	chiRouter, ok := handler.(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)
}

// Handler proxies API Gateway requests to the router. Each invocation also
// drains one outbox batch, since Lambda cannot run the relay loop in the
// background.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if relayErr := container.Relay.ProcessBatch(ctx); relayErr != nil {
		container.Logger.Error("failed to drain outbox batch", zap.Error(relayErr))
	}
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
