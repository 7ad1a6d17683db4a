package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"easy-chat-server/handler"
	"easy-chat-server/internal/integrations/pushgateway"
	"easy-chat-server/internal/repository"
	"easy-chat-server/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	connectionsTable := mustEnv("CLIENTS_TABLE_NAME")
	messagesTable := mustEnv("MESSAGES_TABLE_NAME")
	wsEndpoint := mustEnv("WSSAPIGATEWAYENDPOINT")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), connectionsTable, messagesTable)
	if err != nil {
		slog.Error("failed to create store client", "err", err)
		os.Exit(1)
	}

	apiClient := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(wsEndpoint)
	})
	gateway, err := pushgateway.New(apiClient)
	if err != nil {
		slog.Error("failed to create push gateway", "err", err)
		os.Exit(1)
	}

	// ---- Services ----
	presence, err := usecase.NewPresence(store, gateway)
	if err != nil {
		slog.Error("failed to create presence broadcaster", "err", err)
		os.Exit(1)
	}
	registry, err := usecase.NewRegistry(store, gateway, presence)
	if err != nil {
		slog.Error("failed to create connection registry", "err", err)
		os.Exit(1)
	}
	relay, err := usecase.NewRelay(store, store, gateway)
	if err != nil {
		slog.Error("failed to create message relay", "err", err)
		os.Exit(1)
	}
	history, err := usecase.NewHistory(store, store, gateway)
	if err != nil {
		slog.Error("failed to create history service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(registry, presence, relay, history, gateway)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
