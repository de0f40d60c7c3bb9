// Command lambda runs the chat proxy as an AWS Lambda function behind API Gateway.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"convobot-backend/internal/config"
	"convobot-backend/internal/demo"
	"convobot-backend/internal/logging"
	"convobot-backend/internal/provider"
	"convobot-backend/internal/proxy"
)

func handler(p *proxy.Handler) func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp := p.Handle(ctx, req.HTTPMethod, req.Body)
		return events.APIGatewayProxyResponse{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers,
			Body:       resp.Body,
		}, nil
	}
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.LogLevel, false)

	gemini := provider.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.ProviderTimeout)
	lambda.Start(handler(proxy.NewHandler(gemini, demo.NewGenerator())))
}
