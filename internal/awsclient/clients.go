// Package awsclient builds the AWS service clients used by the chatbot.
// Every client is created with a single-attempt retryer: user actions hit
// AWS at most once.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/pkg/logger"
)

const maxAttempts = 1

// LoadConfig resolves credentials from the default chain for region.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMaxAttempts(maxAttempts),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config for %s: %w", region, err)
	}
	return cfg, nil
}

func NewCognito(ctx context.Context, region string) (*cip.Client, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	logger.Info("Cognito client created", zap.String("region", region))
	return cip.NewFromConfig(cfg), nil
}

// NewDynamoDB points the client at endpoint when set (DynamoDB Local).
func NewDynamoDB(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logger.Info("DynamoDB client created",
		zap.String("region", region),
		zap.Bool("custom_endpoint", endpoint != ""),
	)
	return client, nil
}
