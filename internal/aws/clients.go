package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// AWSClients holds one client per service the shopping list touches:
// DynamoDB for the item table, SQS for change notices and CloudWatch for
// the worker's metrics. The api only builds it when STORE_BACKEND=dynamodb or
// a notice queue is configured.
type AWSClients struct {
	DynamoDB   DynamoDBAPI
	SQS        SQSAPI
	CloudWatch CloudWatchAPI

	// Region the clients resolved to, logged at startup.
	Region string
}

// NewAWSClients resolves the shared SDK config once and builds every client from it.
func NewAWSClients(ctx context.Context) (*AWSClients, error) {
	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	c := &AWSClients{Region: cfg.Region}
	c.DynamoDB = dynamodb.NewFromConfig(cfg)
	c.SQS = sqs.NewFromConfig(cfg)
	c.CloudWatch = cloudwatch.NewFromConfig(cfg)
	return c, nil
}
