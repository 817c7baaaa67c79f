package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/pkg/logger"
)

// ErrUnknownQuery is returned when the table has no record for the query id.
var ErrUnknownQuery = errors.New("no feedback record for query id")

// DynamoAPI is the subset of the DynamoDB client the recorder uses.
type DynamoAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

type Recorder struct {
	client         DynamoAPI
	table          string
	keyAttribute   string
	likedAttribute string
}

func NewRecorder(client DynamoAPI, table, keyAttribute, likedAttribute string) *Recorder {
	if keyAttribute == "" {
		keyAttribute = "query_id"
	}
	if likedAttribute == "" {
		likedAttribute = "liked"
	}

	logger.Info("Feedback recorder initialized", zap.String("table", table))

	return &Recorder{
		client:         client,
		table:          table,
		keyAttribute:   keyAttribute,
		likedAttribute: likedAttribute,
	}
}

// Record sets the liked flag on the existing record for queryID. It makes a
// single conditional update and does not retry.
func (r *Recorder) Record(ctx context.Context, queryID string, liked bool) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			r.keyAttribute: &types.AttributeValueMemberS{Value: queryID},
		},
		UpdateExpression:    aws.String("SET #liked = :liked"),
		ConditionExpression: aws.String("attribute_exists(#key)"),
		ExpressionAttributeNames: map[string]string{
			"#liked": r.likedAttribute,
			"#key":   r.keyAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":liked": &types.AttributeValueMemberBOOL{Value: liked},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", ErrUnknownQuery, queryID)
		}
		return fmt.Errorf("failed to update feedback: %w", err)
	}

	logger.Debug("Feedback written", zap.String("query_id", queryID), zap.Bool("liked", liked))
	return nil
}
