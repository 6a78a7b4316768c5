package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoDBConfig struct {
	Table  string `envconfig:"TABLE" split_words:"true" required:"true"`
	Region string `envconfig:"REGION" split_words:"true"`
}

// dynamodbAPI is the slice of the DynamoDB client the store needs.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBDocumentStore keeps one item per conversation (PK = CONV#<id>).
// The document and the reply mark are separate attributes, and both writes
// are UpdateItem calls so neither clobbers the other.
type DynamoDBDocumentStore struct {
	api       dynamodbAPI
	tableName string
}

var _ DocumentStore = (*DynamoDBDocumentStore)(nil)

func NewDynamoDBDocumentStore(api dynamodbAPI, tableName string) (*DynamoDBDocumentStore, error) {
	if api == nil {
		return nil, errors.New("dynamodb api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("dynamodb table name must not be empty")
	}
	return &DynamoDBDocumentStore{api: api, tableName: tableName}, nil
}

func convPK(id string) string {
	return "CONV#" + id
}

func (s *DynamoDBDocumentStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: convPK(id)},
	}
}

func (s *DynamoDBDocumentStore) Get(ctx context.Context, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidConversation
	}

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.tableName),
		Key:                  s.key(id),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("#doc"),
		ExpressionAttributeNames: map[string]string{
			"#doc": "document",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get conversation: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, ErrDocumentNotFound
	}

	av, ok := out.Item["document"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return []byte(av.Value), nil
}

func (s *DynamoDBDocumentStore) Set(ctx context.Context, id string, doc []byte) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidConversation
	}
	if doc == nil {
		return ErrNilDocument
	}

	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              s.key(id),
		UpdateExpression: aws.String("SET #doc = :doc, updated_at = :now"),
		ExpressionAttributeNames: map[string]string{
			"#doc": "document",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":doc": &types.AttributeValueMemberS{Value: string(doc)},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb set conversation: %w", err)
	}
	return nil
}

// CompareAndSet maps a failed condition check to zero changed records.
func (s *DynamoDBDocumentStore) CompareAndSet(ctx context.Context, id string, cond ReplyCondition, mark ReplyMark) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, ErrInvalidConversation
	}

	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.key(id),
		UpdateExpression:    aws.String("SET reply_sig = :sig, reply_at = :at"),
		ConditionExpression: aws.String("attribute_not_exists(reply_sig) OR reply_sig <> :sig OR reply_at < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sig":    &types.AttributeValueMemberS{Value: mark.Signature},
			":at":     &types.AttributeValueMemberN{Value: strconv.FormatInt(mark.At.UnixMilli(), 10)},
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cond.OlderThan.UnixMilli(), 10)},
		},
	})
	var condFailed *types.ConditionalCheckFailedException
	if errors.As(err, &condFailed) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("dynamodb register reply: %w", err)
	}
	return 1, nil
}
