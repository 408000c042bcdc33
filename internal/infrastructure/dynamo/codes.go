package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-prayer-verify/internal/domain"
)

// CodeRepo manages one-time verification codes.
// PK: code_id. expires_at is the table's TTL attribute.
type CodeRepo struct {
	client    API
	tableName string
}

func NewCodeRepo(client API, tableName string) *CodeRepo {
	return &CodeRepo{client: client, tableName: tableName}
}

// Put stores a new code. A colliding code_id is reported as ErrConflict.
func (r *CodeRepo) Put(ctx context.Context, c *domain.VerificationCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(code_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("verification code %s exists: %w", c.CodeID, domain.ErrConflict)
	}
	return err
}

func (r *CodeRepo) Get(ctx context.Context, codeID string) (*domain.VerificationCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldCodeID, codeID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	var c domain.VerificationCode
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// IncrementAttempts atomically counts one redeem attempt and returns the new
// value. The counter never passes limit: once it has reached limit the update fails
// with ErrTooManyRequests. A missing code yields ErrNotFound.
func (r *CodeRepo) IncrementAttempts(ctx context.Context, codeID string, limit int) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldCodeID, codeID),
		UpdateExpression:    aws.String("ADD #a :one"),
		ConditionExpression: aws.String("attribute_exists(code_id) AND (attribute_not_exists(#a) OR #a < :max)"),
		ExpressionAttributeNames: map[string]string{
			"#a": fieldAttempts,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":max": &types.AttributeValueMemberN{Value: strconv.Itoa(limit)},
		},
		ReturnValues:                        types.ReturnValueUpdatedNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if len(ccf.Item) == 0 {
			return 0, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
		}
		return 0, fmt.Errorf("verification code %s attempt limit reached: %w", codeID, domain.ErrTooManyRequests)
	}
	if err != nil {
		return 0, err
	}
	var attempts int
	if av, ok := out.Attributes[fieldAttempts]; ok {
		if err := attributevalue.Unmarshal(av, &attempts); err != nil {
			return 0, fmt.Errorf("unmarshal attempts: %w", err)
		}
	}
	return attempts, nil
}

// Delete removes a code. Exactly one caller can delete a given code: a code that
// is already gone yields ErrNotFound.
func (r *CodeRepo) Delete(ctx context.Context, codeID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldCodeID, codeID),
		ConditionExpression: aws.String("attribute_exists(code_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	return err
}
