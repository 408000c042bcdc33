package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-prayer-verify/internal/domain"
)

// SettingRepo provides typed DynamoDB operations for the admin_settings table.
type SettingRepo struct {
	client    API
	tableName string
}

func NewSettingRepo(client API, tableName string) *SettingRepo {
	return &SettingRepo{client: client, tableName: tableName}
}

func (r *SettingRepo) Get(ctx context.Context, key string) (*domain.AdminSetting, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldSettingKey, key),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("setting %s not found: %w", key, domain.ErrNotFound)
	}
	var s domain.AdminSetting
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes value, creating the row if needed.
func (r *SettingRepo) Upsert(ctx context.Context, s *domain.AdminSetting) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldValue:     s.Value,
		fieldUpdatedBy: s.UpdatedBy,
		fieldUpdatedAt: s.UpdatedAt,
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldSettingKey, s.Key),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
