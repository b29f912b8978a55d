package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-auth-api/internal/domain"
)

// VerificationRepo manages one-time-code challenge records.
// PK: scope (identifier#type#flow#step), SK: verification_id (ULID).
// Records are insert-only; history is retained, never updated in place except
// for the used_at redemption mark and the attempt counter.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Insert persists a new verification record. Always a fresh row; a resend
// creates a new record rather than updating an existing one.
func (r *VerificationRepo) Insert(ctx context.Context, v *domain.Verification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// LatestUnused returns the most-recently-created record for the scope that
// has not been redeemed. ULID sort keys order records by creation time, so a
// descending query with a used_at filter yields the eligible record first.
func (r *VerificationRepo) LatestUnused(ctx context.Context, identifier string, t domain.IdentifierType, flow domain.AuthFlow, step domain.AuthStep) (*domain.Verification, error) {
	scope := domain.VerificationScope(identifier, t, flow, step)
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#s = :scope"),
		FilterExpression:       aws.String("attribute_not_exists(#u)"),
		ExpressionAttributeNames: map[string]string{
			"#s": "scope",
			"#u": fieldUsedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":scope": &types.AttributeValueMemberS{Value: scope},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(25),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.Verification
	if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// MarkUsed sets used_at on a record, conditioned on it not being set already.
// The conditional write is what serializes concurrent redeemers: at most one
// caller observes used_at absent and wins; the loser gets domain.ErrConflict.
func (r *VerificationRepo) MarkUsed(ctx context.Context, scope, verificationID string, at time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("scope", scope, "verification_id", verificationID),
		UpdateExpression:    aws.String("SET #u = :t"),
		ConditionExpression: aws.String("attribute_not_exists(#u)"),
		ExpressionAttributeNames: map[string]string{
			"#u": fieldUsedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("verification already used: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// IncrementAttempts atomically adds one to the attempt counter and returns
// the new value. ADD avoids lost updates under concurrent wrong guesses.
func (r *VerificationRepo) IncrementAttempts(ctx context.Context, scope, verificationID string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              compositeKey("scope", scope, "verification_id", verificationID),
		UpdateExpression: aws.String("ADD #c :one"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldAttemptCount,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}
	attr, ok := out.Attributes[fieldAttemptCount].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attempt_count missing from update response")
	}
	n, err := strconv.Atoi(attr.Value)
	if err != nil {
		return 0, fmt.Errorf("parse attempt_count: %w", err)
	}
	return n, nil
}
