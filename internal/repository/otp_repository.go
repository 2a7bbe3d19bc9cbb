package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/models"
)

type OTPRepository interface {
	Create(ctx context.Context, attempt *models.OtpAttempt) error
	LatestUnverified(ctx context.Context, countryCode, mobile string) (*models.OtpAttempt, error)
	DeleteByPhone(ctx context.Context, countryCode, mobile string) error
	Delete(ctx context.Context, attempt *models.OtpAttempt) error
	IncrementAttempts(ctx context.Context, attempt *models.OtpAttempt) (int, error)
	MarkVerified(ctx context.Context, attempt *models.OtpAttempt) error
	PurgeExpired(ctx context.Context, now time.Time) error
}

type otpRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewOTPRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) OTPRepository {
	return &otpRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *otpRepository) Create(ctx context.Context, attempt *models.OtpAttempt) error {
	item, err := attributevalue.MarshalMap(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP attempt: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: attempt.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: attempt.GetSK()}
	// DynamoDB-native expiry as a safety net behind the explicit purge.
	item["TTL"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempt.ExpiresAt.Unix())}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to store OTP attempt in DynamoDB")
		return fmt.Errorf("failed to store OTP attempt: %w", err)
	}

	return nil
}

// LatestUnverified returns the most recently created unverified attempt
// for the phone number, or nil when none exists.
func (r *otpRepository) LatestUnverified(ctx context.Context, countryCode, mobile string) (*models.OtpAttempt, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		FilterExpression:       aws.String("verified = :false"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":    &types.AttributeValueMemberS{Value: models.OtpPK(countryCode, mobile)},
			":sk":    &types.AttributeValueMemberS{Value: "ATTEMPT!"},
			":false": &types.AttributeValueMemberBOOL{Value: false},
		},
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to query OTP attempts from DynamoDB")
		return nil, fmt.Errorf("failed to query OTP attempts: %w", err)
	}

	var latest *models.OtpAttempt
	for _, item := range result.Items {
		var attempt models.OtpAttempt
		if err := attributevalue.UnmarshalMap(item, &attempt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal OTP attempt: %w", err)
		}
		if latest == nil || attempt.CreatedAt.After(latest.CreatedAt) {
			a := attempt
			latest = &a
		}
	}

	return latest, nil
}

// DeleteByPhone removes every attempt for the phone number regardless of
// expiry or verification state.
func (r *otpRepository) DeleteByPhone(ctx context.Context, countryCode, mobile string) error {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ProjectionExpression:   aws.String("PK, SK"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: models.OtpPK(countryCode, mobile)},
			":sk": &types.AttributeValueMemberS{Value: "ATTEMPT!"},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to query OTP attempts for delete: %w", err)
	}

	keys := make([]map[string]types.AttributeValue, 0, len(result.Items))
	for _, item := range result.Items {
		keys = append(keys, map[string]types.AttributeValue{
			"PK": item["PK"],
			"SK": item["SK"],
		})
	}

	return r.batchDelete(ctx, keys)
}

func (r *otpRepository) Delete(ctx context.Context, attempt *models.OtpAttempt) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: attempt.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: attempt.GetSK()},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to delete OTP attempt: %w", err)
	}

	return nil
}

// IncrementAttempts atomically bumps the failed-attempt counter and
// returns the new count.
func (r *otpRepository) IncrementAttempts(ctx context.Context, attempt *models.OtpAttempt) (int, error) {
	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: attempt.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: attempt.GetSK()},
		},
		UpdateExpression: aws.String("ADD attempts :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to increment OTP attempts in DynamoDB")
		return 0, fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	var updated struct {
		Attempts int `dynamodbav:"attempts"`
	}
	if err := attributevalue.UnmarshalMap(result.Attributes, &updated); err != nil {
		return 0, fmt.Errorf("failed to unmarshal attempt count: %w", err)
	}

	return updated.Attempts, nil
}

func (r *otpRepository) MarkVerified(ctx context.Context, attempt *models.OtpAttempt) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: attempt.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: attempt.GetSK()},
		},
		UpdateExpression: aws.String("SET verified = :true"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to mark OTP attempt verified: %w", err)
	}

	return nil
}

// PurgeExpired deletes every unverified attempt whose expiry has passed,
// across all phone numbers. Runs opportunistically on each OTP request.
func (r *otpRepository) PurgeExpired(ctx context.Context, now time.Time) error {
	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		FilterExpression:     aws.String("begins_with(PK, :prefix) AND verified = :false AND #ttl < :now"),
		ProjectionExpression: aws.String("PK, SK"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: "OTP!"},
			":false":  &types.AttributeValueMemberBOOL{Value: false},
			":now":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to scan expired OTP attempts: %w", err)
	}

	keys := make([]map[string]types.AttributeValue, 0, len(result.Items))
	for _, item := range result.Items {
		keys = append(keys, map[string]types.AttributeValue{
			"PK": item["PK"],
			"SK": item["SK"],
		})
	}

	return r.batchDelete(ctx, keys)
}

func (r *otpRepository) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue) error {
	// BatchWriteItem takes at most 25 requests per call.
	for len(keys) > 0 {
		n := len(keys)
		if n > 25 {
			n = 25
		}

		requests := make([]types.WriteRequest, 0, n)
		for _, key := range keys[:n] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}

		_, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.tableName: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to batch delete OTP attempts: %w", err)
		}

		keys = keys[n:]
	}

	return nil
}
