package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/domain"
	"github.com/aura-securities/website-api/internal/models"
)

type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.ContactSubmission) error
	List(ctx context.Context) ([]models.ContactSubmission, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.ContactSubmission, error)
}

type submissionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewSubmissionRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) SubmissionRepository {
	return &submissionRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.ContactSubmission) error {
	item, err := attributevalue.MarshalMap(submission)
	if err != nil {
		return fmt.Errorf("failed to marshal contact submission: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: submission.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: submission.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store contact submission in DynamoDB")
		return fmt.Errorf("failed to store contact submission: %w", err)
	}

	return nil
}

// List returns all contact submissions, newest first.
func (r *submissionRepository) List(ctx context.Context) ([]models.ContactSubmission, error) {
	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: "SUBMISSION!"},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to scan contact submissions from DynamoDB")
		return nil, fmt.Errorf("failed to list contact submissions: %w", err)
	}

	submissions := make([]models.ContactSubmission, 0, len(result.Items))
	for _, item := range result.Items {
		var submission models.ContactSubmission
		if err := attributevalue.UnmarshalMap(item, &submission); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contact submission: %w", err)
		}
		submissions = append(submissions, submission)
	}

	sort.Slice(submissions, func(i, j int) bool {
		return submissions[i].CreatedAt.After(submissions[j].CreatedAt)
	})

	return submissions, nil
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id, status string) (*models.ContactSubmission, error) {
	key := &models.ContactSubmission{ID: id}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.GetPK()},
			"SK": &types.AttributeValueMemberS{Value: key.GetSK()},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
		UpdateExpression:    aws.String("SET #status = :status"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
		},
		ReturnValues: types.ReturnValueAllNew,
	})

	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, domain.ErrSubmissionNotFound
		}
		r.logger.WithError(err).Error("Failed to update contact submission in DynamoDB")
		return nil, fmt.Errorf("failed to update contact submission: %w", err)
	}

	var submission models.ContactSubmission
	if err := attributevalue.UnmarshalMap(result.Attributes, &submission); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact submission: %w", err)
	}

	return &submission, nil
}
