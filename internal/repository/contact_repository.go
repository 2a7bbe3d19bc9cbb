package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/models"
)

type ContactRepository interface {
	Upsert(ctx context.Context, countryCode, mobile string, verifiedAt time.Time) (*models.VerifiedContact, error)
	List(ctx context.Context) ([]models.VerifiedContact, error)
}

type contactRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewContactRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) ContactRepository {
	return &contactRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Upsert bumps VerifiedAt on the existing row for the phone number or
// creates a new one. Exactly one row per (countryCode, mobile).
func (r *contactRepository) Upsert(ctx context.Context, countryCode, mobile string, verifiedAt time.Time) (*models.VerifiedContact, error) {
	existing, err := r.getByPhone(ctx, countryCode, mobile)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: existing.GetPK()},
				"SK": &types.AttributeValueMemberS{Value: existing.GetSK()},
			},
			UpdateExpression: aws.String("SET verified_at = :verified_at"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":verified_at": &types.AttributeValueMemberS{Value: verifiedAt.Format(time.RFC3339Nano)},
			},
		})
		if err != nil {
			r.logger.WithError(err).Error("Failed to update verified contact in DynamoDB")
			return nil, fmt.Errorf("failed to update verified contact: %w", err)
		}

		existing.VerifiedAt = verifiedAt
		return existing, nil
	}

	contact := &models.VerifiedContact{
		ID:          uuid.NewString(),
		CountryCode: countryCode,
		Mobile:      mobile,
		VerifiedAt:  verifiedAt,
	}

	item, err := attributevalue.MarshalMap(contact)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verified contact: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: contact.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: contact.GetSK()}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to create verified contact in DynamoDB")
		return nil, fmt.Errorf("failed to create verified contact: %w", err)
	}

	return contact, nil
}

// List returns all verified contacts, newest verification first.
func (r *contactRepository) List(ctx context.Context) ([]models.VerifiedContact, error) {
	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: "CONTACT!"},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to scan verified contacts from DynamoDB")
		return nil, fmt.Errorf("failed to list verified contacts: %w", err)
	}

	contacts := make([]models.VerifiedContact, 0, len(result.Items))
	for _, item := range result.Items {
		var contact models.VerifiedContact
		if err := attributevalue.UnmarshalMap(item, &contact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verified contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].VerifiedAt.After(contacts[j].VerifiedAt)
	})

	return contacts, nil
}

func (r *contactRepository) getByPhone(ctx context.Context, countryCode, mobile string) (*models.VerifiedContact, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.ContactPK(countryCode, mobile)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get verified contact: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var contact models.VerifiedContact
	if err := attributevalue.UnmarshalMap(result.Item, &contact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verified contact: %w", err)
	}

	return &contact, nil
}
