package store

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
	"github.com/example/ec-fulfillment/internal/domain/product"
	"github.com/shopspring/decimal"
)

// DynamoAPI is the subset of the DynamoDB client the product store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoProductStore keeps the product ledger in a DynamoDB table keyed by id.
// Stock changes use conditional updates, so concurrent writers never clobber
// each other.
type DynamoProductStore struct {
	client    DynamoAPI
	tableName string
}

// productItem represents the DynamoDB item structure
type productItem struct {
	ID             string `dynamodbav:"id"`
	Code           string `dynamodbav:"code"`
	VendorID       string `dynamodbav:"vendor_id"`
	Name           string `dynamodbav:"name"`
	Price          string `dynamodbav:"price"`
	ImageURL       string `dynamodbav:"image_url,omitempty"`
	Stock          int    `dynamodbav:"stock"`
	StockThreshold int    `dynamodbav:"stock_threshold"`
	IsActive       bool   `dynamodbav:"is_active"`
	UpdatedAt      string `dynamodbav:"updated_at"`
}

func NewDynamoProductStore(client DynamoAPI, tableName string) *DynamoProductStore {
	return &DynamoProductStore{client: client, tableName: tableName}
}

func (s *DynamoProductStore) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, product.ErrProductNotFound
	}
	return unmarshalProduct(out.Item)
}

func (s *DynamoProductStore) ListProducts(ctx context.Context) ([]*product.Product, error) {
	var products []*product.Product

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:      aws.String(s.tableName),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		for _, item := range page.Items {
			p, err := unmarshalProduct(item)
			if err != nil {
				return nil, err
			}
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *DynamoProductStore) CompareAndSwapStock(ctx context.Context, id string, expected, next int) (bool, error) {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.key(id),
		UpdateExpression:    aws.String("SET stock = :next, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(id) AND stock = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next":     &types.AttributeValueMemberN{Value: strconv.Itoa(next)},
			":expected": &types.AttributeValueMemberN{Value: strconv.Itoa(expected)},
			":now":      &types.AttributeValueMemberS{Value: now().Format(time.RFC3339Nano)},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("swap stock for %s: %w", id, err)
	}
	return true, nil
}

func (s *DynamoProductStore) IncrementStock(ctx context.Context, id string, delta int) (int, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.key(id),
		UpdateExpression:    aws.String("ADD stock :delta SET updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: strconv.Itoa(delta)},
			":now":   &types.AttributeValueMemberS{Value: now().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return 0, product.ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment stock for %s: %w", id, err)
	}

	var updated struct {
		Stock int `dynamodbav:"stock"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, fmt.Errorf("decode stock for %s: %w", id, err)
	}
	return updated.Stock, nil
}

// PutProduct writes a full product record. The catalog owns products; this
// is used for seeding.
func (s *DynamoProductStore) PutProduct(ctx context.Context, p *product.Product) error {
	av, err := attributevalue.MarshalMap(productItem{
		ID:             p.ID,
		Code:           p.Code,
		VendorID:       p.VendorID,
		Name:           p.Name,
		Price:          p.Price.String(),
		ImageURL:       p.ImageURL,
		Stock:          p.Stock,
		StockThreshold: p.StockThreshold,
		IsActive:       p.IsActive,
		UpdatedAt:      p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	return err
}

func (s *DynamoProductStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func unmarshalProduct(item map[string]types.AttributeValue) (*product.Product, error) {
	var rec productItem
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}

	price, err := decimal.NewFromString(rec.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s has invalid price %q: %w", rec.ID, rec.Price, err)
	}

	p := &product.Product{
		ID:             rec.ID,
		Code:           rec.Code,
		VendorID:       rec.VendorID,
		Name:           rec.Name,
		Price:          price,
		ImageURL:       rec.ImageURL,
		Stock:          rec.Stock,
		StockThreshold: rec.StockThreshold,
		IsActive:       rec.IsActive,
	}
	if rec.UpdatedAt != "" {
		if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("product %s has invalid updated_at: %w", rec.ID, err)
		}
	}
	return p, nil
}
