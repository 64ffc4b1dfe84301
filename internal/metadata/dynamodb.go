package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hoopgraph-backend/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	metadataSortKey = "METADATA"
	batchWriteLimit = 25
	maxBatchRetries = 5
)

// DynamoDBAPI is the subset of the DynamoDB client used here.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// ddbPairItem is the stored item: the pair record plus its key attributes.
type ddbPairItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	domain.PairRecord
}

// pairProjection limits GetItem to the attributes EdgeMetadata needs.
var pairProjection = mustProjection(expression.NamesList(
	expression.Name("SharedTeams"),
	expression.Name("SharedGamesRecord"),
	expression.Name("StartYearTogether"),
))

func mustProjection(proj expression.ProjectionBuilder) expression.Expression {
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		panic(fmt.Sprintf("build pair projection: %v", err))
	}
	return expr
}

// DynamoStore reads and writes edge metadata in a single DynamoDB table keyed
// PK=PAIR#<low>#<high>, SK=METADATA.
type DynamoStore struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

// NewDynamoStore creates a store over an existing client.
func NewDynamoStore(client DynamoDBAPI, tableName string, logger *zap.Logger) *DynamoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoStore{client: client, tableName: tableName, logger: logger.Named("metadata.dynamodb")}
}

// NewDynamoClient loads the default AWS configuration. A non-empty endpoint
// points the client at DynamoDB Local.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// PairPK builds the partition key for a pair.
func PairPK(key domain.PairKey) string {
	key = domain.NewPairKey(key.Low, key.High)
	return fmt.Sprintf("PAIR#%d#%d", key.Low, key.High)
}

// Lookup implements Lookup.
func (s *DynamoStore) Lookup(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: PairPK(key)},
			"SK": &types.AttributeValueMemberS{Value: metadataSortKey},
		},
		ProjectionExpression:     pairProjection.Projection(),
		ExpressionAttributeNames: pairProjection.Names(),
	})
	if err != nil {
		return domain.EdgeMetadata{}, false, fmt.Errorf("get pair %s (%s): %w", key, ClassifyError(err), err)
	}
	if result.Item == nil {
		return domain.EdgeMetadata{}, false, nil
	}

	var item ddbPairItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return domain.EdgeMetadata{}, false, fmt.Errorf("unmarshal pair %s: %w", key, err)
	}
	return item.Metadata(), true, nil
}

// Import implements Importer with BatchWriteItem, retrying unprocessed items
// with a short backoff.
func (s *DynamoStore) Import(ctx context.Context, records []domain.PairRecord) (int, error) {
	written := 0
	for start := 0; start < len(records); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(records) {
			end = len(records)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, r := range records[start:end] {
			key := r.Key()
			r.PlayerIDLow, r.PlayerIDHigh = int64(key.Low), int64(key.High)
			item, err := attributevalue.MarshalMap(ddbPairItem{PK: PairPK(key), SK: metadataSortKey, PairRecord: r})
			if err != nil {
				return written, fmt.Errorf("marshal pair %s: %w", key, err)
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		if err := s.writeBatch(ctx, requests); err != nil {
			return written, err
		}
		written += len(requests)
		s.logger.Debug("Wrote metadata batch", zap.Int("items", len(requests)), zap.Int("total", written))
	}
	return written, nil
}

func (s *DynamoStore) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{s.tableName: requests}
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= maxBatchRetries; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("batch write (%s): %w", ClassifyError(err), err)
		}
		if len(out.UnprocessedItems[s.tableName]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("batch write: %d items still unprocessed after %d retries", len(pending[s.tableName]), maxBatchRetries)
}

// ClassifyError names the failure for logs: the DynamoDB error code when the
// service answered, "canceled" or "timeout" for context errors, "client"
// otherwise.
func ClassifyError(err error) string {
	var throttled *types.ProvisionedThroughputExceededException
	var notFound *types.ResourceNotFoundException
	var apiErr smithy.APIError
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &throttled):
		return "throttled"
	case errors.As(err, &notFound):
		return "table_not_found"
	case errors.As(err, &apiErr):
		return apiErr.ErrorCode()
	default:
		return "client"
	}
}
