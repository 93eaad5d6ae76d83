package watermark

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"driftline/internal/domain"
)

// dynamoAPI is the subset of the DynamoDB client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps watermarks in a DynamoDB table keyed by source.
// Advance uses a conditional write so concurrent processors cannot move the
// watermark backwards.
type DynamoStore struct {
	client dynamoAPI
	table  string
}

// ClientOptions configures the DynamoDB client.
type ClientOptions struct {
	Region   string
	KeyID    string
	Secret   string
	Endpoint string // optional, for DynamoDB Local or compatible stores
}

// NewDynamoClient builds a DynamoDB client from static credentials.
func NewDynamoClient(opts ClientOptions) *dynamodb.Client {
	clientOpts := dynamodb.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
	}
	if opts.Endpoint != "" {
		clientOpts.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return dynamodb.New(clientOpts)
}

// NewDynamoStore creates a store over an existing client and table.
func NewDynamoStore(client dynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// item is the stored shape of one watermark.
type item struct {
	Source    string `dynamodbav:"source"`
	FolderTS  string `dynamodbav:"folder_ts"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func (s *DynamoStore) Get(ctx context.Context, source string) (*domain.Watermark, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            sourceKey(source),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get watermark for %q: %w", source, err)
	}
	if out.Item == nil {
		return &domain.Watermark{Source: source}, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("decode watermark for %q: %w", source, err)
	}
	w := &domain.Watermark{Source: it.Source, FolderTS: it.FolderTS}
	if t, err := time.Parse(time.RFC3339, it.UpdatedAt); err == nil {
		w.UpdatedAt = t
	}
	return w, nil
}

func (s *DynamoStore) ShouldProcess(ctx context.Context, source, folderTS string) (bool, error) {
	w, err := s.Get(ctx, source)
	if err != nil {
		return false, err
	}
	return domain.FolderTSAfter(folderTS, w.FolderTS), nil
}

// Advance writes the new watermark only when the item is absent or strictly
// older. The fixed-width folder timestamp makes the lexicographic condition
// a chronological one.
func (s *DynamoStore) Advance(ctx context.Context, source, folderTS string) error {
	it, err := marshalItem(source, folderTS)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                it,
		ConditionExpression: aws.String("attribute_not_exists(#src) OR #fts < :ts"),
		ExpressionAttributeNames: map[string]string{
			"#src": "source",
			"#fts": "folder_ts",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ts": &types.AttributeValueMemberS{Value: folderTS},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrConflict("watermark for %q is already at or past %s", source, folderTS)
		}
		return fmt.Errorf("advance watermark for %q: %w", source, err)
	}
	return nil
}

func (s *DynamoStore) Reset(ctx context.Context, source, folderTS string) error {
	it, err := marshalItem(source, folderTS)
	if err != nil {
		return err
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      it,
	}); err != nil {
		return fmt.Errorf("reset watermark for %q: %w", source, err)
	}
	return nil
}

// List scans the whole table. Watermark tables hold one item per dataset, so
// a scan stays small; results are sorted for stable output.
func (s *DynamoStore) List(ctx context.Context) ([]domain.Watermark, error) {
	var out []domain.Watermark
	var startKey map[string]types.AttributeValue
	for {
		page, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan watermarks: %w", err)
		}

		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("decode watermarks: %w", err)
		}
		for _, it := range items {
			w := domain.Watermark{Source: it.Source, FolderTS: it.FolderTS}
			if t, err := time.Parse(time.RFC3339, it.UpdatedAt); err == nil {
				w.UpdatedAt = t
			}
			out = append(out, w)
		}

		if page.LastEvaluatedKey == nil {
			break
		}
		startKey = page.LastEvaluatedKey
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

func sourceKey(source string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"source": &types.AttributeValueMemberS{Value: source},
	}
}

func marshalItem(source, folderTS string) (map[string]types.AttributeValue, error) {
	it, err := attributevalue.MarshalMap(item{
		Source:    source,
		FolderTS:  folderTS,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("encode watermark for %q: %w", source, err)
	}
	return it, nil
}
