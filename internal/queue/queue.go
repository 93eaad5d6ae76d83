// Package queue publishes post-load handoff messages to an SQS FIFO queue so
// downstream consumers pick up freshly loaded drops exactly once per folder.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"driftline/internal/domain"
)

// Handoff is the JSON body of one queue message.
type Handoff struct {
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	Dataset    string `json:"dataset"`
	FolderTS   string `json:"folder_ts"`
	RowsLoaded int64  `json:"rows_loaded"`
}

// Publisher hands a completed load off to downstream consumers.
// Implementations: SQSPublisher, NopPublisher.
type Publisher interface {
	LoadCompleted(ctx context.Context, result domain.LoadResult) error
}

var _ Publisher = (*SQSPublisher)(nil)
var _ Publisher = NopPublisher{}

// sqsAPI is the slice of the SQS client the publisher uses. Tests substitute
// a fake.
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends handoffs to an SQS FIFO queue. The group and
// deduplication IDs are both "<basename>-<folderTS>", so re-processing the
// same folder within the dedup window does not double-deliver.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

// SQSOptions configures the SQS publisher.
type SQSOptions struct {
	Region   string
	KeyID    string
	Secret   string
	Endpoint string // optional, for local stacks
	QueueURL string
}

// NewSQSPublisher builds an SQS publisher with static credentials.
func NewSQSPublisher(opts SQSOptions) *SQSPublisher {
	sdkOpts := sqs.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
	}
	if opts.Endpoint != "" {
		sdkOpts.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return &SQSPublisher{client: sqs.New(sdkOpts), queueURL: opts.QueueURL}
}

// LoadCompleted publishes one handoff message for a successful load.
func (p *SQSPublisher) LoadCompleted(ctx context.Context, result domain.LoadResult) error {
	body, err := json.Marshal(Handoff{
		Bucket:     result.Bucket,
		Key:        result.ObjectKey,
		Dataset:    result.Dataset,
		FolderTS:   result.FolderTS,
		RowsLoaded: result.RowsLoaded,
	})
	if err != nil {
		return fmt.Errorf("marshal handoff for %s: %w", result.ObjectKey, err)
	}

	id := groupID(result.ObjectKey, result.FolderTS)
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(p.queueURL),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(id),
		MessageDeduplicationId: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("send handoff for %s: %w", result.ObjectKey, err)
	}
	return nil
}

// groupID derives the FIFO group and deduplication ID from the object's base
// name (without extension) and the folder timestamp.
func groupID(key, folderTS string) string {
	base := path.Base(key)
	base = strings.TrimSuffix(base, path.Ext(base))
	return base + "-" + folderTS
}

// NopPublisher drops handoffs. It stands in when no queue is configured.
type NopPublisher struct{}

// LoadCompleted does nothing.
func (NopPublisher) LoadCompleted(context.Context, domain.LoadResult) error { return nil }
