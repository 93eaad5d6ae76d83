package queue

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftline/internal/domain"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

func queueTestResult() domain.LoadResult {
	return domain.LoadResult{
		Dataset:    "orders",
		Table:      "orders",
		Bucket:     "landing",
		ObjectKey:  "orders/2024-01-02-00-00-00/part-1.csv",
		FolderTS:   "2024-01-02-00-00-00",
		RowsLoaded: 120,
		Duration:   time.Second,
	}
}

func TestSQSPublisherLoadCompleted(t *testing.T) {
	fake := &fakeSQS{}
	p := &SQSPublisher{client: fake, queueURL: "https://sqs.eu-central-1.amazonaws.com/123/loads.fifo"}

	err := p.LoadCompleted(context.Background(), queueTestResult())
	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)

	in := fake.inputs[0]
	assert.Equal(t, "https://sqs.eu-central-1.amazonaws.com/123/loads.fifo", aws.ToString(in.QueueUrl))
	assert.Equal(t, "part-1-2024-01-02-00-00-00", aws.ToString(in.MessageGroupId))
	assert.Equal(t, "part-1-2024-01-02-00-00-00", aws.ToString(in.MessageDeduplicationId))
	assert.JSONEq(t, `{
		"bucket": "landing",
		"key": "orders/2024-01-02-00-00-00/part-1.csv",
		"dataset": "orders",
		"folder_ts": "2024-01-02-00-00-00",
		"rows_loaded": 120
	}`, aws.ToString(in.MessageBody))
}

func TestSQSPublisherSendError(t *testing.T) {
	p := &SQSPublisher{client: &fakeSQS{err: assert.AnError}, queueURL: "url"}

	err := p.LoadCompleted(context.Background(), queueTestResult())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestGroupID(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		folderTS string
		want     string
	}{
		{
			name:     "csv",
			key:      "orders/2024-01-02-00-00-00/part-1.csv",
			folderTS: "2024-01-02-00-00-00",
			want:     "part-1-2024-01-02-00-00-00",
		},
		{
			name:     "no_extension",
			key:      "orders/2024-01-02-00-00-00/dump",
			folderTS: "2024-01-02-00-00-00",
			want:     "dump-2024-01-02-00-00-00",
		},
		{
			name:     "dotted_name",
			key:      "orders/2024-01-02-00-00-00/a.b.csv",
			folderTS: "2024-01-02-00-00-00",
			want:     "a.b-2024-01-02-00-00-00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, groupID(tt.key, tt.folderTS))
		})
	}
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.LoadCompleted(context.Background(), queueTestResult()))
}
