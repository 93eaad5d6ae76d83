package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

var _ Publisher = (*SNSPublisher)(nil)

// snsAPI is the slice of the SNS client the publisher uses. Tests substitute
// a fake.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher delivers notifications to SNS topics.
type SNSPublisher struct {
	client snsAPI
}

// SNSOptions configures the SNS publisher.
type SNSOptions struct {
	Region   string
	KeyID    string
	Secret   string
	Endpoint string // optional, for local stacks
}

// NewSNSPublisher builds an SNS publisher with static credentials.
func NewSNSPublisher(opts SNSOptions) *SNSPublisher {
	sdkOpts := sns.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
	}
	if opts.Endpoint != "" {
		sdkOpts.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return &SNSPublisher{client: sns.New(sdkOpts)}
}

// Publish sends one message to a topic ARN.
func (p *SNSPublisher) Publish(ctx context.Context, topic string, msg Message) error {
	if topic == "" {
		return fmt.Errorf("no SNS topic configured for dataset %q", msg.Dataset)
	}
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topic),
		Subject:  aws.String(snsSubject(msg.Subject)),
		Message:  aws.String(msg.Body),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// snsSubject trims a subject to the 100-character limit SNS enforces.
func snsSubject(subject string) string {
	runes := []rune(subject)
	if len(runes) <= 100 {
		return subject
	}
	return string(runes[:97]) + "..."
}
