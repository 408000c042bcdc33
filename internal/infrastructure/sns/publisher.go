package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-prayer-verify/internal/domain"
)

// EventPublisher announces redeemed verification codes.
type EventPublisher interface {
	PublishVerified(ctx context.Context, ev domain.VerificationEvent) error
}

// PublishAPI is the subset of *sns.Client used here.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type publisher struct {
	client   PublishAPI
	topicARN string
}

// NewClient creates an SNS client, honouring a LocalStack endpoint when set.
func NewClient(awsCfg aws.Config, endpointURL string) *sns.Client {
	var clientOpts []func(*sns.Options)
	if endpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(endpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, clientOpts...)
}

func NewPublisher(client PublishAPI, topicARN string) EventPublisher {
	return &publisher{client: client, topicARN: topicARN}
}

func (p *publisher) PublishVerified(ctx context.Context, ev domain.VerificationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal verification event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"action_type": {DataType: aws.String("String"), StringValue: aws.String(ev.ActionType)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// Noop discards events. Used when no topic is configured.
type Noop struct{}

func (Noop) PublishVerified(context.Context, domain.VerificationEvent) error { return nil }
