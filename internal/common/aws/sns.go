// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the subset of the SNS client used to send SMS.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSTransport sends reminders as transactional SMS.
type SNSTransport struct {
	client   SNSService
	senderID string
}

func NewSNSTransport(ctx context.Context, region, senderID string) (*SNSTransport, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSNSTransportWithClient(sns.NewFromConfig(cfg), senderID), nil
}

func NewSNSTransportWithClient(client SNSService, senderID string) *SNSTransport {
	return &SNSTransport{client: client, senderID: senderID}
}

func (t *SNSTransport) Name() string {
	return "sns"
}

// Send publishes text to phone, given as digits with country code.
func (t *SNSTransport) Send(ctx context.Context, phone, text string) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if t.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(t.senderID),
		}
	}

	_, err := t.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String("+" + phone),
		Message:           aws.String(text),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
