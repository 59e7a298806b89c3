package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SESAPI is the subset of the SES client used for email.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSAPI is the subset of the SNS client used for SMS.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// LoadAWSConfig resolves credentials from the default provider chain.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// SESEmailSender delivers email through Amazon SES.
type SESEmailSender struct {
	client SESAPI
	from   string
}

// NewSESEmailSender constructs an SES sender.
func NewSESEmailSender(client SESAPI, from string) (*SESEmailSender, error) {
	if client == nil {
		return nil, errors.New("ses sender: client is required")
	}
	if from == "" {
		return nil, errors.New("ses sender: from address is required")
	}
	return &SESEmailSender{client: client, from: from}, nil
}

// SendEmail renders msg and submits it to SES.
func (s *SESEmailSender) SendEmail(ctx context.Context, to string, msg Message, branding Branding) *Result {
	rendered, err := RenderEmail(msg, branding)
	if err != nil {
		return Failed(err)
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(rendered.Subject), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(rendered.Text), Charset: aws.String("UTF-8")},
				Html: &sestypes.Content{Data: aws.String(rendered.HTML), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return Failed(fmt.Errorf("ses send email: %w", err))
	}
	return Delivered(aws.ToString(out.MessageId))
}

// SNSSMSSender delivers text messages through Amazon SNS.
type SNSSMSSender struct {
	client   SNSAPI
	senderID string
}

// NewSNSSMSSender constructs an SNS sender. senderID is optional.
func NewSNSSMSSender(client SNSAPI, senderID string) (*SNSSMSSender, error) {
	if client == nil {
		return nil, errors.New("sns sender: client is required")
	}
	return &SNSSMSSender{client: client, senderID: senderID}, nil
}

// SendSMS publishes msg directly to phone.
func (s *SNSSMSSender) SendSMS(ctx context.Context, phone string, msg Message) *Result {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(ShortText(msg)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if s.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return Failed(fmt.Errorf("sns publish: %w", err))
	}
	return Delivered(aws.ToString(out.MessageId))
}
