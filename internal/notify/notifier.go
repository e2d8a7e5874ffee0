// Package notify tells account holders and downstream systems about account changes.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"interview-prep-workers/internal/common/errors"
	"interview-prep-workers/internal/common/logger"
	"interview-prep-workers/internal/entitlement"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type TopicPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Options struct {
	Email     EmailSender
	FromEmail string
	Topic     TopicPublisher
	TopicARN  string
	Logger    logger.Logger
}

// Notifier sends a welcome mail on account creation and a receipt plus a topic
// message on plan upgrades. Either channel may be nil.
type Notifier struct {
	email    EmailSender
	from     string
	topic    TopicPublisher
	topicARN string
	logger   logger.Logger
}

func New(opts Options) *Notifier {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Notifier{
		email:    opts.Email,
		from:     opts.FromEmail,
		topic:    opts.Topic,
		topicARN: opts.TopicARN,
		logger:   log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

var _ entitlement.EventSink = (*Notifier)(nil)

// Publish reacts to the account events that have a customer-facing side.
func (n *Notifier) Publish(ctx context.Context, event entitlement.AccountEvent) error {
	switch event.Type {
	case entitlement.EventAccountCreated:
		if event.Email == "" {
			return nil
		}
		return n.sendEmail(ctx, event.Email, "Welcome to interview prep",
			"Your account is ready. Pick a role to start practising.")
	case entitlement.EventPlanUpgraded:
		var firstErr error
		if event.Email != "" {
			firstErr = n.sendEmail(ctx, event.Email, fmt.Sprintf("You are now on the %s plan", event.Plan),
				fmt.Sprintf("Your plan has been upgraded to %s. Advanced questions are now unlocked.", event.Plan))
		}
		if err := n.publishPlanChange(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	if n.email == nil {
		return nil
	}
	out, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(n.from),
		Destination: &sestypes.Destination{ToAddresses: []string{to}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body), Charset: awssdk.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("email", err)
	}

	n.logger.Info("Email sent", map[string]interface{}{
		"to":        to,
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}

func (n *Notifier) publishPlanChange(ctx context.Context, event entitlement.AccountEvent) error {
	if n.topic == nil {
		return nil
	}
	payload, err := json.Marshal(map[string]string{"accountId": event.AccountID, "plan": event.Plan})
	if err != nil {
		return err
	}
	_, err = n.topic.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.topicARN),
		Subject:  awssdk.String("plan upgraded"),
		Message:  awssdk.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {DataType: awssdk.String("String"), StringValue: awssdk.String(event.Type)},
			"plan":      {DataType: awssdk.String("String"), StringValue: awssdk.String(event.Plan)},
		},
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}
	return nil
}
