package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/sony/gobreaker/v2"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/event"
)

// SNSAPI is the part of the SNS client the sms adapter uses.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSAdapter delivers payloads as SMS via AWS SNS. The transport sits behind
// a circuit breaker so a broken SMS provider sheds load instead of queueing
// timeouts.
type SMSAdapter struct {
	client  SNSAPI
	dir     Directory
	bus     *event.Bus
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
	timeout time.Duration
}

// NewSMSAdapter creates the SMS channel adapter.
func NewSMSAdapter(client SNSAPI, dir Directory, bus *event.Bus, timeout time.Duration, logger *slog.Logger) *SMSAdapter {
	if timeout <= 0 {
		timeout = defaultSMSTimeout
	}
	return &SMSAdapter{
		client:  client,
		dir:     dir,
		bus:     bus,
		breaker: newTransportBreaker(domain.ChannelSMS, logger),
		logger:  logger,
		timeout: timeout,
	}
}

// Name returns the channel identifier.
func (a *SMSAdapter) Name() string {
	return domain.ChannelSMS
}

// Send resolves the user's phone number and publishes one SMS.
func (a *SMSAdapter) Send(ctx context.Context, payload *domain.Payload) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	contact, err := a.dir.Contact(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("resolve sms recipient: %w", err)
	}
	if contact.Phone == "" {
		return fmt.Errorf("user %s has no phone number on file", payload.UserID)
	}

	// Low-priority sends are flagged promotional so carriers may throttle
	// them instead of the transactional traffic.
	smsType := "Transactional"
	if payload.Priority == domain.PriorityLow {
		smsType = "Promotional"
	}

	messageID, err := a.breaker.Execute(func() (string, error) {
		out, err := a.client.Publish(ctx, &sns.PublishInput{
			PhoneNumber: aws.String(contact.Phone),
			Message:     aws.String(payload.Title + ": " + payload.Body),
			MessageAttributes: map[string]snstypes.MessageAttributeValue{
				"AWS.SNS.SMS.SMSType": {
					DataType:    aws.String("String"),
					StringValue: aws.String(smsType),
				},
			},
		})
		if err != nil {
			return "", err
		}
		return aws.ToString(out.MessageId), nil
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}

	a.logger.InfoContext(ctx, "sms sent",
		slog.String("user_id", payload.UserID),
		slog.String("message_id", messageID),
	)

	a.bus.Publish(ctx, event.Event{
		Kind:   event.KindSMSNotification,
		UserID: payload.UserID,
		Title:  payload.Title,
		Body:   payload.Body,
		Data:   payload.Data,
	})

	return nil
}
