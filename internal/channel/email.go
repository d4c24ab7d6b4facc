package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/sony/gobreaker/v2"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/event"
)

// SESAPI is the part of the SES client the email adapter uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailAdapter delivers payloads as email via AWS SES, behind the same
// breaker policy as the sms transport.
type EmailAdapter struct {
	client  SESAPI
	dir     Directory
	bus     *event.Bus
	breaker *gobreaker.CircuitBreaker[string]
	from    string
	logger  *slog.Logger
	timeout time.Duration
}

// NewEmailAdapter creates the email channel adapter. from is the verified
// SES sender address.
func NewEmailAdapter(client SESAPI, dir Directory, bus *event.Bus, from string, timeout time.Duration, logger *slog.Logger) *EmailAdapter {
	if timeout <= 0 {
		timeout = defaultEmailTimeout
	}
	return &EmailAdapter{
		client:  client,
		dir:     dir,
		bus:     bus,
		breaker: newTransportBreaker(domain.ChannelEmail, logger),
		from:    from,
		logger:  logger,
		timeout: timeout,
	}
}

// Name returns the channel identifier.
func (a *EmailAdapter) Name() string {
	return domain.ChannelEmail
}

// Send resolves the user's email address and sends one message.
func (a *EmailAdapter) Send(ctx context.Context, payload *domain.Payload) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	contact, err := a.dir.Contact(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("resolve email recipient: %w", err)
	}
	if contact.Email == "" {
		return fmt.Errorf("user %s has no email address on file", payload.UserID)
	}

	body := payload.Body
	if payload.ActionURL != "" {
		body += "\n\n" + payload.ActionURL
	}

	messageID, err := a.breaker.Execute(func() (string, error) {
		out, err := a.client.SendEmail(ctx, &ses.SendEmailInput{
			Source: aws.String(a.from),
			Destination: &sestypes.Destination{
				ToAddresses: []string{contact.Email},
			},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{
					Data:    aws.String(payload.Title),
					Charset: aws.String("UTF-8"),
				},
				Body: &sestypes.Body{
					Text: &sestypes.Content{
						Data:    aws.String(body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		})
		if err != nil {
			return "", err
		}
		return aws.ToString(out.MessageId), nil
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}

	a.logger.InfoContext(ctx, "email sent",
		slog.String("user_id", payload.UserID),
		slog.String("message_id", messageID),
	)

	a.bus.Publish(ctx, event.Event{
		Kind:   event.KindEmailNotification,
		UserID: payload.UserID,
		Title:  payload.Title,
		Body:   payload.Body,
		Data:   payload.Data,
	})

	return nil
}
