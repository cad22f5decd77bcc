package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	pkglogger "github.com/danielmv21/fitpulse/pkg/logger"
)

// EmailSender is the notification collaborator. Delivery failures never fail
// the calling flow; they are logged and dropped.
type EmailSender interface {
	SendWelcomeEmail(ctx context.Context, email string) error
}

// AWSSESEmailSender sends mail through AWS SES
type AWSSESEmailSender struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailSender creates a new AWS SES email sender
func NewAWSSESEmailSender(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailSender{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendWelcomeEmail sends the post-registration welcome message
func (s *AWSSESEmailSender) SendWelcomeEmail(ctx context.Context, email string) error {
	htmlBody := `
<!DOCTYPE html>
<html>
<body>
    <h1>Welcome to FitPulse</h1>
    <p>Your account has been created. Open the app and complete your profile to start tracking workouts.</p>
    <p>If you didn't sign up for this account, you can ignore this email.</p>
</body>
</html>`

	textBody := "Welcome to FitPulse!\n\n" +
		"Your account has been created. Open the app and complete your profile to start tracking workouts.\n\n" +
		"If you didn't sign up for this account, you can ignore this email."

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("Welcome to FitPulse"),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	s.logger.Info("welcome email sent", slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}

// NoopEmailSender is used when EMAIL_ENABLED is off
type NoopEmailSender struct{}

func (NoopEmailSender) SendWelcomeEmail(ctx context.Context, email string) error {
	return nil
}
