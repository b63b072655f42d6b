package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email string) error {
	appURL := fmt.Sprintf("%s/app", s.appURL)
	subject, body := welcomeEmailTemplate(appURL, s.appName)
	return s.send(ctx, "welcome", email, subject, body)
}

// SendDeadlinePassed tells the owner their goal's deadline is over and the code stays locked.
func (s *EmailService) SendDeadlinePassed(ctx context.Context, email, goal string, deadline time.Time) error {
	appURL := fmt.Sprintf("%s/app", s.appURL)
	subject, body := deadlinePassedEmailTemplate(goal, deadline, appURL, s.appName)
	return s.send(ctx, "deadline_passed", email, subject, body)
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", to)
	}
	return err
}
