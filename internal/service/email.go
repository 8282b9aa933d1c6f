package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client     *resend.Client
	fromEmail  string
	audienceID string
	isDev      bool
	appURL     string
	appName    string
}

func NewEmailService(apiKey, fromEmail, audienceID, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		audienceID: audienceID,
		isDev:      isDev,
		appURL:     appURL,
		appName:    appName,
	}
}

// SendMagicLinkEmail mails an artist their dashboard login link.
func (s *EmailService) SendMagicLinkEmail(email, token string) error {
	magicURL := fmt.Sprintf("%s/auth/magic-link/%s", s.appURL, token)
	subject := fmt.Sprintf("Sign in to %s", s.appName)
	body := fmt.Sprintf("Click the link below to sign in to %s:\n\n%s\n\nThis link expires soon and can only be used once. If you didn't request it, you can ignore this email.", s.appName, magicURL)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "magic_link", "to", email, "url", magicURL)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", "magic_link", "to", email)
	}
	return err
}

// SendDownloadReadyEmail mails a fan their download link after the gate's
// requirements are complete. Best-effort; the fan already has the link in
// the browser.
func (s *EmailService) SendDownloadReadyEmail(email, gateTitle, downloadURL string) error {
	subject := fmt.Sprintf("Your download of %q is ready", gateTitle)
	body := fmt.Sprintf("Thanks for supporting the artist!\n\nDownload %s here:\n\n%s\n\nThe link expires in 24 hours and works once.", gateTitle, downloadURL)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "download_ready", "to", email, "url", downloadURL)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", "download_ready", "to", email)
	}
	return err
}

// SyncContact pushes a consenting contact to the configured Resend audience.
// Errors are swallowed: audience sync is a marketing convenience, never part
// of the funnel contract.
func (s *EmailService) SyncContact(email, firstName string) {
	if s.isDev {
		slog.Info("audience sync (dev mode)", "email", email)
		return
	}

	if s.client == nil || s.audienceID == "" {
		slog.Warn("audience sync requested but no audience configured", "email", email)
		return
	}

	params := &resend.CreateContactRequest{
		Email:      email,
		FirstName:  firstName,
		AudienceId: s.audienceID,
	}

	_, err := s.client.Contacts.Create(params)
	if err != nil {
		// Duplicates, invalid emails and API hiccups all land here
		slog.Warn("audience sync failed", "error", err, "email", email)
		return
	}

	slog.Info("audience sync successful", "email", email)
}
