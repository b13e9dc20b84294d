package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/models"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
}

// EmailNotifier sends lifecycle email over SMTP.
type EmailNotifier struct {
	cfg    SMTPConfig
	logger logging.Logger
}

func NewEmailNotifier(cfg SMTPConfig, logger logging.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

func (n *EmailNotifier) SendConfirmation(ctx context.Context, user *models.User, code string) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Confirm your email</h2>
    <p>Hi %s, your confirmation code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>Enter it to activate your account.</p>
  </div>
</body>
</html>`, displayName(user), code)

	err := n.send(user.Email, "Confirm your account", body)
	if err == nil {
		n.logger.Info(ctx, "confirmation email sent", "to", user.Email)
	}
	return err
}

func (n *EmailNotifier) SendPasswordReset(ctx context.Context, user *models.User, code string) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Password reset</h2>
    <p>Hi %s, your password reset code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>If you did not request a reset, ignore this message.</p>
  </div>
</body>
</html>`, displayName(user), code)

	err := n.send(user.Email, "Password reset code", body)
	if err == nil {
		n.logger.Info(ctx, "password reset email sent", "to", user.Email)
	}
	return err
}

func (n *EmailNotifier) SendOAuthWelcome(ctx context.Context, user *models.User) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Welcome, %s!</h2>
    <p>Your account was created with your Google sign-in.</p>
    <p>You can complete your profile with your document and phone number at any time.</p>
  </div>
</body>
</html>`, displayName(user))

	err := n.send(user.Email, "Welcome", body)
	if err == nil {
		n.logger.Info(ctx, "welcome email sent", "to", user.Email)
	}
	return err
}

func (n *EmailNotifier) send(toEmail, subject, htmlBody string) error {
	if n.cfg.Host == "" || n.cfg.FromEmail == "" {
		return fmt.Errorf("email config missing")
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.User, n.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func displayName(user *models.User) string {
	if user.FullName != "" {
		return user.FullName
	}
	if user.Username != "" {
		return user.Username
	}
	return user.Email
}
