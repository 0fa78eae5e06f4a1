package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Dan9191/finance-tracker/internal/config"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// buildStatement renders a monthly statement as a plain-text email
func (s *Sender) buildStatement(st models.Statement) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{st.Email}
	e.Subject = fmt.Sprintf("Your statement for %s", st.PeriodStart.Format("January 2006"))

	currency := s.cfg.BaseCurrency
	body := fmt.Sprintf("Dear %s,\n\n", st.Username)
	body += fmt.Sprintf(
		"Here is your summary for %s - %s.\n"+
			"Transactions: %d\n"+
			"Income: %s %s\n"+
			"Expense: %s %s\n"+
			"Net: %s %s\n"+
			"Remaining balance: %s %s\n",
		st.PeriodStart.Format("2006-01-02"), st.PeriodEnd.AddDate(0, 0, -1).Format("2006-01-02"),
		st.Count,
		st.Income.StringFixed(2), currency,
		st.Expense.StringFixed(2), currency,
		st.Net().StringFixed(2), currency,
		st.ClosingBalance.StringFixed(2), currency,
	)
	body += "\nBest regards,\nFinance Tracker"
	e.Text = []byte(body)
	return e
}

// SendStatement emails a monthly statement to its user
func (s *Sender) SendStatement(ctx context.Context, st models.Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.Email == "" {
		return fmt.Errorf("user %s has no email address", st.UserID)
	}
	e := s.buildStatement(st)

	// Send email
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send statement to %s: %v", st.Email, err)
		return fmt.Errorf("failed to send statement: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", st.Email, e.Subject)
	return nil
}
