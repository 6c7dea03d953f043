package notifications

import (
	"fmt"
	"io"
	"log/slog"

	gomail "gopkg.in/gomail.v2"
)

// Mailer sends plain-text transactional emails over SMTP.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	siteName string
}

func NewMailer(host string, port int, user, password, from, siteName string) *Mailer {
	return &Mailer{
		dialer:   gomail.NewDialer(host, port, user, password),
		from:     from,
		siteName: siteName,
	}
}

func (m *Mailer) SendOTP(email, code string) error {
	body := fmt.Sprintf(
		"Your %s transfer verification code is %s.\n\nIf you did not request a transfer, contact support immediately.\n",
		m.siteName, code)
	return m.send(email, fmt.Sprintf("%s Transfer OTP", m.siteName), body, "", nil)
}

func (m *Mailer) SendTransferConfirmation(c TransferConfirmation) error {
	senderBody := fmt.Sprintf(
		"Dear %s,\n\nYour transfer of %s %s to account %s was completed.\nNew balance: %s %s.\n",
		c.SenderName, c.Amount, c.Currency, c.ReceiverAccountNumber, c.SenderNewBalance, c.Currency)
	if err := m.send(c.SenderEmail, fmt.Sprintf("%s Transfer Confirmation", m.siteName), senderBody, "", nil); err != nil {
		return err
	}

	receiverBody := fmt.Sprintf(
		"Dear %s,\n\nYou received %s %s from %s into account %s.\nNew balance: %s %s.\n",
		c.ReceiverName, c.Amount, c.Currency, c.SenderName, c.ReceiverAccountNumber, c.ReceiverNewBalance, c.Currency)
	return m.send(c.ReceiverEmail, fmt.Sprintf("%s Transfer Received", m.siteName), receiverBody, "", nil)
}

func (m *Mailer) SendStatement(email, fullName string, pdf []byte, start, end string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour account statement for %s to %s is attached.\n",
		fullName, start, end)
	attachment := fmt.Sprintf("statement_%s_%s.pdf", start, end)
	return m.send(email, fmt.Sprintf("%s Account Statement", m.siteName), body, attachment, pdf)
}

func (m *Mailer) send(to, subject, body, attachmentName string, attachment []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if attachmentName != "" {
		msg.Attach(attachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(attachment)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		slog.Error("failed to send email", "to", to, "subject", subject, "error", err)
		return err
	}
	slog.Info("email sent", "to", to, "subject", subject)
	return nil
}
