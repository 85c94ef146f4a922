// README: SMTP receipt mails sent when an order is received.
package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"epsilon/internal/modules/user"
)

// Receipt carries the fields merged into the receipt templates. The caller
// flattens order and bid data into it so this package stays a leaf.
type Receipt struct {
	Receiver      *user.User
	Deliverer     *user.User
	Description   string
	PickupName    string
	DeliveryName  string
	DeliveryPrice float64
	DeliveredAt   time.Time
}

// Dialer is the slice of gomail the mailer uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	dialer            Dialer
	sender            string
	operatorRecipient string
	log               *zap.Logger
}

func NewMailer(dialer Dialer, sender, operatorRecipient string, log *zap.Logger) *Mailer {
	return &Mailer{dialer: dialer, sender: sender, operatorRecipient: operatorRecipient, log: log}
}

// NewSMTPDialer builds the production dialer.
func NewSMTPDialer(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

func (m *Mailer) SendReceiptToReceiver(r Receipt) error {
	body, err := render(receiptForReceiver, r)
	if err != nil {
		return err
	}
	return m.send(r.Receiver.Email, "Kvittering for din levering", body)
}

func (m *Mailer) SendReceiptToDeliverer(r Receipt) error {
	body, err := render(receiptForDeliverer, r)
	if err != nil {
		return err
	}
	return m.send(r.Deliverer.Email, "Kvittering for din levering", body)
}

func (m *Mailer) SendReceiptToOperator(r Receipt) error {
	body, err := render(receiptForOperator, r)
	if err != nil {
		return err
	}
	return m.send(m.operatorRecipient, "Gennemført levering", body)
}

func (m *Mailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.Warn("mail send failed", zap.String("to", to), zap.Error(err))
		return err
	}
	return nil
}

func render(t *template.Template, r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("rendering %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// FirstName returns everything before the first space of a full name.
func FirstName(name string) string {
	if i := strings.IndexByte(name, ' '); i != -1 {
		return name[:i]
	}
	return name
}

// FormatTime renders a timestamp as "d. 5/3-2017 kl. 14:30".
func FormatTime(t time.Time) string {
	return fmt.Sprintf("d. %d/%d-%d kl. %02d:%02d",
		t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute())
}

// FormatMoney renders an amount with dot-separated thousands and a decimal
// comma, e.g. 1234.5 -> "1.234,50".
func FormatMoney(amount float64) string {
	whole := int64(amount)
	cents := int64((amount-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}
	return fmt.Sprintf("%s,%02d", grouped.String(), cents)
}
