package notify

import (
	"fmt"

	"github.com/Govind-619/storefront/config"
	"github.com/Govind-619/storefront/models"
	"github.com/Govind-619/storefront/utils"
	"gopkg.in/gomail.v2"
)

// Sink delivers one message. Delivery is best effort.
type Sink interface {
	Notify(recipient, subject, body string) error
}

// EmailSink sends plain-text mail over SMTP.
type EmailSink struct {
	from   string
	dialer *gomail.Dialer
}

// NewEmailSink creates an SMTP sink from cfg.
func NewEmailSink(cfg config.SMTPConfig) *EmailSink {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &EmailSink{
		from:   from,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *EmailSink) Notify(recipient, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// LogSink writes messages to the info log instead of sending them.
type LogSink struct{}

func (LogSink) Notify(recipient, subject, body string) error {
	utils.LogInfo("Notification to %s: %s\n%s", recipient, subject, body)
	return nil
}

// Dispatcher turns committed status changes into customer and admin
// messages. Dispatch is only called after the transaction that produced the
// change has committed.
type Dispatcher struct {
	sink       Sink
	adminEmail string
	currency   string

	// Async sends from a goroutine so request latency does not include SMTP.
	Async bool
}

// NewDispatcher creates a dispatcher. An empty adminEmail disables the admin
// notice.
func NewDispatcher(sink Sink, adminEmail, currency string) *Dispatcher {
	return &Dispatcher{sink: sink, adminEmail: adminEmail, currency: currency}
}

// Dispatch notifies about change. Failures are logged and never returned.
func (d *Dispatcher) Dispatch(change models.StatusChange, user models.User) {
	if d == nil || d.sink == nil {
		return
	}
	if d.Async {
		go d.send(change, user)
		return
	}
	d.send(change, user)
}

func (d *Dispatcher) send(change models.StatusChange, user models.User) {
	if user.Email != "" {
		if subject, body, ok := CustomerMessage(change, user.Username, d.currency); ok {
			d.deliver(user.Email, subject, body, change)
		}
	}
	if d.adminEmail != "" && !change.Created() {
		subject, body := AdminMessage(change, user.Username, d.currency)
		d.deliver(d.adminEmail, subject, body, change)
	}
}

func (d *Dispatcher) deliver(recipient, subject, body string, change models.StatusChange) {
	if err := d.sink.Notify(recipient, subject, body); err != nil {
		utils.LogError("Failed to notify %s about order %d (%s): %v", recipient, change.OrderID, change.To, err)
	}
}
