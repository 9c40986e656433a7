package mail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Message is one outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers email to a recipient address.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes outbound mail to the log instead of sending it. Used when
// no SMTP host is configured, so development setups can see what would have
// been delivered.
type LogSender struct {
	Logger *logrus.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail (not sent, smtp unconfigured)")
	return nil
}
