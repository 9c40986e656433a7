// Package notify turns a domain event into its three-part effect: a durable
// notification record, a live push to the recipient if connected, and an
// outbound email.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/mail"
	"taskboard/internal/ws"
)

// Event is one notification-worthy domain occurrence. The caller (a CRUD
// collaborator) decides whether an event merits notifying at all; the
// notifier only owns the fan-out.
type Event struct {
	Kind        domain.NotificationType
	RecipientID int64
	ActorID     int64
	Message     string
	Link        string

	// Context for rendering the email.
	TaskID      int64
	TaskTitle   string
	ProjectName string
}

// Store persists notification records.
type Store interface {
	Create(ctx context.Context, notification *domain.Notification) (int64, error)
}

// Presence resolves a user to its live connection, if any.
type Presence interface {
	Lookup(userID int64) (connID string, ok bool)
}

// Transport emits live events to a connection or a room. Emits are
// best-effort; a closed connection or empty room is a no-op.
type Transport interface {
	EmitToConn(connID, event string, data any)
	EmitToRoom(roomID, event string, data any)
}

// Directory resolves a user id to its email address and display name.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Config struct {
	Store     Store
	Presence  Presence
	Transport Transport
	Mail      mail.Sender
	Directory Directory
	Logger    *logrus.Logger

	// BaseURL prefixes deep links in outbound email.
	BaseURL string

	// MailTimeout bounds a single mail dispatch. Exceeding it is a
	// degraded outcome, logged only.
	MailTimeout time.Duration
}

// Notifier coordinates the write-then-notify sequence. Persistence failure is
// fatal to the call; live-push and email failures are degraded outcomes
// observed only through logs.
type Notifier struct {
	cfg Config

	mailWG sync.WaitGroup
}

func NewNotifier(cfg Config) *Notifier {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = 10 * time.Second
	}
	return &Notifier{cfg: cfg}
}

// Notify runs the fan-out for one event.
//
// A user is never notified of their own action: recipient == actor suppresses
// the record, the push, and the email. The record write gates everything
// else — a push or email must never fire for an event that was not durably
// recorded.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	if ev.RecipientID == ev.ActorID {
		return nil
	}

	notification := &domain.Notification{
		UserID:  ev.RecipientID,
		Type:    ev.Kind,
		Message: ev.Message,
		Link:    ev.Link,
	}
	if _, err := n.cfg.Store.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	if connID, ok := n.cfg.Presence.Lookup(ev.RecipientID); ok {
		n.cfg.Transport.EmitToConn(connID, ws.EventNotify, map[string]any{
			"id":      notification.ID,
			"type":    notification.Type,
			"message": notification.Message,
			"link":    notification.Link,
		})
	}

	n.dispatchMail(ev)
	return nil
}

// BroadcastComment tells every current viewer of the task to refresh its
// comment list. Independent of Notify and never suppressed by the
// self-notification guard: the actor's own open view should refresh too.
func (n *Notifier) BroadcastComment(taskID int64) {
	n.cfg.Transport.EmitToRoom(ws.TaskRoom(taskID), ws.EventNewComment, map[string]int64{"taskId": taskID})
}

// Wait blocks until in-flight mail dispatches finish. Called on shutdown.
func (n *Notifier) Wait() {
	n.mailWG.Wait()
}

// dispatchMail is fire-and-forget: the caller's response never waits on the
// relay, and failures are logged only. The dispatch runs on a detached
// context so it survives the originating request, bounded by MailTimeout.
func (n *Notifier) dispatchMail(ev Event) {
	n.mailWG.Add(1)
	go func() {
		defer n.mailWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.cfg.MailTimeout)
		defer cancel()

		recipient, err := n.cfg.Directory.GetByID(ctx, ev.RecipientID)
		if err != nil {
			n.cfg.Logger.WithError(err).WithField("user", ev.RecipientID).Warn("mail skipped, recipient lookup failed")
			return
		}
		if recipient.Email == "" {
			return
		}

		msg := n.renderMail(ev, recipient)
		if err := n.cfg.Mail.Send(ctx, msg); err != nil {
			n.cfg.Logger.WithError(err).WithFields(logrus.Fields{
				"user": ev.RecipientID,
				"kind": ev.Kind,
			}).Warn("mail dispatch failed")
		}
	}()
}

func (n *Notifier) renderMail(ev Event, recipient *domain.User) mail.Message {
	taskURL := fmt.Sprintf("%s/tasks/%d", n.cfg.BaseURL, ev.TaskID)

	var subject, body string
	switch ev.Kind {
	case domain.NotificationAssignment:
		subject = "You have been assigned a new task"
		body = fmt.Sprintf(
			"<p>Hello %s,</p><p>You have been assigned a new task: <b>%s</b> in project <b>%s</b>.</p><p><a href=%q>View Task</a></p>",
			recipient.Username, ev.TaskTitle, ev.ProjectName, taskURL,
		)
	case domain.NotificationComment:
		subject = "New comment on your assigned task"
		body = fmt.Sprintf(
			"<p>Hello %s,</p><p>You have a new comment on the task: <b>%s</b>.</p><p><a href=%q>View Task</a></p>",
			recipient.Username, ev.TaskTitle, taskURL,
		)
	default:
		subject = "You have a new notification"
		body = fmt.Sprintf("<p>Hello %s,</p><p>%s</p>", recipient.Username, ev.Message)
	}

	return mail.Message{To: recipient.Email, Subject: subject, HTMLBody: body}
}
