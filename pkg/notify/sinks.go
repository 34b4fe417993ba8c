package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Mailer sends a plain-text email. gmailclient.Client implements it.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// EmailSink delivers notifications by email to recipients with a known address
type EmailSink struct {
	mailer Mailer
}

func NewEmailSink(mailer Mailer) *EmailSink {
	return &EmailSink{mailer: mailer}
}

func (s *EmailSink) Name() string {
	return "email"
}

func (s *EmailSink) Deliver(ctx context.Context, msg Message) error {
	if msg.RecipientEmail == "" {
		return nil
	}
	return s.mailer.SendEmail(ctx, msg.RecipientEmail, msg.Title, msg.Message)
}

// Publisher publishes raw bytes on a subject. *nats.Conn implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink pushes notifications to <prefix>.<recipientID> for live clients
type NATSSink struct {
	publisher Publisher
	prefix    string
}

func NewNATSSink(publisher Publisher, prefix string) *NATSSink {
	return &NATSSink{publisher: publisher, prefix: prefix}
}

func (s *NATSSink) Name() string {
	return "nats"
}

// pushPayload is the JSON body published to live clients
type pushPayload struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      string            `json:"type"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (s *NATSSink) Subject(recipientID string) string {
	return s.prefix + "." + recipientID
}

func (s *NATSSink) Deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(pushPayload{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Title:     msg.Title,
		Message:   msg.Message,
		Type:      string(msg.Type),
		Data:      msg.Data,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	if err := s.publisher.Publish(s.Subject(msg.UserID), payload); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// ConnectNATS opens a reconnecting NATS connection that logs its state changes
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("bloodmatch"),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// LogSink writes every delivery to the logger. Used offline and in dry runs.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Deliver(ctx context.Context, msg Message) error {
	s.logger.Info("Notification",
		zap.String("recipient_id", msg.UserID),
		zap.String("title", msg.Title),
		zap.String("message", msg.Message),
		zap.String("type", string(msg.Type)))
	return nil
}
