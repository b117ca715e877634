package notification

import (
	"context"

	"innsync_backend/internal/email"
	"innsync_backend/platform/logger"

	"github.com/google/uuid"
)

// Service persists notifications and escalates error-category ones to
// the operator alert mailbox when email is configured.
type Service struct {
	repo    *Repository
	sender  email.Sender
	alertTo string
	log     *logger.Logger
}

// NewService creates the notification service. sender may be nil when
// email delivery is disabled.
func NewService(repo *Repository, sender email.Sender, alertTo string, log *logger.Logger) *Service {
	return &Service{repo: repo, sender: sender, alertTo: alertTo, log: log}
}

// Send persists one notification. Best-effort from the caller's point
// of view: failures are logged, never returned to the event bus.
func (s *Service) Send(ctx context.Context, p CreateParams) {
	n, err := s.repo.Create(ctx, p)
	if err != nil {
		s.log.Error("failed to persist notification", "error", err, "title", p.Title)
		return
	}

	if n.Category == CategoryError && s.sender != nil && s.alertTo != "" {
		data := email.AlertData{Heading: n.Title, Lines: []string{n.Content}}
		if err := s.sender.SendAlert(ctx, s.alertTo, n.Title, data); err != nil {
			s.log.Error("failed to send alert email", "error", err, "title", n.Title)
		}
	}
}

func (s *Service) List(ctx context.Context, propertyID *uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.repo.List(ctx, propertyID, pageSize, (page-1)*pageSize)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, propertyID *uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, propertyID)
}
