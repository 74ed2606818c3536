package email

import (
	"context"

	"go.uber.org/zap"

	"inspectbot/internal/config"
	"inspectbot/internal/models"
)

// Notifier sends operator alerts.
type Notifier struct {
	service   *Service
	templates *Templates
	cfg       *config.Config
	logger    *zap.Logger
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg *config.Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		service:   NewService(cfg, logger),
		templates: NewTemplates(cfg),
		cfg:       cfg,
		logger:    logger.Named("notify"),
	}
}

// Enabled reports whether alerts will actually be delivered.
func (n *Notifier) Enabled() bool {
	return n.service.IsEnabled() && len(n.cfg.AlertEmails) > 0
}

// NotifyCrawlFailed mails the alert recipients about a pass that wrote
// nothing. It is a no-op when email or recipients are not configured.
func (n *Notifier) NotifyCrawlFailed(ctx context.Context, summary *models.CrawlSummary) error {
	if !n.Enabled() || summary == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, htmlBody, textBody := n.templates.CrawlFailed(summary)
	if err := n.service.Send(n.cfg.AlertEmails, subject, htmlBody, textBody); err != nil {
		return err
	}
	n.logger.Info("crawl failure alert sent",
		zap.String("run_id", summary.RunID), zap.Int("recipients", len(n.cfg.AlertEmails)))
	return nil
}
