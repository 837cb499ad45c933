// Package notify delivers change digests to subscribers. Delivery is
// fire-and-forget: a digest that cannot be delivered is logged and dropped,
// never propagated back into the fetch pipeline.
package notify

import (
	"context"
	"net/http"

	"github.com/mkuhn/stockscores/backend/pkg/httputil"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// Service fans digests out to the configured webhook and to connected
// websocket dashboards.
type Service struct {
	webhookURL string
	httpClient *httputil.Client
	hub        *Hub
	logger     *logger.Logger
}

// webhookPayload is the JSON body posted to the messaging webhook
type webhookPayload struct {
	Text       string   `json:"text"`
	Recipients []string `json:"recipients"`
}

// NewService creates a notification service. hub may be nil when no
// dashboard broadcasting is wanted (CLI one-shot jobs).
func NewService(webhookURL string, httpClient *httputil.Client, hub *Hub, log *logger.Logger) *Service {
	return &Service{
		webhookURL: webhookURL,
		httpClient: httpClient,
		hub:        hub,
		logger:     log.WithField("module", "notify"),
	}
}

// Send delivers the digest to the given recipients
func (s *Service) Send(ctx context.Context, digest string, recipients []string) {
	if digest == "" || len(recipients) == 0 {
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(digest)
	}

	if s.webhookURL == "" {
		s.logger.WithField("recipients", len(recipients)).Debug("No webhook configured, digest dropped")
		return
	}

	resp, err := s.httpClient.PostJSON(ctx, s.webhookURL, webhookPayload{
		Text:       digest,
		Recipients: recipients,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to deliver digest")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		s.logger.WithField("status_code", resp.StatusCode).Error("Digest delivery rejected")
		return
	}

	s.logger.WithField("recipients", len(recipients)).Debug("Digest delivered")
}
