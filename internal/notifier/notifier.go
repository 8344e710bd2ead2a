// Package notifier sends the expiring-portfolio alert to a messaging
// webhook. The webhook relays to WhatsApp; this package only speaks JSON
// over HTTP.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cartera-reconciler/internal/classifier"
	"cartera-reconciler/internal/models"
	carterrors "cartera-reconciler/pkg/errors"
	"cartera-reconciler/pkg/logger"
)

// Config holds the webhook endpoint and the destination address.
type Config struct {
	WebhookURL string
	To         string
	Timeout    time.Duration
}

// Notifier posts portfolio alerts to the configured webhook.
type Notifier struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

// New builds a Notifier. A zero Timeout defaults to 10 seconds.
func New(cfg Config, log logger.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// BuildAlertMessage lists the non-void records inside the alert window as
// a single message body. Returns the message and how many records it
// covers; zero means nothing to send.
func BuildAlertMessage(records []*models.PolicyRecord, now time.Time, th classifier.Thresholds) (string, int) {
	var lines []string
	for _, rec := range records {
		if classifier.InAlertWindow(rec, now, th) {
			lines = append(lines, fmt.Sprintf("• Póliza: %s, Emisión: %s", rec.Poliza, rec.FechaEmision))
		}
	}
	if len(lines) == 0 {
		return "", 0
	}
	return "⚠️ *ALERTA DE CARTERA PRÓXIMA A VENCER* ⚠️\n\n" + strings.Join(lines, "\n"), len(lines)
}

type alertPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendAlert builds and posts the alert for the given snapshot. Returns
// the number of records alerted on; zero with a nil error means the
// window was empty and nothing was sent.
func (n *Notifier) SendAlert(ctx context.Context, records []*models.PolicyRecord, now time.Time, th classifier.Thresholds) (int, error) {
	message, count := BuildAlertMessage(records, now, th)
	if count == 0 {
		n.log.Info("No policies in the alert window, nothing sent")
		return 0, nil
	}

	body, err := json.Marshal(alertPayload{To: n.cfg.To, Message: message})
	if err != nil {
		return 0, carterrors.Wrap(err, carterrors.CategoryInternal, carterrors.CodeUnexpectedError,
			"failed to encode alert payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, carterrors.Wrap(err, carterrors.CategoryConfiguration, carterrors.CodeInvalidConfig,
			"invalid webhook URL").WithContext("url", n.cfg.WebhookURL)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, carterrors.Wrap(err, carterrors.CategoryPersistence, carterrors.CodeConnectionFailed,
			"alert webhook unreachable").WithContext("url", n.cfg.WebhookURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, carterrors.New(carterrors.CategoryPersistence, carterrors.CodeWriteRejected,
			fmt.Sprintf("alert webhook returned %d", resp.StatusCode)).
			WithContext("response", string(detail))
	}

	n.log.WithField("policies", count).Info("Alert sent")
	return count, nil
}
