package notification

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/revcycle/claims/internal/domain/claims"
)

// ClaimNotifier adapts the NotificationManager to the claims.Notifier
// contract. Notifications are fire-and-forget: delivery failures are logged
// and never surfaced to the claim operation that triggered them.
type ClaimNotifier struct {
	manager   *NotificationManager
	recipient string
	logger    zerolog.Logger
}

// NewClaimNotifier builds a notifier that delivers claim lifecycle events to
// the billing team's address.
func NewClaimNotifier(manager *NotificationManager, recipient string, logger zerolog.Logger) *ClaimNotifier {
	return &ClaimNotifier{manager: manager, recipient: recipient, logger: logger}
}

func (n *ClaimNotifier) send(ctx context.Context, templateID string, data map[string]string) {
	if _, err := n.manager.SendFromTemplate(ctx, templateID, data, n.recipient); err != nil {
		n.logger.Warn().Err(err).Str("template", templateID).Msg("claim notification failed")
	}
}

func (n *ClaimNotifier) ClaimSubmitted(ctx context.Context, c *claims.Claim) {
	data := map[string]string{
		"claim_number": c.ClaimNumber,
		"payer":        c.PayerID.String(),
		"amount":       c.TotalAmount.String(),
	}
	if c.SubmissionDate != nil {
		data["date"] = c.SubmissionDate.Format("2006-01-02")
	}
	n.send(ctx, "claim-submitted", data)
}

func (n *ClaimNotifier) SubmissionFailed(ctx context.Context, c *claims.Claim, reason string) {
	n.send(ctx, "claim-submission-failed", map[string]string{
		"claim_number": c.ClaimNumber,
		"reason":       reason,
	})
}

func (n *ClaimNotifier) BatchCompleted(ctx context.Context, operation string, result *claims.BatchResult) {
	n.send(ctx, "claim-batch-completed", map[string]string{
		"operation":     operation,
		"total":         strconv.Itoa(result.TotalProcessed),
		"success_count": strconv.Itoa(result.SuccessCount),
		"error_count":   strconv.Itoa(result.ErrorCount),
	})
}

func (n *ClaimNotifier) AppealResolved(ctx context.Context, c *claims.Claim) {
	n.send(ctx, "claim-appeal-resolved", map[string]string{
		"claim_number": c.ClaimNumber,
		"outcome":      string(c.Status),
	})
}
