package usecase

import (
	"context"
	"time"

	"github.com/allisson/gatekeeper/internal/metrics"
)

// webhookUseCaseWithMetrics decorates WebhookUseCase with metrics instrumentation.
type webhookUseCaseWithMetrics struct {
	next    WebhookUseCase
	metrics metrics.BusinessMetrics
}

// NewWebhookUseCaseWithMetrics wraps a WebhookUseCase with metrics recording.
func NewWebhookUseCaseWithMetrics(useCase WebhookUseCase, m metrics.BusinessMetrics) WebhookUseCase {
	return &webhookUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Process records metrics for webhook processing.
func (w *webhookUseCaseWithMetrics) Process(
	ctx context.Context,
	body []byte,
	signatureHex string,
) error {
	start := time.Now()
	err := w.next.Process(ctx, body, signatureHex)

	status := "success"
	if err != nil {
		status = "error"
	}

	w.metrics.RecordOperation(ctx, "billing", "webhook_process", status)
	w.metrics.RecordDuration(ctx, "billing", "webhook_process", time.Since(start), status)

	return err
}
