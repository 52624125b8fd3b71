package settlement

import (
	"context"
	"fmt"
	"net/http"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/dto"
	"github.com/GlebRadaev/marketledger/pkg/clients"
)

type WebhookNotifier struct {
	url    string
	client clients.HTTPClientI
}

// NewNotifier posts discrepancies to url. An empty url disables alerts.
func NewNotifier(url string, client clients.HTTPClientI) Notifier {
	if url == "" {
		return NopNotifier{}
	}
	return &WebhookNotifier{url: url, client: client}
}

func (n *WebhookNotifier) NotifyDiscrepancy(ctx context.Context, s *domain.Settlement) error {
	statusCode, respBody, err := n.client.PostJSON(ctx, n.url, dto.FromSettlement(s))
	if err != nil {
		return fmt.Errorf("discrepancy webhook for merchant %d: %w", s.MerchantID, err)
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("discrepancy webhook for merchant %d answered %d: %s", s.MerchantID, statusCode, respBody)
	}
	return nil
}

type NopNotifier struct{}

func (NopNotifier) NotifyDiscrepancy(context.Context, *domain.Settlement) error {
	return nil
}
