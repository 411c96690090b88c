package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/yndnr/notekeep-go/internal/core/domain"
	"github.com/yndnr/notekeep-go/internal/telemetry/logger"
	"github.com/yndnr/notekeep-go/internal/telemetry/metric"
)

// refresh exchanges the expired credential for a new one. It bypasses the
// rate limiter and the coordinator.
func (g *Gateway) refresh(ctx context.Context, expired domain.Credential) (domain.Credential, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.RefreshURL, nil)
	if err != nil {
		g.metrics.RecordRefresh(metric.RefreshFailure)
		return "", domain.ErrRefreshFailed.WithCause(err)
	}
	reqID := logger.RequestIDFromContext(ctx)
	g.decorate(httpReq, reqID, expired)

	resp, err := g.roundTrip(ctx, httpReq, reqID)
	if err != nil {
		g.metrics.RecordRefresh(metric.RefreshFailure)
		return "", domain.ErrRefreshFailed.WithCause(err)
	}
	if !isSuccess(resp.StatusCode) {
		g.metrics.RecordRefresh(metric.RefreshFailure)
		return "", domain.ErrRefreshFailed.WithCause(newAPIError(resp.StatusCode, resp.Body, reqID))
	}

	cred, err := parseRefresh(resp.Body)
	if err != nil {
		g.metrics.RecordRefresh(metric.RefreshNoToken)
		return "", err
	}
	g.metrics.RecordRefresh(metric.RefreshSuccess)
	return cred, nil
}

// parseRefresh accepts {"token": "..."} and {"data": {"token": "..."}}.
func parseRefresh(body []byte) (domain.Credential, error) {
	var payload struct {
		Token string `json:"token"`
		Data  *struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", domain.ErrRefreshNoCredential.WithCause(fmt.Errorf("decode refresh response: %w", err))
	}

	token := strings.TrimSpace(payload.Token)
	if token == "" && payload.Data != nil {
		token = strings.TrimSpace(payload.Data.Token)
	}
	if token == "" {
		return "", domain.ErrRefreshNoCredential
	}
	return domain.Credential(token), nil
}
