package gateway

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

// Compile-time check that Client implements the report port
var _ port.ReportGateway = (*Client)(nil)

type reportResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	entity.ReportResult
}

// GenerateReport posts to {functions}/{endpoint}
func (c *Client) GenerateReport(ctx context.Context, accessToken, endpoint string, req port.ReportRequest) (*entity.ReportResult, error) {
	var resp reportResponse
	status, _, err := c.do(ctx, http.MethodPost, c.cfg.FunctionsURL+"/"+endpoint, accessToken, req, &resp)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		c.logger.Warn("Report endpoint reported failure",
			zap.String("endpoint", endpoint),
			zap.Int64("user_id", req.UserID),
			zap.String("error", resp.Error))
		return nil, &APIError{StatusCode: status, Message: resp.Error, Endpoint: endpoint}
	}

	result := resp.ReportResult
	return &result, nil
}
