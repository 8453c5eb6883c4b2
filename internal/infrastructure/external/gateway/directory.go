package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

const employeeColumns = "user_id,first_name,last_name,store_number,email,title"

// Compile-time check that Client implements the directory port
var _ port.DirectoryGateway = (*Client)(nil)

// ListActiveEmployees queries employees with active_flag = true, ordered by last name
func (c *Client) ListActiveEmployees(ctx context.Context, accessToken string, filter port.EmployeeFilter) ([]entity.Employee, error) {
	q := url.Values{}
	q.Set("select", employeeColumns)
	q.Set("active_flag", "eq.true")
	if filter.TitleContains != "" {
		q.Set("title", "ilike.*"+filter.TitleContains+"*")
	}
	q.Set("order", "last_name.asc")

	var employees []entity.Employee
	if _, _, err := c.do(ctx, http.MethodGet, c.cfg.RESTURL+"/employees?"+q.Encode(), accessToken, nil, &employees); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	c.logger.Debug("Employees listed",
		zap.String("title_contains", filter.TitleContains),
		zap.Int("count", len(employees)))
	return employees, nil
}

type roleParams struct {
	Role      string `json:"p_role"`
	StartDate string `json:"p_start_date"`
	EndDate   string `json:"p_end_date"`
}

// EmployeesByRole calls the get_employees_by_role procedure
func (c *Client) EmployeesByRole(ctx context.Context, accessToken, roleCode, startDate, endDate string) ([]entity.Employee, error) {
	params := roleParams{Role: roleCode, StartDate: startDate, EndDate: endDate}

	var employees []entity.Employee
	if _, _, err := c.do(ctx, http.MethodPost, c.cfg.RESTURL+"/rpc/get_employees_by_role", accessToken, params, &employees); err != nil {
		return nil, fmt.Errorf("get employees by role %s: %w", roleCode, err)
	}
	return employees, nil
}

// RecentReportLogs returns the newest csa_report_card_logs rows
func (c *Client) RecentReportLogs(ctx context.Context, accessToken string, limit int) ([]entity.ReportLogEntry, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	var logs []entity.ReportLogEntry
	if _, _, err := c.do(ctx, http.MethodGet, c.cfg.RESTURL+"/csa_report_card_logs?"+q.Encode(), accessToken, nil, &logs); err != nil {
		return nil, fmt.Errorf("list report logs: %w", err)
	}
	return logs, nil
}
