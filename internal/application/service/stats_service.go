package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
)

const (
	recentReportLimit = 5
	recentBatchLimit  = 5
)

// Title keywords used to count the active workforce; an employee may match more than one.
var (
	csaTitleKeywords     = []string{"csa", "advisor"}
	greeterTitleKeywords = []string{"greet", "technician"}
	managerTitleKeywords = []string{"manager"}
)

// StatsService summarises the workforce and recent report activity
type StatsService interface {
	Stats(ctx context.Context) (*entity.DashboardStats, error)
}

type statsServiceImpl struct {
	gateway port.DirectoryGateway
	runs    port.BatchRunRepository
	tokens  oauth2.TokenSource
	logger  Logger
}

// NewStatsService creates a new StatsService. runs may be nil.
func NewStatsService(gateway port.DirectoryGateway, runs port.BatchRunRepository, tokens oauth2.TokenSource, logger Logger) StatsService {
	return &statsServiceImpl{
		gateway: gateway,
		runs:    runs,
		tokens:  tokens,
		logger:  logger,
	}
}

// Stats counts active employees by title keyword. Missing report logs and
// batch history degrade to empty lists.
func (s *statsServiceImpl) Stats(ctx context.Context) (*entity.DashboardStats, error) {
	token, err := bearerToken(ctx, s.tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryLoad, err)
	}

	employees, err := s.gateway.ListActiveEmployees(ctx, token, port.EmployeeFilter{})
	if err != nil {
		s.logger.Error("Failed to load employees for stats", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDirectoryLoad, err)
	}

	stats := &entity.DashboardStats{
		RecentReports: []entity.ReportLogEntry{},
		RecentBatches: []*entity.BatchRunRecord{},
	}
	for _, e := range employees {
		title := strings.ToLower(e.Title)
		if titleMatches(title, csaTitleKeywords) {
			stats.CSACount++
		}
		if titleMatches(title, greeterTitleKeywords) {
			stats.GreeterCount++
		}
		if titleMatches(title, managerTitleKeywords) {
			stats.ManagerCount++
		}
	}

	logs, err := s.gateway.RecentReportLogs(ctx, token, recentReportLimit)
	if err != nil {
		s.logger.Info("Report logs unavailable", "error", err)
	} else if logs != nil {
		stats.RecentReports = logs
	}

	if s.runs != nil {
		records, err := s.runs.List(ctx, recentBatchLimit, 0)
		if err != nil {
			s.logger.Error("Failed to list batch runs", "error", err)
		} else if records != nil {
			stats.RecentBatches = records
		}
	}

	return stats, nil
}

func titleMatches(title string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}
