package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/report-card-viewer/internal/application/dashboard"
	"github.com/garyjia/report-card-viewer/internal/application/port"
	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/period"
	"github.com/garyjia/report-card-viewer/internal/domain/roster"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	sessions *dashboard.Registry
	stats    service.StatsService
	runs     port.BatchRunRepository
	location *time.Location
	now      func() time.Time
	version  string
	health   HealthFunc
	logger   Logger
}

// HealthFunc reports overall health and per-component details
type HealthFunc func() (healthy bool, components interface{})

// NewHandlers creates a new Handlers instance. runs may be nil when history
// is disabled.
func NewHandlers(
	sessions *dashboard.Registry,
	stats service.StatsService,
	runs port.BatchRunRepository,
	location *time.Location,
	version string,
	logger Logger,
) *Handlers {
	if location == nil {
		location = time.Local
	}
	return &Handlers{
		sessions: sessions,
		stats:    stats,
		runs:     runs,
		location: location,
		now:      time.Now,
		version:  version,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// SessionResponse is a session and its current state
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	State     dashboard.State `json:"state"`
}

// EmployeesResponse is the visible directory of a session
type EmployeesResponse struct {
	ReportType entity.ReportType   `json:"report_type"`
	Period     entity.ReportPeriod `json:"period"`
	Loading    bool                `json:"loading"`
	Error      string              `json:"error,omitempty"`
	Total      int                 `json:"total"`
	Employees  []entity.Employee   `json:"employees"`
}

// FailureResponse is one employee the batch could not generate
type FailureResponse struct {
	Index    int    `json:"index"`
	UserID   int64  `json:"user_id"`
	Employee string `json:"employee"`
	Reason   string `json:"reason"`
}

// BatchResponse is the session's latest batch run
type BatchResponse struct {
	dashboard.BatchView
	Position string            `json:"position,omitempty"`
	Current  *entity.BatchItem `json:"current,omitempty"`
	Stats    entity.BatchStats `json:"stats"`
	Failures []FailureResponse `json:"failures,omitempty"`
}

// CreateSessionRequest opens a session
type CreateSessionRequest struct {
	ReportType string `json:"report_type"`
}

// PeriodRequest picks a preset by label or a custom range
type PeriodRequest struct {
	Label     string `json:"label"`
	Custom    bool   `json:"custom"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SelectionRequest is a partial selection update; absent fields are unchanged
type SelectionRequest struct {
	ReportType     *string        `json:"report_type"`
	Period         *PeriodRequest `json:"period"`
	Stores         *[]int         `json:"stores"`
	Tier           *string        `json:"tier"`
	Sort           *string        `json:"sort"`
	EmployeeID     *int64         `json:"employee_id"`
	MultiSelection *[]int64       `json:"multi_selection"`
}

// SendRequest carries the email flag of report and batch generation
type SendRequest struct {
	SendEmail bool `json:"send_email"`
}

// CursorRequest moves the batch cursor by delta, or to index when set
type CursorRequest struct {
	Delta int  `json:"delta"`
	Index *int `json:"index"`
}

// ListRequest is a paginated query
type ListRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// SetHealthCheck adds component checks to GET /health
func (h *Handlers) SetHealthCheck(fn HealthFunc) {
	h.health = fn
}

// HealthCheck handles GET /health. It answers 503 when a component check fails.
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}
	code := http.StatusOK
	if h.health != nil {
		healthy, components := h.health()
		resp.Components = components
		if !healthy {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, Response{Success: code == http.StatusOK, Data: resp})
}

// ListPeriods handles GET /api/periods
func (h *Handlers) ListPeriods(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: period.Presets(h.now().In(h.location))})
}

// GetDashboard handles GET /api/dashboard
func (h *Handlers) GetDashboard(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ListBatchRuns handles GET /api/batch-runs
func (h *Handlers) ListBatchRuns(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters")
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if h.runs == nil {
		c.JSON(http.StatusOK, Response{Success: true, Data: []*entity.BatchRunRecord{}})
		return
	}
	records, err := h.runs.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.logger.Error("Failed to list batch runs", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list batch runs"})
		return
	}
	if records == nil {
		records = []*entity.BatchRunRecord{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// CreateSession handles POST /api/sessions and loads the initial directory.
// A failed load still creates the session; the error is part of its state.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body")
			return
		}
	}
	if req.ReportType != "" && !entity.ReportType(req.ReportType).IsValid() {
		h.badRequest(c, "unknown report type "+strconv.Quote(req.ReportType))
		return
	}

	ctrl := h.sessions.Create(entity.ReportType(req.ReportType))
	if err := ctrl.Reload(c.Request.Context()); err != nil {
		h.logger.Error("Initial directory load failed", "session_id", ctrl.ID(), "error", err)
	}
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    SessionResponse{SessionID: ctrl.ID(), State: ctrl.State()},
	})
}

// CloseSession handles DELETE /api/sessions/:id
func (h *Handlers) CloseSession(c *gin.Context) {
	if !h.sessions.Close(c.Param("id")) {
		h.notFound(c)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// UpdateSelection handles PUT /api/sessions/:id/selection
func (h *Handlers) UpdateSelection(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	sel, err := h.toSelection(req)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	state, err := ctrl.Apply(c.Request.Context(), sel)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: SessionResponse{SessionID: ctrl.ID(), State: state}})
}

// ListEmployees handles GET /api/sessions/:id/employees
func (h *Handlers) ListEmployees(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	s := ctrl.State()
	visible := dashboard.Visible(s)
	if visible == nil {
		visible = []entity.Employee{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: EmployeesResponse{
		ReportType: s.ReportType,
		Period:     s.Period,
		Loading:    s.DirectoryLoading,
		Error:      s.DirectoryErr,
		Total:      len(s.Directory),
		Employees:  visible,
	}})
}

// GenerateReport handles POST /api/sessions/:id/report
func (h *Handlers) GenerateReport(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req SendRequest
	if !h.bindOptional(c, &req) {
		return
	}

	result, err := ctrl.GenerateReport(c.Request.Context(), req.SendEmail)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"report": result,
		"notice": ctrl.State().Notice,
	}})
}

// GetReportHTML handles GET /api/sessions/:id/report/html
func (h *Handlers) GetReportHTML(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	report := ctrl.State().Report
	if report == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no report generated"})
		return
	}
	// Card markup comes from the report service; render it without script
	// access to this origin.
	c.Header("Content-Security-Policy", "sandbox")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(report.HTML))
}

// StartBatch handles POST /api/sessions/:id/batch. The run continues after
// the response; poll GET .../batch for progress.
func (h *Handlers) StartBatch(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req SendRequest
	if !h.bindOptional(c, &req) {
		return
	}

	handle, err := ctrl.StartBatch(c.Request.Context(), req.SendEmail)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, Response{Success: true, Data: gin.H{"run_id": handle.RunID}})
}

// GetBatch handles GET /api/sessions/:id/batch
func (h *Handlers) GetBatch(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: batchResponse(ctrl.State().Batch)})
}

// CancelBatch handles POST /api/sessions/:id/batch/cancel
func (h *Handlers) CancelBatch(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if !ctrl.CancelBatch() {
		c.JSON(http.StatusConflict, Response{Success: false, Error: "no batch is running"})
		return
	}
	c.JSON(http.StatusAccepted, Response{Success: true})
}

// MoveCursor handles POST /api/sessions/:id/batch/cursor
func (h *Handlers) MoveCursor(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req CursorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	var view dashboard.BatchView
	if req.Index != nil {
		view, _ = ctrl.Jump(*req.Index)
	} else {
		view, _ = ctrl.Navigate(req.Delta)
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: batchResponse(view)})
}

// ExportBatch handles GET /api/sessions/:id/batch/export?format=csv|xlsx|pdf
func (h *Handlers) ExportBatch(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		h.fail(c, err)
		return
	}

	file, err := ctrl.Export(format)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func (h *Handlers) session(c *gin.Context) (*dashboard.Controller, bool) {
	ctrl, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		h.notFound(c)
	}
	return ctrl, ok
}

// bindOptional decodes a JSON body when one is present
func (h *Handlers) bindOptional(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		h.badRequest(c, "invalid request body")
		return false
	}
	return true
}

func (h *Handlers) toSelection(req SelectionRequest) (dashboard.Selection, error) {
	var sel dashboard.Selection

	if req.ReportType != nil {
		rt := entity.ReportType(*req.ReportType)
		sel.ReportType = &rt
	}
	if req.Period != nil {
		p, err := h.resolvePeriod(*req.Period)
		if err != nil {
			return sel, err
		}
		sel.Period = &p
	}
	if req.Stores != nil {
		stores := roster.SpecificStores(*req.Stores...)
		sel.Stores = &stores
	}
	if req.Tier != nil {
		tier, err := roster.ParseTier(*req.Tier)
		if err != nil {
			return sel, err
		}
		sel.Tier = &tier
	}
	if req.Sort != nil {
		key, err := roster.ParseSortKey(*req.Sort)
		if err != nil {
			return sel, err
		}
		sel.Sort = &key
	}
	sel.EmployeeID = req.EmployeeID
	if req.MultiSelection != nil {
		sel.MultiSelection = *req.MultiSelection
		sel.ClearMulti = len(*req.MultiSelection) == 0
	}
	return sel, nil
}

func (h *Handlers) resolvePeriod(req PeriodRequest) (entity.ReportPeriod, error) {
	if req.Custom || req.StartDate != "" || req.EndDate != "" {
		return period.Custom(req.StartDate, req.EndDate)
	}
	p, ok := period.Find(period.Presets(h.now().In(h.location)), req.Label)
	if !ok {
		return entity.ReportPeriod{}, errors.New("unknown period " + strconv.Quote(req.Label))
	}
	return p, nil
}

func batchResponse(view dashboard.BatchView) BatchResponse {
	resp := BatchResponse{BatchView: view, Stats: view.Run.Stats()}
	if item, ok := view.Current(); ok {
		resp.Current = &item
		resp.Position = strconv.Itoa(view.Cursor+1) + " of " + strconv.Itoa(view.Run.Len())
	}
	for _, o := range view.Run.Failures() {
		resp.Failures = append(resp.Failures, FailureResponse{
			Index:    o.Index,
			UserID:   o.Employee.UserID,
			Employee: o.Employee.FullName(),
			Reason:   o.Reason(),
		})
	}
	return resp
}

// fail maps an application error to a status code
func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, period.ErrMissingDates):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNoCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrDirectoryLoad),
		errors.Is(err, service.ErrReportFailed),
		errors.Is(err, service.ErrNoReportsGenerated):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

func (h *Handlers) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{Success: false, Error: "session not found"})
}
