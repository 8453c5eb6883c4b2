package dashboard

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/report-card-viewer/internal/application/service"
	"github.com/garyjia/report-card-viewer/internal/domain/entity"
	"github.com/garyjia/report-card-viewer/internal/domain/period"
)

// Registry holds the live dashboard sessions
type Registry struct {
	services Services
	logger   service.Logger
	location *time.Location
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewRegistry creates a registry whose sessions start on the current preview
// period in loc
func NewRegistry(services Services, loc *time.Location, logger service.Logger) *Registry {
	if loc == nil {
		loc = time.Local
	}
	return &Registry{
		services: services,
		logger:   logger,
		location: loc,
		now:      time.Now,
		sessions: make(map[string]*Controller),
	}
}

// Create opens a session with the given report type
func (r *Registry) Create(reportType entity.ReportType) *Controller {
	if !reportType.IsValid() {
		reportType = entity.ReportTypeCSA
	}
	initial := NewState(reportType, period.CurrentPreview(r.now().In(r.location)))
	c := NewController(uuid.NewString(), initial, r.services, r.logger)

	r.mu.Lock()
	r.sessions[c.ID()] = c
	r.mu.Unlock()

	r.logger.Info("Session created", "session_id", c.ID(), "report_type", reportType)
	return c
}

// Get returns a session by id
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	return c, ok
}

// Close ends a session and cancels its batch
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.Close()
	r.logger.Info("Session closed", "session_id", id)
	return true
}

// CloseAll ends every session
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}

// IDs returns the open session ids, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
