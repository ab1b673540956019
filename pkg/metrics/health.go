package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Components reported by the SDK.
const (
	ComponentStore   = "store"
	ComponentBackend = "backend"
	ComponentQueue   = "engagement"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// HealthStatus is the JSON body served on /health and /ready.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth is the last reported state of one component.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

// HealthChecker keeps component states. Only the store is critical: a
// failing backend or queue degrades health but never marks the process
// unhealthy, since tracking failures are retried by the caller.
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	critical   []string
	startTime  time.Time
	version    string
}

// NewHealthChecker creates a checker whose readiness waits for critical.
func NewHealthChecker(critical ...string) *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		critical:   critical,
		startTime:  time.Now(),
	}
}

var healthChecker = NewHealthChecker(ComponentStore)

// SetVersion sets the version string for health responses
func SetVersion(version string) { healthChecker.SetVersion(version) }

// UpdateComponent records the state of a component on the default checker.
func UpdateComponent(name string, healthy bool, message string) {
	healthChecker.Update(name, healthy, message)
}

// GetHealth returns the overall health of the default checker.
func GetHealth() HealthStatus { return healthChecker.Health() }

// GetReadiness returns the readiness of the default checker.
func GetReadiness() HealthStatus { return healthChecker.Readiness() }

func (h *HealthChecker) SetVersion(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version = version
}

func (h *HealthChecker) Update(name string, healthy bool, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

func (h *HealthChecker) isCritical(name string) bool {
	for _, c := range h.critical {
		if c == name {
			return true
		}
	}
	return false
}

func (h *HealthChecker) Health() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := StatusHealthy
	components := make(map[string]string, len(h.components))
	for name, comp := range h.components {
		if comp.Healthy {
			components[name] = StatusHealthy
			continue
		}
		components[name] = StatusUnhealthy + ": " + comp.Message
		if h.isCritical(name) {
			status = StatusUnhealthy
		} else if status == StatusHealthy {
			status = StatusDegraded
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

func (h *HealthChecker) Readiness() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := StatusReady
	message := ""
	components := make(map[string]string, len(h.critical))

	names := append([]string(nil), h.critical...)
	sort.Strings(names)
	for _, name := range names {
		comp, ok := h.components[name]
		switch {
		case !ok:
			components[name] = "not registered"
		case !comp.Healthy:
			components[name] = StatusNotReady + ": " + comp.Message
		default:
			components[name] = StatusReady
			continue
		}
		if status == StatusReady {
			status = StatusNotReady
			message = "waiting for " + name
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

// HealthHandler serves /health. Only an unhealthy status answers 503.
func HealthHandler() http.HandlerFunc { return healthChecker.HealthHandler() }

// ReadyHandler serves /ready.
func ReadyHandler() http.HandlerFunc { return healthChecker.ReadyHandler() }

func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.Health()
		code := http.StatusOK
		if health.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health)
	}
}

func (h *HealthChecker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := h.Readiness()
		code := http.StatusOK
		if readiness.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, readiness)
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
