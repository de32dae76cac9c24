package audit

import (
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Outcome of an audited action.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is a single audited admin action.
type Entry struct {
	Action       string
	Actor        string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Status       string
	Details      map[string]string
}

// Logger writes audit entries as structured log events tagged
// component=audit, so they can be filtered out of the request log.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

// Log writes entry. Failures are logged at warn, everything else at info.
func (l *Logger) Log(entry Entry) {
	evt := l.logger.Info()
	if entry.Status == StatusFailure {
		evt = l.logger.Warn()
	}
	evt = evt.
		Str("action", entry.Action).
		Str("actor", entry.Actor).
		Str("ip_address", entry.IPAddress).
		Str("status", entry.Status)
	if entry.ResourceType != "" {
		evt = evt.Str("resource_type", entry.ResourceType)
	}
	if entry.ResourceID != "" {
		evt = evt.Str("resource_id", entry.ResourceID)
	}
	if len(entry.Details) > 0 {
		keys := make([]string, 0, len(entry.Details))
		for k := range entry.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		details := zerolog.Dict()
		for _, k := range keys {
			details = details.Str(k, entry.Details[k])
		}
		evt = evt.Dict("details", details)
	}
	evt.Msg("audit")
}

// LogFromRequest records an action taken by actor while serving r.
func (l *Logger) LogFromRequest(r *http.Request, actor, action, resourceType, resourceID, status string, details map[string]string) {
	l.Log(Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ClientIP(r),
		Status:       status,
		Details:      details,
	})
}

// ClientIP returns the originating client address: the first hop of
// X-Forwarded-For, then X-Real-IP, then the connection's remote host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
