// Package audit emits structured events for authentication outcomes, quota
// rejections, and access-control denials. Emitters observe decisions; they
// never alter them.
package audit

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// EventKind enumerates the terminal outcomes worth recording.
type EventKind string

const (
	AuthSuccess  EventKind = "auth_success"
	AuthFailure  EventKind = "auth_failure"
	RateLimited  EventKind = "rate_limited"
	AccessDenied EventKind = "access_denied"
)

// Event is one structured audit record. Identity is empty for anonymous
// requests and for failures where no identity was resolved.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"event_kind"`
	Identity  string    `json:"identity,omitempty"`
	Route     string    `json:"route"`
	Detail    string    `json:"detail,omitempty"`
}

// Sink delivers events to the external log system. Implementations must be
// safe for concurrent use and must never block the request pipeline beyond
// a single write.
type Sink interface {
	Emit(e Event)
}

// ZapSink writes events through a structured logger.
type ZapSink struct {
	log *zap.Logger
}

func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log.Named("audit")}
}

func (s *ZapSink) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.log.Info("audit",
		zap.Time("timestamp", e.Timestamp),
		zap.String("event_kind", string(e.Kind)),
		zap.String("identity", e.Identity),
		zap.String("route", e.Route),
		zap.String("detail", Sanitize(e.Detail)),
	)
}

// NopSink discards events. Used in tests that do not assert on auditing.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// Sanitize redacts detail strings that look like they carry credential
// material. Secrets must never reach the log sink under any outcome.
func Sanitize(detail string) string {
	lower := strings.ToLower(detail)
	for _, s := range []string{"password", "secret", "bearer "} {
		if strings.Contains(lower, s) {
			return "[REDACTED]"
		}
	}
	return detail
}
