// Package audit records what the service did and under which configuration.
// It has two halves: a startup audit log that captures the resolved
// environment with secret values redacted, and a query recorder that writes
// one immutable audit row per resolved query.
//
// Secrets are logged as presence/absence only — never their values.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/ragd/internal/logging"
	"github.com/54b3r/ragd/internal/rag"
)

// secretEnvKeys lists environment variable names whose values must never be
// logged. Only presence ("set") or absence ("unset") is recorded.
var secretEnvKeys = map[string]bool{
	"OPENAI_API_KEY":       true,
	"AZURE_OPENAI_API_KEY": true,
	"EMBEDDING_API_KEY":    true,
	"QDRANT_API_KEY":       true,
	"REDIS_PASSWORD":       true,
	"RAGD_API_KEY":         true,
	"LANGFUSE_PUBLIC_KEY":  true,
	"LANGFUSE_SECRET_KEY":  true,
}

// LogCommandStart emits a structured audit log entry when a CLI command begins.
// It records the command name, config file source, and sanitised environment.
func LogCommandStart(log *slog.Logger, command string, configPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}

	// Log key operational env vars with sanitisation.
	for _, entry := range auditKeys {
		val := os.Getenv(entry.key)
		if entry.secret {
			attrs = append(attrs, slog.String(entry.key, presence(val)))
		} else {
			attrs = append(attrs, slog.String(entry.key, valOrUnset(val)))
		}
	}

	log.LogAttrs(context.TODO(), slog.LevelInfo, "audit: command start", attrs...)
}

// auditEntry defines an env var to include in the audit log.
type auditEntry struct {
	// key is the environment variable name.
	key string
	// secret indicates the value should be redacted to presence/absence.
	secret bool
}

// auditKeys is the ordered list of env vars included in every audit log entry.
var auditKeys = []auditEntry{
	{"MODEL_PROVIDER", false},
	{"MODEL_MOCK", false},
	{"OLLAMA_HOST", false},
	{"OLLAMA_MODEL", false},
	{"OPENAI_API_KEY", true},
	{"OPENAI_MODEL", false},
	{"AZURE_OPENAI_API_KEY", true},
	{"AZURE_OPENAI_ENDPOINT", false},
	{"AZURE_OPENAI_DEPLOYMENT", false},
	{"EMBEDDING_PROVIDER", false},
	{"EMBEDDING_MODEL", false},
	{"EMBEDDING_API_KEY", true},
	{"QDRANT_HOST", false},
	{"QDRANT_PORT", false},
	{"QDRANT_COLLECTION", false},
	{"QDRANT_API_KEY", true},
	{"REDIS_ADDR", false},
	{"REDIS_PASSWORD", true},
	{"RAGD_API_KEY", true},
	{"RAGD_DB", false},
	{"LOG_LEVEL", false},
	{"LOG_FORMAT", false},
	{"LANGFUSE_PUBLIC_KEY", true},
	{"LANGFUSE_SECRET_KEY", true},
}

// SanitiseKey returns "set" or "unset" for known secret keys, or the actual
// value for non-secret keys. This is safe to use in log messages.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}

// logAppender is the slice of the document store the recorder needs.
type logAppender interface {
	AppendQueryLog(ctx context.Context, entry rag.QueryLog) error
}

// Recorder writes one audit row per resolved query. Recording is best-effort:
// a failed write is logged but never surfaced, so an audit outage cannot fail
// a query that otherwise succeeded.
type Recorder struct {
	store logAppender
	// now is swappable in tests.
	now func() time.Time
}

// NewRecorder returns a Recorder writing through the given store.
func NewRecorder(store logAppender) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record persists one query resolution. sourceIDs lists the cited chunk IDs,
// in citation order.
func (r *Recorder) Record(ctx context.Context, tenantID, query string, result rag.QueryResult) {
	sourceIDs := make([]string, 0, len(result.Sources))
	for _, src := range result.Sources {
		sourceIDs = append(sourceIDs, src.ChunkID)
	}
	entry := rag.QueryLog{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Query:     query,
		Answer:    result.Answer,
		Cached:    result.Cached,
		SourceIDs: sourceIDs,
		Timestamp: r.now(),
	}
	if err := r.store.AppendQueryLog(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to record query audit entry",
			"tenant_id", tenantID, "error", err)
	}
}
