// Package web serves the admin dashboard: server-rendered pages over the
// REST backend, with per-session list state kept in memory.
package web

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ulule/limiter/v3"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/adapters/email"
	"memberdesk/internal/adapters/http/middleware"
	"memberdesk/internal/adapters/http/perf"
	auditStore "memberdesk/internal/adapters/storage/audit"
	"memberdesk/internal/adapters/storage/session"
	"memberdesk/internal/application/orchestrators"
	"memberdesk/internal/config"
	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/organization"
	"memberdesk/internal/domain/participant"
	"memberdesk/internal/domain/rateplan"
	"memberdesk/internal/metrics"
)

// Backend is the REST backend surface the dashboard uses.
// *backend.Client implements it.
type Backend interface {
	orchestrators.Authenticator
	orchestrators.MemberWriter
	orchestrators.MemberWalker
	orchestrators.MemberDeleter
	orchestrators.OrganizationBackend
	orchestrators.EventBackend
	orchestrators.RatePlanBackend
	orchestrators.TemplateStore
	orchestrators.TemplateLister
	orchestrators.EmailBackend

	ListMembers(ctx context.Context, rc backend.RequestContext, q backend.ListQuery) (backend.Page[member.Member], error)
	ListOrganizations(ctx context.Context, rc backend.RequestContext, q backend.ListQuery) (backend.Page[organization.Organization], error)
	WalkOrganizations(ctx context.Context, rc backend.RequestContext, q backend.ListQuery, fn func(organization.Organization) error) error
	ListEvents(ctx context.Context, rc backend.RequestContext, q backend.ListQuery) (backend.Page[event.Event], error)
	ListRatePlans(ctx context.Context, rc backend.RequestContext, q backend.ListQuery) (backend.Page[rateplan.RatePlan], error)
	ListParticipants(ctx context.Context, rc backend.RequestContext, search string) (participant.Roster, error)
}

var _ Backend = (*backend.Client)(nil)

// Deps holds everything the handlers need.
type Deps struct {
	Backend  Backend
	Sessions *session.Store
	Audit    auditStore.Store
	Perf     *perf.Collector  // optional
	Metrics  *metrics.Metrics // optional
	Sender   email.Sender     // required when Config.EmailDispatch is resend
	Config   config.Config
}

// Global dependencies (set by NewMux)
var app *Deps

// Per-session UI state (reset by NewMux)
var workspaces = newWorkspaceRegistry()

// csrfKey derives the 32-byte CSRF secret. Without a configured key a
// random one is generated, which invalidates forms on restart.
func csrfKey(cfg config.Config) ([]byte, error) {
	if cfg.CSRFKey != "" {
		if key, err := hex.DecodeString(cfg.CSRFKey); err == nil && len(key) == 32 {
			return key, nil
		}
		sum := sha256.Sum256([]byte(cfg.CSRFKey))
		return sum[:], nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("MEMBERDESK_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set MEMBERDESK_CSRF_KEY so forms survive restarts")
	return key, nil
}

// NewMux wires HTTP handlers for the app.
// PRE: d.Backend and d.Sessions are non-nil
func NewMux(d *Deps) (http.Handler, error) {
	if d.Backend == nil || d.Sessions == nil {
		return nil, errors.New("web: backend and session store are required")
	}
	if d.Config.PageSize < 1 {
		d.Config.PageSize = backend.DefaultLimit
	}
	if d.Config.EmailDispatch == "" {
		d.Config.EmailDispatch = config.DispatchBackend
	}
	app = d
	workspaces = newWorkspaceRegistry()
	middleware.SecureCookies = d.Config.IsProduction()

	key, err := csrfKey(d.Config)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux)

	var rl *limiter.Limiter
	if d.Config.RateLimitRPS > 0 {
		rl = middleware.NewRateLimiter(d.Config.RateLimitRPS, time.Second)
	}

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(key, d.Config.IsProduction(), nil),
		middleware.Auth(d.Sessions),
		middleware.RateLimit(rl),
		middleware.Timing(d.Perf, 0),
	), nil
}

// submissionObserver returns the metrics sink or a nil interface.
func submissionObserver() orchestrators.SubmissionObserver {
	if app.Metrics == nil {
		return nil
	}
	return app.Metrics
}

func bulkEmailObserver() orchestrators.BulkEmailObserver {
	if app.Metrics == nil {
		return nil
	}
	return app.Metrics
}

func auditRecorder() orchestrators.AuditRecorder {
	if app.Audit == nil {
		return nil
	}
	return app.Audit
}
