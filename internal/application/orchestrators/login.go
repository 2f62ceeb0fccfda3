package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/adapters/storage/session"
	"memberdesk/internal/domain/audit"
)

// Domain errors
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Authenticator exchanges admin credentials with the backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
	Logout(ctx context.Context, rc backend.RequestContext) error
}

// SessionStore opens and closes admin sessions.
type SessionStore interface {
	Create(ctx context.Context, email, name, backendToken string) (session.Session, error)
	Delete(ctx context.Context, id string) error
}

// LoginInput carries the submitted credentials.
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// LoginDeps holds dependencies for ExecuteLogin and ExecuteLogout.
type LoginDeps struct {
	Auth     Authenticator
	Sessions SessionStore
	Audit    AuditRecorder
}

// ExecuteLogin authenticates against the backend and opens a session that
// holds the issued token.
// PRE: none
// POST: on success the session's BackendToken is the token the backend issued
// POST: ErrInvalidCredentials when the backend rejects the credentials
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (session.Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return session.Session{}, ErrMissingCredentials
	}
	actor := Actor{Email: email, IP: input.IP}

	res, err := deps.Auth.Login(ctx, email, input.Password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && (apiErr.Refused || apiErr.Status < 500) {
			slog.Warn("login_rejected", "email", email, "status", apiErr.Status)
			recordAudit(ctx, deps.Audit, actor, audit.NewEvent(email, audit.CategorySession, audit.ActionLogin).
				WithSeverity(audit.SeverityWarning).
				WithDescription("Login rejected"))
			return session.Session{}, ErrInvalidCredentials
		}
		return session.Session{}, fmt.Errorf("login: %w", err)
	}

	sess, err := deps.Sessions.Create(ctx, res.Admin.Email, res.Admin.Name, res.Token)
	if err != nil {
		return session.Session{}, fmt.Errorf("open session: %w", err)
	}
	slog.Info("login_succeeded", "email", res.Admin.Email)
	recordAudit(ctx, deps.Audit, actor, audit.NewEvent(email, audit.CategorySession, audit.ActionLogin).
		WithDescription("Logged in"))
	return sess, nil
}

// LogoutInput identifies the session to close.
type LogoutInput struct {
	Session session.Session
	IP      string
}

// ExecuteLogout revokes the backend token and deletes the session. A backend
// failure is logged; the local session is removed regardless.
// POST: the session no longer resolves
func ExecuteLogout(ctx context.Context, input LogoutInput, deps LoginDeps) error {
	sess := input.Session
	if sess.BackendToken != "" && deps.Auth != nil {
		if err := deps.Auth.Logout(ctx, backend.RequestContext{Token: sess.BackendToken}); err != nil {
			slog.Warn("backend_logout_failed", "email", sess.AdminEmail, "error", err)
		}
	}
	if err := deps.Sessions.Delete(ctx, sess.ID); err != nil {
		return err
	}
	slog.Info("logout", "email", sess.AdminEmail)
	recordAudit(ctx, deps.Audit, Actor{Email: sess.AdminEmail, IP: input.IP},
		audit.NewEvent(sess.AdminEmail, audit.CategorySession, audit.ActionLogout).WithDescription("Logged out"))
	return nil
}
