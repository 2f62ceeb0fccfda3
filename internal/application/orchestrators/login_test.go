package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"memberdesk/internal/adapters/backend"
	"memberdesk/internal/adapters/storage/session"
	"memberdesk/internal/domain/audit"
)

type fakeAuth struct {
	result    backend.LoginResult
	err       error
	logouts   []string
	logoutErr error
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (backend.LoginResult, error) {
	if f.err != nil {
		return backend.LoginResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeAuth) Logout(_ context.Context, rc backend.RequestContext) error {
	f.logouts = append(f.logouts, rc.Token)
	return f.logoutErr
}

type fakeSessions struct {
	created []session.Session
	deleted []string
}

func (f *fakeSessions) Create(_ context.Context, email, name, token string) (session.Session, error) {
	s := session.Session{ID: "sid", AdminEmail: email, AdminName: name, BackendToken: token}
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestLogin_OpensSessionWithBackendToken(t *testing.T) {
	auth := &fakeAuth{result: backend.LoginResult{Token: "tok", Admin: backend.Admin{Email: "admin@example.org", Name: "Admin"}}}
	sessions := &fakeSessions{}
	rec := &fakeAudit{}
	sess, err := ExecuteLogin(context.Background(), LoginInput{Email: " Admin@Example.org ", Password: "pw", IP: "10.0.0.1"},
		LoginDeps{Auth: auth, Sessions: sessions, Audit: rec})
	if err != nil {
		t.Fatalf("ExecuteLogin: %v", err)
	}
	if sess.BackendToken != "tok" || sess.AdminName != "Admin" {
		t.Errorf("session = %+v", sess)
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionLogin || rec.events[0].IPAddress != "10.0.0.1" {
		t.Errorf("audit = %+v", rec.events)
	}
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input LoginInput
		err   error
		want  error
	}{
		{"missing password", LoginInput{Email: "a@example.org"}, nil, ErrMissingCredentials},
		{"missing email", LoginInput{Password: "pw"}, nil, ErrMissingCredentials},
		{"rejected", LoginInput{Email: "a@example.org", Password: "bad"}, &backend.APIError{Status: 401}, ErrInvalidCredentials},
		{"refused", LoginInput{Email: "a@example.org", Password: "bad"}, &backend.APIError{Status: 200, Refused: true}, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{}
			_, err := ExecuteLogin(context.Background(), tt.input, LoginDeps{Auth: &fakeAuth{err: tt.err}, Sessions: sessions})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(sessions.created) != 0 {
				t.Error("session opened on failed login")
			}
		})
	}
}

func TestLogin_BackendOutageIsNotInvalidCredentials(t *testing.T) {
	_, err := ExecuteLogin(context.Background(), LoginInput{Email: "a@example.org", Password: "pw"},
		LoginDeps{Auth: &fakeAuth{err: &backend.APIError{Status: 503}}, Sessions: &fakeSessions{}})
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
}

func TestLogout_DeletesSessionEvenWhenBackendFails(t *testing.T) {
	auth := &fakeAuth{logoutErr: errors.New("offline")}
	sessions := &fakeSessions{}
	err := ExecuteLogout(context.Background(),
		LogoutInput{Session: session.Session{ID: "sid", AdminEmail: "a@example.org", BackendToken: "tok"}},
		LoginDeps{Auth: auth, Sessions: sessions})
	if err != nil {
		t.Fatalf("ExecuteLogout: %v", err)
	}
	if len(auth.logouts) != 1 || auth.logouts[0] != "tok" {
		t.Errorf("logouts = %v", auth.logouts)
	}
	if len(sessions.deleted) != 1 || sessions.deleted[0] != "sid" {
		t.Errorf("deleted = %v", sessions.deleted)
	}
}

type fakePurger struct{ calls chan struct{} }

func (f *fakePurger) PurgeExpired(context.Context) (int64, error) {
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return 2, nil
}

func TestStartSessionPurger(t *testing.T) {
	p := &fakePurger{calls: make(chan struct{}, 1)}
	stop := make(chan struct{})
	defer close(stop)
	StartSessionPurger(p, 5*time.Millisecond, stop)
	select {
	case <-p.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("purger never ran")
	}
}
