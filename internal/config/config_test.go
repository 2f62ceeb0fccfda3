package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]string{"MEMBERDESK_API_URL=https://api.example.org"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.PageSize != 10 || cfg.APITimeout != 15*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.EmailDispatch != DispatchBackend || cfg.SessionTTL != 24*time.Hour || cfg.MetricsPath != "/metrics" || cfg.RegistrationPerMinute != 30 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.IsProduction() {
		t.Error("default env must not be production")
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]string{
		"MEMBERDESK_API_URL=http://localhost:3000/api",
		"MEMBERDESK_PAGE_SIZE=25",
		"MEMBERDESK_API_TIMEOUT=3s",
		"MEMBERDESK_EMAIL_DISPATCH=Resend",
		"MEMBERDESK_RESEND_KEY=re_123",
		"UNRELATED=1",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.PageSize != 25 || cfg.APITimeout != 3*time.Second || cfg.EmailDispatch != DispatchResend {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		environ []string
		want    string
	}{
		{"missing api url", nil, "API_URL"},
		{"relative api url", []string{"MEMBERDESK_API_URL=/api"}, "absolute"},
		{"page size", []string{"MEMBERDESK_API_URL=http://x", "MEMBERDESK_PAGE_SIZE=0"}, "PAGE_SIZE"},
		{"registration limit", []string{"MEMBERDESK_API_URL=http://x", "MEMBERDESK_REGISTRATION_PER_MINUTE=-1"}, "REGISTRATION_PER_MINUTE"},
		{"dispatch mode", []string{"MEMBERDESK_API_URL=http://x", "MEMBERDESK_EMAIL_DISPATCH=smtp"}, "EMAIL_DISPATCH"},
		{"resend without key", []string{"MEMBERDESK_API_URL=http://x", "MEMBERDESK_EMAIL_DISPATCH=resend"}, "RESEND_KEY"},
		{"production csrf", []string{"MEMBERDESK_API_URL=http://x", "MEMBERDESK_ENV=production", "MEMBERDESK_SESSION_SECRET=s"}, "CSRF_KEY"},
		{"production secret", []string{"MEMBERDESK_API_URL=http://x", "MEMBERDESK_ENV=production", "MEMBERDESK_CSRF_KEY=" + strings.Repeat("k", 32)}, "SESSION_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.environ)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("MEMBERDESK_TEST_ONLY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEMBERDESK_TEST_ONLY", "")
	os.Unsetenv("MEMBERDESK_TEST_ONLY")

	n, err := LoadEnvFiles(path, filepath.Join(dir, "missing.env"))
	if err != nil || n != 1 {
		t.Fatalf("LoadEnvFiles = %d, %v", n, err)
	}
	if got := os.Getenv("MEMBERDESK_TEST_ONLY"); got != "from-file" {
		t.Errorf("MEMBERDESK_TEST_ONLY = %q", got)
	}
}
