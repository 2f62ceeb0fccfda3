package emailtemplate

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"memberdesk/internal/domain/validation"
)

// CustomID is the picker value meaning "no template, write from scratch".
const CustomID = "custom"

// ErrNotFound is returned when a template id is unknown.
var ErrNotFound = errors.New("email template not found")

// mdRenderer converts template bodies to HTML.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Template is a reusable subject and body for bulk emails.
type Template struct {
	ID        string
	Name      string `validate:"required,max=120" label:"Template name"`
	Subject   string `validate:"required,max=200"`
	Body      string `validate:"required"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks if the Template has valid data.
// PRE: none
// POST: returns nil or validation.Errors
func (t *Template) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	t.Subject = strings.TrimSpace(t.Subject)
	if strings.TrimSpace(t.Body) == "" {
		t.Body = ""
	}
	return validation.Struct(t)
}

// RenderHTML returns the body as HTML.
// Bodies that are already HTML (saved by earlier rich-text editors) pass
// through unchanged; everything else is treated as Markdown.
func RenderHTML(body string) (string, error) {
	if IsHTML(body) {
		return body, nil
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// IsHTML reports whether body looks like an HTML fragment.
func IsHTML(body string) bool {
	b := strings.TrimSpace(body)
	return strings.HasPrefix(b, "<") && strings.HasSuffix(b, ">")
}

// Find returns the template with the given id.
// PRE: none
// POST: returns ErrNotFound when absent
func Find(templates []Template, id string) (Template, error) {
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, ErrNotFound
}
