package emailtemplate

import (
	"errors"
	"strings"
	"testing"

	"memberdesk/internal/domain/validation"
)

func TestValidate(t *testing.T) {
	tpl := Template{Name: " Welcome ", Subject: "Hello", Body: "Hi **there**"}
	if err := tpl.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if tpl.Name != "Welcome" {
		t.Errorf("Name = %q, want trimmed", tpl.Name)
	}

	blank := Template{Name: "x", Subject: "y", Body: "   "}
	ve, ok := validation.As(blank.Validate())
	if !ok || ve["Body"] == "" {
		t.Errorf("expected Body error, got %v", ve)
	}
}

func TestRenderHTML_Markdown(t *testing.T) {
	html, err := RenderHTML("Hello **friend**\nsecond line")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<strong>friend</strong>") {
		t.Errorf("html = %q, want bold", html)
	}
	if !strings.Contains(html, "<br") {
		t.Errorf("html = %q, want hard wrap", html)
	}
}

func TestRenderHTML_EscapesInlineScript(t *testing.T) {
	html, err := RenderHTML("hi <script>alert(1)</script> there")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("html = %q, raw script survived", html)
	}
}

func TestRenderHTML_PassesThroughHTML(t *testing.T) {
	in := "<p>Already <em>formatted</em></p>"
	html, err := RenderHTML(in)
	if err != nil || html != in {
		t.Errorf("RenderHTML() = %q, %v", html, err)
	}
}

func TestFind(t *testing.T) {
	list := []Template{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	got, err := Find(list, "b")
	if err != nil || got.Name != "B" {
		t.Errorf("Find(b) = %+v, %v", got, err)
	}
	if _, err := Find(list, "z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(z) err = %v", err)
	}
}
