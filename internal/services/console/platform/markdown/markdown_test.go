package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	out := New().Render("The **orc** attacks.\n\n- one\n- two")
	for _, want := range []string{"<strong>orc</strong>", "<li>one</li>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Render() = %q, missing %q", out, want)
		}
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	t.Parallel()

	out := New().Render("<script>alert(1)</script>")
	if strings.Contains(out, "<script>") {
		t.Fatalf("Render() kept raw html: %q", out)
	}
}
