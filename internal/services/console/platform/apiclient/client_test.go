package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/observability"
)

type recordingReporter struct {
	messages []string
}

func (r *recordingReporter) ReportError(message string) {
	r.messages = append(r.messages, message)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingReporter) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	reporter := &recordingReporter{}
	return New(srv.URL+"/", WithMetrics(observability.NewMetrics())).WithReporter(reporter), reporter
}

func TestCallDecodesJSON(t *testing.T) {
	t.Parallel()

	client, reporter := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/knowledge/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"name":"Core","count":3,"metadata":{"kb_type":"rules","indexing_strategy":"deep"}}]`)
	})
	kbs, err := client.ListKnowledgeBases(context.Background())
	if err != nil {
		t.Fatalf("ListKnowledgeBases() error = %v", err)
	}
	if len(kbs) != 1 || kbs[0].Name != "Core" || !kbs[0].Deep() {
		t.Fatalf("kbs = %+v", kbs)
	}
	if len(reporter.messages) != 0 {
		t.Fatalf("unexpected reports %v", reporter.messages)
	}
}

func TestCallReportsBackendError(t *testing.T) {
	t.Parallel()

	client, reporter := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"kb exists"}`)
	})
	err := client.DeleteKnowledgeBase(context.Background(), "Core")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "kb exists" {
		t.Fatalf("error = %v", err)
	}
	if len(reporter.messages) != 1 || reporter.messages[0] != "kb exists" {
		t.Fatalf("reports = %v", reporter.messages)
	}
}

func TestCallFallsBackToStatusMessage(t *testing.T) {
	t.Parallel()

	client, reporter := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `<html>bad gateway</html>`)
	})
	if err := client.SaveSettings(context.Background(), Settings{}); err == nil {
		t.Fatalf("expected error")
	}
	if len(reporter.messages) != 1 || reporter.messages[0] != "HTTP 502" {
		t.Fatalf("reports = %v", reporter.messages)
	}
}

func TestCallNoContentLeavesOutUntouched(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	out := map[string]string{"kept": "yes"}
	if err := client.Call(context.Background(), http.MethodGet, "/x", nil, &out); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if out["kept"] != "yes" {
		t.Fatalf("out = %v", out)
	}
}

func TestLatestSessionAbsent(t *testing.T) {
	t.Parallel()

	client, reporter := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"no sessions"}`)
	})
	_, err := client.LatestSession(context.Background(), "7")
	if !errors.Is(err, ErrAbsent) {
		t.Fatalf("error = %v, want ErrAbsent", err)
	}
	if len(reporter.messages) != 0 {
		t.Fatalf("absent session should not be reported: %v", reporter.messages)
	}
}

func TestImportTextSendsMultipart(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if got := r.FormValue("kb_name"); got != "Core" {
			t.Errorf("kb_name = %q", got)
		}
		var meta KBMetadata
		if err := json.Unmarshal([]byte(r.FormValue("metadata")), &meta); err != nil || meta.KBType != KBRules {
			t.Errorf("metadata = %q", r.FormValue("metadata"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "core.pdf" || string(data) != "%PDF" {
			t.Errorf("file = %q %q", header.Filename, data)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	err := client.ImportText(context.Background(),
		FormFile{Name: "core.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
		"Core", KBMetadata{KBType: KBRules})
	if err != nil {
		t.Fatalf("ImportText() error = %v", err)
	}
}

func TestSearchUsesQueryParameters(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Query().Get("q") != "orc war" || r.URL.Query().Get("scope") != "A" {
			t.Errorf("request = %s %s", r.Method, r.URL.String())
		}
		_, _ = io.WriteString(w, `{"results":[{"chunk_id":12,"kb":"A","document":"orcs","score":0.9}]}`)
	})
	hits, err := client.Search(context.Background(), "orc war", "A")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "12" {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestTransportErrorIsReported(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	client := New("http://127.0.0.1:1").WithReporter(reporter)
	if _, err := client.ListParties(context.Background()); err == nil {
		t.Fatalf("expected transport error")
	}
	if len(reporter.messages) != 1 || strings.TrimSpace(reporter.messages[0]) == "" {
		t.Fatalf("reports = %v", reporter.messages)
	}
}

func TestDecodeFlexibleShapes(t *testing.T) {
	t.Parallel()

	var listing ReviewListing
	if err := json.Unmarshal([]byte(`[{"filename":"a.png"}]`), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Status != ReviewComplete || len(listing.Images) != 1 {
		t.Fatalf("listing = %+v", listing)
	}

	var settings Settings
	if err := json.Unmarshal([]byte(`{"Appearance":{"theme":"dark","scale":2}}`), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.Get("Appearance", "scale") != "2" || settings.Get("Appearance", "theme") != "dark" {
		t.Fatalf("settings = %v", settings)
	}

	var chunk Chunk
	if err := json.Unmarshal([]byte(`{"chunk_id":"c1","page_start":"12"}`), &chunk); err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	if !chunk.PageStart.Valid || chunk.PageStart.Value != 12 {
		t.Fatalf("page_start = %+v", chunk.PageStart)
	}
}

func TestGameConfigValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cfg  GameConfig
		want bool
	}{
		{GameConfig{Mode: ModeModule, Rules: "r", Party: "p", Module: "m"}, true},
		{GameConfig{Mode: ModeFreestyle, Rules: "r", Party: "p", Setting: "s"}, true},
		{GameConfig{Mode: ModeModule, Rules: "", Party: "p", Module: "m"}, false},
		{GameConfig{Mode: ModeModule, Rules: "r", Party: "p", Module: "m", Setting: "s"}, false},
		{GameConfig{Mode: ModeFreestyle, Rules: "r", Party: "p"}, false},
	}
	for _, tc := range cases {
		if got := tc.cfg.Valid(); got != tc.want {
			t.Fatalf("Valid(%+v) = %v, want %v", tc.cfg, got, tc.want)
		}
	}
}

func TestBeforeRequestRunsBeforeSend(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if n := calls.Load(); n != 1 {
			t.Errorf("calls when request arrived = %d, want 1", n)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, WithBeforeRequest(func() { calls.Add(1) }))
	if err := client.Call(context.Background(), http.MethodPost, "/api/game/command", map[string]string{"command": "look"}, nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}
