package console

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/louisbranch/gmconsole/internal/services/console/consoletest"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/diceroller"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/gameplay"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/observability"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *http.Client) {
	t.Helper()
	s, ts, client, _ := newTestServerWithBackend(t)
	return s, ts, client
}

func newTestServerWithBackend(t *testing.T) (*Server, *httptest.Server, *http.Client, *consoletest.Backend) {
	t.Helper()
	backend := consoletest.NewBackend(t)
	backend.JSON(http.MethodGet, "/api/settings/", http.StatusOK, map[string]map[string]string{
		"Appearance": {"theme": "forest", "language": "en"},
	})

	s, err := NewServer(Config{
		BackendURL: backend.URL(),
		Metrics:    observability.NewMetrics(),
		Logger:     zerolog.Nop(),
		Seed:       func() (int64, error) { return 7, nil },
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(s.Close)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return s, ts, &http.Client{Jar: jar, Timeout: 5 * time.Second}, backend
}

func get(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp, string(body)
}

func postEvent(t *testing.T, client *http.Client, url string, ev map[string]any) int {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	resp, err := client.Post(url+"/console/events", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST event: %v", err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestNewServerRequiresBackendURL(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Config{}); err == nil {
		t.Fatal("expected missing backend URL error")
	}
	if _, err := NewServer(Config{BackendURL: "ftp://backend"}); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestPageStartsOneSessionPerCookie(t *testing.T) {
	t.Parallel()

	s, ts, client := newTestServer(t)
	resp, body := get(t, client, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if len(resp.Cookies()) != 1 || resp.Cookies()[0].Name != sessionCookieName {
		t.Fatalf("cookies = %v", resp.Cookies())
	}
	for _, want := range []string{`data-stream-since="`, `lang="en"`, "theme-forest", `id="quick-theme"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	resp, _ = get(t, client, ts.URL+"/")
	if len(resp.Cookies()) != 0 {
		t.Fatalf("second load set cookies %v", resp.Cookies())
	}
	if got := s.sessions.size(); got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}
}

func TestEventPatchesReachStream(t *testing.T) {
	t.Parallel()

	_, ts, client := newTestServer(t)
	_, page := get(t, client, ts.URL+"/")
	since := between(page, `data-stream-since="`, `"`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/console/stream?since="+since, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	streamClient := &http.Client{Jar: client.Jar}
	resp, err := streamClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	status := postEvent(t, client, ts.URL, map[string]any{
		"type":   dom.EventClick,
		"target": "dice-roller",
		"action": diceroller.ActionDie,
		"data":   map[string]string{"faces": "20"},
	})
	if status != http.StatusNoContent {
		t.Fatalf("event status = %d, want %d", status, http.StatusNoContent)
	}

	deadline := time.After(3 * time.Second)
	var sawID bool
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before patches arrived")
			}
			if strings.HasPrefix(line, "id: ") {
				sawID = true
			}
			if strings.HasPrefix(line, "data: ") && strings.Contains(line, `"target":"`+diceroller.DisplayID+`"`) {
				if !sawID {
					t.Fatal("expected an id line before the data line")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for dice display patch")
		}
	}
}

// heldCommands makes the backend hold every game command until release is
// called. entered receives one value per command that reached the backend.
func heldCommands(t *testing.T, backend *consoletest.Backend) (entered <-chan struct{}, release func()) {
	t.Helper()
	ch := make(chan struct{}, 8)
	gate := make(chan struct{})
	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	backend.Handle(http.MethodPost, "/api/game/command", func(w http.ResponseWriter, _ *http.Request) {
		ch <- struct{}{}
		<-gate
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"The door opens."}`))
	})
	return ch, release
}

// startGame loads the page and opens a game in the only session.
func startGame(t *testing.T, s *Server, ts *httptest.Server, client *http.Client) *session {
	t.Helper()
	get(t, client, ts.URL+"/")
	s.sessions.mu.Lock()
	var sess *session
	for _, v := range s.sessions.sessions {
		sess = v
	}
	s.sessions.mu.Unlock()
	if sess == nil {
		t.Fatal("no session after page load")
	}
	cfg := apiclient.GameConfig{Mode: apiclient.ModeFreestyle, Rules: "core", Party: "7", Setting: "eberron"}
	if err := sess.loop.Do(context.Background(), func(ctx context.Context) {
		sess.shell.Gameplay.Start(ctx, cfg, nil)
	}); err != nil {
		t.Fatalf("start game: %v", err)
	}
	return sess
}

func waitEntered(t *testing.T, entered <-chan struct{}) {
	t.Helper()
	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("command never reached the backend")
	}
}

func hasPatch(batches []batch, want dom.Patch) bool {
	for _, b := range batches {
		for _, p := range b.patches {
			if p == want {
				return true
			}
		}
	}
	return false
}

func TestCommandBusyStateIsPublishedBeforeReply(t *testing.T) {
	t.Parallel()

	s, ts, client, backend := newTestServerWithBackend(t)
	entered, release := heldCommands(t, backend)
	sess := startGame(t, s, ts, client)
	before := sess.log.Seq()

	sess.loop.Post(func(ctx context.Context) {
		sess.shell.Gameplay.Submit(ctx, "look around")
	})
	waitEntered(t, entered)

	batches, ok := sess.log.since(before)
	if !ok {
		t.Fatalf("since(%d) failed", before)
	}
	disabled := dom.Patch{Op: dom.OpAttr, Target: gameplay.InputID, Name: "disabled"}
	if !hasPatch(batches, disabled) {
		t.Fatalf("batches while command in flight = %+v, want %+v", batches, disabled)
	}
	inFlight := sess.log.Seq()

	release()
	enabled := dom.Patch{Op: dom.OpRemoveAttr, Target: gameplay.InputID, Name: "disabled"}
	if err := sess.loop.Do(context.Background(), func(context.Context) {}); err != nil {
		t.Fatalf("sync loop: %v", err)
	}
	batches, _ = sess.log.since(inFlight)
	if !hasPatch(batches, enabled) {
		t.Fatalf("batches after reply = %+v, want %+v", batches, enabled)
	}
}

func TestSubmitSentBeforeReenableIsDropped(t *testing.T) {
	t.Parallel()

	s, ts, client, backend := newTestServerWithBackend(t)
	entered, release := heldCommands(t, backend)
	sess := startGame(t, s, ts, client)

	enter := func(command string, seen uint64) {
		t.Helper()
		status := postEvent(t, client, ts.URL, map[string]any{
			"type":   dom.EventKeyDown,
			"target": gameplay.InputID,
			"key":    "Enter",
			"value":  command,
			"seen":   seen,
		})
		if status != http.StatusNoContent {
			t.Fatalf("event status = %d, want %d", status, http.StatusNoContent)
		}
	}
	settle := func() {
		t.Helper()
		if err := sess.loop.Do(context.Background(), func(context.Context) {}); err != nil {
			t.Fatalf("sync loop: %v", err)
		}
	}

	enter("attack", sess.log.Seq())
	waitEntered(t, entered)
	enter("flee", sess.log.Seq())
	release()
	settle()

	commands := func() []string {
		var out []string
		for _, r := range backend.Requests(http.MethodPost, "/api/game/command") {
			var req apiclient.CommandRequest
			r.Decode(t, &req)
			out = append(out, req.Command)
		}
		return out
	}
	if got := commands(); len(got) != 1 || got[0] != "attack" {
		t.Fatalf("commands = %v, want [attack]", got)
	}
	var kept string
	if err := sess.loop.Do(context.Background(), func(context.Context) {
		kept = sess.doc.ByID(gameplay.InputID).Value()
	}); err != nil {
		t.Fatalf("read input: %v", err)
	}
	if kept != "flee" {
		t.Fatalf("input = %q, want the dropped command kept", kept)
	}

	enter("regroup", sess.log.Seq())
	waitEntered(t, entered)
	settle()
	if got := commands(); len(got) != 2 || got[1] != "regroup" {
		t.Fatalf("commands = %v, want [attack regroup]", got)
	}
}

func TestEventRequiresSessionAndKnownType(t *testing.T) {
	t.Parallel()

	_, ts, client := newTestServer(t)
	if status := postEvent(t, client, ts.URL, map[string]any{"type": "click"}); status != http.StatusGone {
		t.Fatalf("status without session = %d, want %d", status, http.StatusGone)
	}
	get(t, client, ts.URL+"/")
	if status := postEvent(t, client, ts.URL, map[string]any{"type": "scroll"}); status != http.StatusBadRequest {
		t.Fatalf("status for unknown type = %d, want %d", status, http.StatusBadRequest)
	}
}

func TestDecodeMultipartEvent(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("event", `{"type":"drop","target":"asset-dropzone"}`); err != nil {
		t.Fatalf("write field: %v", err)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="files"; filename="map.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("png-bytes"))
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/console/events", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	ev, err := decodeEvent(req)
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if ev.Type != dom.EventDrop || ev.Target != "asset-dropzone" {
		t.Fatalf("event = %+v", ev)
	}
	if len(ev.Files) != 1 || ev.Files[0].Name != "map.png" || ev.Files[0].ContentType != "image/png" || string(ev.Files[0].Data) != "png-bytes" {
		t.Fatalf("files = %+v", ev.Files)
	}
}

func TestStreamWithoutSessionReloads(t *testing.T) {
	t.Parallel()

	_, ts, client := newTestServer(t)
	_, body := get(t, client, ts.URL+"/console/stream")
	if !strings.Contains(body, "event: reload") {
		t.Fatalf("body = %q, want reload event", body)
	}
}

func TestStaticLocalesAndHealth(t *testing.T) {
	t.Parallel()

	_, ts, client := newTestServer(t)
	resp, body := get(t, client, ts.URL+"/locales/es.json")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("locale response = %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	var messages map[string]string
	if err := json.Unmarshal([]byte(body), &messages); err != nil || messages["app_title"] == "" {
		t.Fatalf("locale body = %q (%v)", body, err)
	}
	if resp, _ := get(t, client, ts.URL+"/locales/xx.json"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown locale status = %d", resp.StatusCode)
	}
	if resp, body := get(t, client, ts.URL+"/static/console.js"); resp.StatusCode != http.StatusOK || !strings.Contains(body, "EventSource") {
		t.Fatalf("shim status = %d", resp.StatusCode)
	}
	if _, body := get(t, client, ts.URL+"/healthz"); body != "ok" {
		t.Fatalf("healthz = %q", body)
	}
	if s, _ := get(t, client, ts.URL+"/nowhere"); s.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", s.StatusCode)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	t.Parallel()

	s, ts, client := newTestServer(t)
	get(t, client, ts.URL+"/")
	if s.sessions.size() != 1 {
		t.Fatalf("sessions = %d, want 1", s.sessions.size())
	}
	if n := s.sessions.sweep(); n != 0 {
		t.Fatalf("sweep() = %d, want 0 for a fresh session", n)
	}

	s.sessions.mu.Lock()
	s.sessions.now = func() time.Time { return time.Now().Add(defaultSessionTTL + time.Minute) }
	s.sessions.mu.Unlock()
	if n := s.sessions.sweep(); n != 1 {
		t.Fatalf("sweep() = %d, want 1", n)
	}
	if status := postEvent(t, client, ts.URL, map[string]any{"type": "click"}); status != http.StatusGone {
		t.Fatalf("status after eviction = %d, want %d", status, http.StatusGone)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := NewServer(Config{HTTPAddr: "127.0.0.1:0", BackendURL: "http://127.0.0.1:1", Metrics: observability.NewMetrics(), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer s.Close()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.ListenAndServe(ctx)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop on cancel")
	}
}

func between(s string, start string, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return ""
	}
	return rest[:j]
}
