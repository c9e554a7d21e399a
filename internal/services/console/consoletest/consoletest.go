// Package consoletest wires a session document, services and a fake backend
// for component tests.
package consoletest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/louisbranch/gmconsole/internal/platform/i18n/catalog"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/eventloop/eventlooptest"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/i18n"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/status"
	"github.com/louisbranch/gmconsole/internal/services/console/static"
)

// Env is one test session.
type Env struct {
	T       *testing.T
	Ctx     context.Context
	Doc     *dom.Document
	Sched   *eventlooptest.Scheduler
	I18n    *i18n.Service
	Bar     *status.Bar
	Modal   *status.Modal
	Backend *Backend
	API     *apiclient.Client
}

// New builds an Env on the embedded skeleton with English loaded.
func New(t *testing.T) *Env {
	t.Helper()
	doc := dom.MustParseString(static.Skeleton())
	svc := i18n.New(doc, catalog.Default())
	if err := svc.Init("en"); err != nil {
		t.Fatalf("i18n Init() error = %v", err)
	}
	bar := status.NewBar(doc, svc)
	modal := status.NewModal(doc, svc)
	modal.Init()
	backend := NewBackend(t)
	doc.TakePatches()
	return &Env{
		T:       t,
		Ctx:     context.Background(),
		Doc:     doc,
		Sched:   eventlooptest.New(),
		I18n:    svc,
		Bar:     bar,
		Modal:   modal,
		Backend: backend,
		API:     apiclient.New(backend.URL()).WithReporter(bar),
	}
}

// Status returns the status bar text.
func (e *Env) Status() string {
	return e.Doc.ByID(status.BarID).Text()
}

// StatusIsError reports whether the bar shows an error.
func (e *Env) StatusIsError() bool {
	return e.Doc.ByID(status.BarID).HasClass("error")
}

// Click dispatches a click on the element with id.
func (e *Env) Click(id string) {
	e.Doc.Dispatch(e.Ctx, dom.Event{Type: dom.EventClick, Target: id})
}

// Action dispatches an event of typ through a data-action element. target is
// the closest id-bearing ancestor; data mirrors the element's data-* set.
func (e *Env) Action(typ string, action string, target string, data map[string]string) {
	e.Doc.Dispatch(e.Ctx, dom.Event{Type: typ, Target: target, Action: action, Data: data})
}

// Change reports a new value for the element with id.
func (e *Env) Change(id string, value string) {
	e.Doc.Dispatch(e.Ctx, dom.Event{Type: dom.EventChange, Target: id, Value: &value})
}

// Input reports live typing in the element with id.
func (e *Env) Input(id string, value string) {
	e.Doc.Dispatch(e.Ctx, dom.Event{Type: dom.EventInput, Target: id, Value: &value})
}

// Check reports a checkbox or radio change.
func (e *Env) Check(id string, checked bool) {
	e.Doc.Dispatch(e.Ctx, dom.Event{Type: dom.EventChange, Target: id, Checked: &checked})
}

// Key reports a key press on the element with id.
func (e *Env) Key(id string, key string, shift bool) {
	e.Doc.Dispatch(e.Ctx, dom.Event{Type: dom.EventKeyDown, Target: id, Key: key, Shift: shift})
}

// Confirm answers the open confirmation modal.
func (e *Env) Confirm(ok bool) {
	if ok {
		e.Click(status.ConfirmOKID)
		return
	}
	e.Click(status.ConfirmNoID)
}

// Request is one call observed by the fake backend.
type Request struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Body        []byte
}

// Decode unmarshals a JSON request body.
func (r Request) Decode(t *testing.T, out any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, out); err != nil {
		t.Fatalf("decode %s %s body %q: %v", r.Method, r.Path, r.Body, err)
	}
}

// Backend is a fake game backend keyed by "METHOD /path".
type Backend struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// NewBackend starts a backend that answers 404 to unknown routes.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{t: t, routes: map[string]http.HandlerFunc{}}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the base URL.
func (b *Backend) URL() string {
	return b.srv.URL
}

// Handle installs a handler for method and path (query excluded).
func (b *Backend) Handle(method string, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// JSON answers method and path with a fixed status and JSON payload.
func (b *Backend) JSON(method string, path string, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.t.Fatalf("marshal fake payload: %v", err)
	}
	b.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(data)
	})
}

// Requests returns calls matching method and path; empty arguments match all.
func (b *Backend) Requests(method string, path string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Request
	for _, r := range b.requests {
		if (method == "" || r.Method == method) && (path == "" || r.Path == path) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of matching calls.
func (b *Backend) Count(method string, path string) int {
	return len(b.Requests(method, path))
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	h := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	h(w, r)
}
