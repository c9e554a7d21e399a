package importwizard

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/louisbranch/gmconsole/internal/services/console/consoletest"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/rs/zerolog"
)

func newWizard(t *testing.T) (*consoletest.Env, *Wizard) {
	t.Helper()
	env := consoletest.New(t)
	w := New(Deps{Doc: env.Doc, API: env.API, Status: env.Bar, Tr: env.I18n, Sched: env.Sched, Logger: zerolog.Nop()})
	w.Bind()
	w.Open()
	return env, w
}

func chooseFile(env *consoletest.Env, name string, data string) {
	env.Doc.Dispatch(env.Ctx, dom.Event{
		Type:   dom.EventChange,
		Target: FileID,
		Files:  []dom.File{{Name: name, ContentType: "application/octet-stream", Data: []byte(data)}},
	})
}

func fillSource(env *consoletest.Env, file string) {
	chooseFile(env, file, "chapter one")
	env.Change(NameID, " Sunless Citadel ")
	env.Change(TypeID, "module")
	env.Change(DescriptionID, "Starter dungeon")
}

func multipartFields(t *testing.T, r consoletest.Request) map[string]string {
	t.Helper()
	_, params, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		t.Fatalf("ParseMediaType(%q) error = %v", r.ContentType, err)
	}
	reader := multipart.NewReader(bytes.NewReader(r.Body), params["boundary"])
	fields := map[string]string{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return fields
		}
		if err != nil {
			t.Fatalf("NextPart() error = %v", err)
		}
		data, _ := io.ReadAll(part)
		key := part.FormName()
		if part.FileName() != "" {
			key += ":" + part.FileName()
		}
		fields[key] = string(data)
	}
}

func TestNextRequiresFileAndName(t *testing.T) {
	t.Parallel()

	env, w := newWizard(t)
	env.Change(NameID, "rules")
	env.Click(NextID)
	if w.Step() != StepSource {
		t.Fatalf("step = %d, want %d", w.Step(), StepSource)
	}
	if got, want := env.Status(), env.I18n.T("import_missing", nil); got != want {
		t.Fatalf("status = %q, want %q", got, want)
	}

	chooseFile(env, "rules.txt", "x")
	env.Change(NameID, "   ")
	env.Click(NextID)
	if w.Step() != StepSource {
		t.Fatalf("step = %d, want blank name rejected", w.Step())
	}
	if !env.Doc.ByID(BackID).Disabled() {
		t.Fatal("back enabled on the first step")
	}
}

func TestTextImportClosesWithSuccess(t *testing.T) {
	t.Parallel()

	env, w := newWizard(t)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/import-text", http.StatusOK, map[string]string{"status": "ok"})
	fillSource(env, "notes.md")

	env.Click(NextID)
	if w.Step() != StepIngest || env.Doc.ByID("import-step-1").Hidden() {
		t.Fatalf("step = %d, want ingest step shown", w.Step())
	}
	env.Click(NextID)

	reqs := env.Backend.Requests(http.MethodPost, "/api/knowledge/import-text")
	if len(reqs) != 1 {
		t.Fatalf("import calls = %d, want 1", len(reqs))
	}
	fields := multipartFields(t, reqs[0])
	if fields["kb_name"] != "Sunless Citadel" {
		t.Fatalf("kb_name = %q", fields["kb_name"])
	}
	if fields["file:notes.md"] != "chapter one" {
		t.Fatalf("fields = %v, want uploaded file", fields)
	}
	var meta apiclient.KBMetadata
	if err := json.Unmarshal([]byte(fields["metadata"]), &meta); err != nil {
		t.Fatalf("metadata %q: %v", fields["metadata"], err)
	}
	if meta.KBType != "module" || meta.Description != "Starter dungeon" {
		t.Fatalf("metadata = %+v", meta)
	}
	if env.Backend.Count(http.MethodPost, "/api/knowledge/start-image-extraction") != 0 {
		t.Fatal("image extraction started for a non-PDF")
	}
	if !env.Doc.ByID(ModalID).Hidden() {
		t.Fatal("wizard still open")
	}
	if got, want := env.Status(), env.I18n.T("import_success", map[string]string{"name": "Sunless Citadel"}); got != want {
		t.Fatalf("status = %q, want %q", got, want)
	}
}

func TestFailedImportStaysRecoverable(t *testing.T) {
	t.Parallel()

	env, w := newWizard(t)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/import-text", http.StatusBadRequest, map[string]string{"error": "duplicate name"})
	fillSource(env, "notes.txt")
	env.Click(NextID)
	env.Click(NextID)

	if w.Step() != StepIngest || w.Loading() {
		t.Fatalf("step = %d loading = %v, want ingest step idle", w.Step(), w.Loading())
	}
	if env.Doc.ByID(NextID).Disabled() || env.Doc.ByID(BackID).Disabled() {
		t.Fatal("buttons still disabled after failure")
	}
	if got := env.Status(); got != "Error: duplicate name" {
		t.Fatalf("status = %q", got)
	}
	env.Click(BackID)
	if w.Step() != StepSource {
		t.Fatalf("step = %d after back, want %d", w.Step(), StepSource)
	}
}

func TestPDFReviewLoop(t *testing.T) {
	t.Parallel()

	env, w := newWizard(t)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/import-text", http.StatusOK, nil)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/start-image-extraction", http.StatusAccepted, nil)
	env.Backend.JSON(http.MethodPut, "/api/knowledge/review-images/Sunless Citadel/map.png", http.StatusOK, nil)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/ingest-images", http.StatusOK, nil)
	var polls atomic.Int32
	env.Backend.Handle(http.MethodGet, "/api/knowledge/review-images/Sunless Citadel", func(rw http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) == 1 {
			_, _ = io.WriteString(rw, `{"status":"pending","images":[]}`)
			return
		}
		_, _ = io.WriteString(rw, `[{"filename":"map.png","url":"/img/map.png","description":"A map","classification":"map"},
			{"filename":"ogre.png","url":"/img/ogre.png","description":"","classification":"portrait"}]`)
	})
	fillSource(env, "Citadel.PDF")
	env.Click(NextID)
	env.Click(NextID)

	if w.Step() != StepReview || !w.Loading() {
		t.Fatalf("step = %d loading = %v, want polling review step", w.Step(), w.Loading())
	}
	if w.Close() {
		t.Fatal("Close() = true while polling")
	}
	if got, want := env.Status(), env.I18n.T("import_busy", nil); got != want {
		t.Fatalf("status = %q, want %q", got, want)
	}
	if env.Sched.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", env.Sched.Pending())
	}

	env.Sched.Advance(PollInterval)
	if w.Loading() || len(w.Images()) != 2 {
		t.Fatalf("loading = %v images = %d, want review of 2", w.Loading(), len(w.Images()))
	}
	if got := env.Doc.ByID(ReviewImageID).Attr("src"); got != "/img/map.png" {
		t.Fatalf("image src = %q", got)
	}
	if got := env.Doc.ByID(ReviewCounterID).Text(); got != "1 / 2" {
		t.Fatalf("counter = %q", got)
	}
	if !env.Doc.ByID(ReviewPrevID).Disabled() {
		t.Fatal("prev enabled on first image")
	}

	env.Change(ReviewDescriptionID, "Upper courtyard")
	env.Click(ReviewSaveID)
	puts := env.Backend.Requests(http.MethodPut, "/api/knowledge/review-images/Sunless Citadel/map.png")
	if len(puts) != 1 {
		t.Fatalf("PUT calls = %d, want 1", len(puts))
	}
	var update apiclient.ReviewUpdate
	puts[0].Decode(t, &update)
	if update.Description != "Upper courtyard" || update.Classification != "map" {
		t.Fatalf("update = %+v", update)
	}

	env.Click(ReviewNextID)
	if w.Index() != 1 || env.Doc.ByID(ReviewClassificationID).Value() != "portrait" {
		t.Fatalf("index = %d classification = %q", w.Index(), env.Doc.ByID(ReviewClassificationID).Value())
	}
	env.Click(ReviewPrevID)
	if got := env.Doc.ByID(ReviewDescriptionID).Value(); got != "Upper courtyard" {
		t.Fatalf("description after navigation = %q, want kept edit", got)
	}

	env.Click(NextID)
	reqs := env.Backend.Requests(http.MethodPost, "/api/knowledge/ingest-images")
	if len(reqs) != 1 {
		t.Fatalf("ingest calls = %d, want 1", len(reqs))
	}
	var body map[string]string
	reqs[0].Decode(t, &body)
	if body["kb_name"] != "Sunless Citadel" {
		t.Fatalf("ingest body = %v", body)
	}
	if !env.Doc.ByID(ModalID).Hidden() {
		t.Fatal("wizard still open after finalize")
	}
}

func TestPDFWithoutImagesCloses(t *testing.T) {
	t.Parallel()

	env, _ := newWizard(t)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/import-text", http.StatusOK, nil)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/start-image-extraction", http.StatusOK, nil)
	env.Backend.JSON(http.MethodGet, "/api/knowledge/review-images/Sunless Citadel", http.StatusOK, map[string]any{"status": "complete", "images": []any{}})
	fillSource(env, "citadel.pdf")
	env.Click(NextID)
	env.Click(NextID)

	if !env.Doc.ByID(ModalID).Hidden() {
		t.Fatal("wizard still open")
	}
	if got, want := env.Status(), env.I18n.T("import_success", map[string]string{"name": "Sunless Citadel"}); got != want {
		t.Fatalf("status = %q, want %q", got, want)
	}
	if env.Sched.Pending() != 0 {
		t.Fatalf("pending timers = %d, want 0", env.Sched.Pending())
	}
}

func TestPollingIsBounded(t *testing.T) {
	t.Parallel()

	env, w := newWizard(t)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/import-text", http.StatusOK, nil)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/start-image-extraction", http.StatusOK, nil)
	env.Backend.JSON(http.MethodGet, "/api/knowledge/review-images/Sunless Citadel", http.StatusOK, map[string]any{"status": "pending"})
	fillSource(env, "citadel.pdf")
	env.Click(NextID)
	env.Click(NextID)

	env.Sched.Advance(PollInterval * PollAttempts * 2)

	if n := env.Backend.Count(http.MethodGet, "/api/knowledge/review-images/Sunless Citadel"); n != PollAttempts {
		t.Fatalf("polls = %d, want %d", n, PollAttempts)
	}
	if w.Loading() || env.Sched.Pending() != 0 {
		t.Fatalf("loading = %v pending = %d, want idle", w.Loading(), env.Sched.Pending())
	}
	if got, want := env.Status(), env.I18n.T("import_extraction_timeout", nil); got != want {
		t.Fatalf("status = %q, want %q", got, want)
	}
	if !w.Close() {
		t.Fatal("Close() = false after polling gave up")
	}
}

func TestBackAfterIngestDoesNotReimport(t *testing.T) {
	t.Parallel()

	env, w := newWizard(t)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/import-text", http.StatusOK, nil)
	env.Backend.JSON(http.MethodPost, "/api/knowledge/start-image-extraction", http.StatusOK, nil)
	env.Backend.JSON(http.MethodGet, "/api/knowledge/review-images/Sunless Citadel", http.StatusOK, map[string]any{"status": "pending"})
	fillSource(env, "citadel.pdf")
	env.Click(NextID)
	env.Click(NextID)
	env.Sched.Advance(PollInterval * PollAttempts * 2)

	if w.Step() != StepReview || w.Loading() {
		t.Fatalf("step = %d loading = %v, want idle review step", w.Step(), w.Loading())
	}
	if !env.Doc.ByID(BackID).Disabled() {
		t.Fatal("back enabled after the text was imported")
	}
	env.Click(BackID)
	if w.Step() != StepReview {
		t.Fatalf("step after back = %d, want %d", w.Step(), StepReview)
	}
	env.Click(NextID)
	if n := env.Backend.Count(http.MethodPost, "/api/knowledge/import-text"); n != 1 {
		t.Fatalf("import-text calls = %d, want 1", n)
	}
}

func TestIngestWithoutFileReturnsToSource(t *testing.T) {
	t.Parallel()

	env, w := newWizard(t)
	fillSource(env, "notes.txt")
	env.Click(NextID)
	if w.Step() != StepIngest {
		t.Fatalf("step = %d, want %d", w.Step(), StepIngest)
	}
	env.Doc.Dispatch(env.Ctx, dom.Event{Type: dom.EventChange, Target: FileID})
	env.Click(NextID)

	if w.Step() != StepSource {
		t.Fatalf("step = %d, want %d", w.Step(), StepSource)
	}
	if env.Doc.ByID("import-step-0").Hidden() {
		t.Fatal("source step hidden")
	}
	if got, want := env.Status(), env.I18n.T("import_missing", nil); got != want {
		t.Fatalf("status = %q, want %q", got, want)
	}
	if n := env.Backend.Count("", ""); n != 0 {
		t.Fatalf("backend calls = %d, want 0", n)
	}
}
