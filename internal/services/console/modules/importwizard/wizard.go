// Package importwizard uploads a source document into a new knowledge base
// and, for PDFs, walks the user through the extracted images.
package importwizard

import (
	"context"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/eventloop"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/i18n"
	"github.com/rs/zerolog"
)

// DOM ids.
const (
	ModalID       = "import-modal"
	OverlayID     = "modal-overlay"
	CloseID       = "import-close"
	FileID        = "import-file"
	NameID        = "import-kb-name"
	TypeID        = "import-kb-type"
	DescriptionID = "import-kb-description"
	ProgressID    = "import-progress"
	BackID        = "import-back"
	NextID        = "import-next"

	ReviewImageID          = "review-image"
	ReviewCounterID        = "review-counter"
	ReviewDescriptionID    = "review-description"
	ReviewClassificationID = "review-classification"
	ReviewPrevID           = "review-prev"
	ReviewNextID           = "review-next"
	ReviewSaveID           = "review-save"
)

// Steps.
const (
	StepSource = iota
	StepIngest
	StepReview
)

// Polling of extracted images.
const (
	PollInterval = 2 * time.Second
	PollAttempts = 60
)

// API is the backend surface of the import flow.
type API interface {
	ImportText(ctx context.Context, file apiclient.FormFile, kbName string, metadata apiclient.KBMetadata) error
	StartImageExtraction(ctx context.Context, kb string) error
	ReviewImages(ctx context.Context, kb string) (apiclient.ReviewListing, error)
	UpdateReviewImage(ctx context.Context, kb string, filename string, update apiclient.ReviewUpdate) error
	IngestImages(ctx context.Context, kb string) error
}

// Status shows translated messages.
type Status interface {
	SetText(key string, isError bool, replacements map[string]string)
}

// Translator resolves button labels.
type Translator interface {
	T(key string, replacements map[string]string) string
}

// Deps are the wizard's collaborators.
type Deps struct {
	Doc    *dom.Document
	API    API
	Status Status
	Tr     Translator
	Sched  eventloop.Scheduler
	Logger zerolog.Logger
}

// Wizard owns #import-modal.
type Wizard struct {
	deps     Deps
	step     int
	file     *dom.File
	kb       string
	loading  bool
	ingested bool
	images   []apiclient.ReviewImage
	index    int
	polls    int
	poll     eventloop.Timer
}

// New returns a closed wizard.
func New(deps Deps) *Wizard {
	return &Wizard{deps: deps}
}

// Bind attaches the wizard handlers.
func (w *Wizard) Bind() {
	doc := w.deps.Doc
	doc.On(FileID, dom.EventChange, func(_ context.Context, ev dom.Event) {
		w.file = nil
		if len(ev.Files) > 0 {
			f := ev.Files[0]
			w.file = &f
		}
	})
	doc.On(NextID, dom.EventClick, func(ctx context.Context, _ dom.Event) {
		w.Next(ctx)
	})
	doc.On(BackID, dom.EventClick, func(context.Context, dom.Event) {
		w.Back()
	})
	doc.On(CloseID, dom.EventClick, func(context.Context, dom.Event) {
		w.Close()
	})
	doc.On(ReviewPrevID, dom.EventClick, func(context.Context, dom.Event) {
		w.showImage(w.index - 1)
	})
	doc.On(ReviewNextID, dom.EventClick, func(context.Context, dom.Event) {
		w.showImage(w.index + 1)
	})
	doc.On(ReviewSaveID, dom.EventClick, func(ctx context.Context, _ dom.Event) {
		_ = w.SaveImage(ctx)
	})
}

// Step returns the current step.
func (w *Wizard) Step() int {
	return w.step
}

// Loading reports whether a backend call is in flight.
func (w *Wizard) Loading() bool {
	return w.loading
}

// Open resets the wizard and shows it on the first step.
func (w *Wizard) Open() {
	w.reset()
	doc := w.deps.Doc
	doc.ByID(FileID).SetValue("")
	doc.ByID(NameID).SetValue("")
	doc.ByID(DescriptionID).SetValue("")
	doc.ByID(ModalID).Show()
	doc.ByID(OverlayID).Show()
	w.render()
}

// Close hides the wizard unless a call is in flight.
func (w *Wizard) Close() bool {
	if w.loading {
		w.deps.Status.SetText("import_busy", true, nil)
		return false
	}
	w.reset()
	w.deps.Doc.ByID(ModalID).Hide()
	w.deps.Doc.ByID(OverlayID).Hide()
	return true
}

// Back returns to the previous step.
func (w *Wizard) Back() {
	if w.loading || w.ingested || w.step == StepSource {
		return
	}
	w.stopPolling()
	w.step--
	w.render()
}

// Next advances according to the current step.
func (w *Wizard) Next(ctx context.Context) {
	if w.loading {
		return
	}
	switch w.step {
	case StepSource:
		if !w.collectSource() {
			w.deps.Status.SetText("import_missing", true, nil)
			return
		}
		w.step = StepIngest
		w.render()
	case StepIngest:
		w.ingestText(ctx)
	case StepReview:
		if len(w.images) == 0 {
			w.startPolling(ctx)
			return
		}
		w.finalize(ctx)
	}
}

func (w *Wizard) collectSource() bool {
	w.kb = strings.TrimSpace(w.deps.Doc.ByID(NameID).Value())
	return w.file != nil && w.kb != ""
}

func (w *Wizard) isPDF() bool {
	return w.file != nil && strings.EqualFold(path.Ext(w.file.Name), ".pdf")
}

func (w *Wizard) ingestText(ctx context.Context) {
	if w.file == nil {
		w.deps.Status.SetText("import_missing", true, nil)
		w.step = StepSource
		w.render()
		return
	}
	doc := w.deps.Doc
	metadata := apiclient.KBMetadata{
		KBType:      doc.ByID(TypeID).Value(),
		Description: strings.TrimSpace(doc.ByID(DescriptionID).Value()),
	}
	file := apiclient.FormFile{Field: "file", Name: w.file.Name, ContentType: w.file.ContentType, Data: w.file.Data}

	w.setLoading("import_phase_ingesting")
	err := w.deps.API.ImportText(ctx, file, w.kb, metadata)
	w.clearLoading()
	if err != nil {
		return
	}
	w.ingested = true
	w.deps.Logger.Info().Str("kb", w.kb).Str("file", w.file.Name).Msg("text imported")
	if !w.isPDF() {
		w.finish("import_success")
		return
	}

	w.step = StepReview
	w.render()
	w.setLoading("import_phase_extracting")
	if err := w.deps.API.StartImageExtraction(ctx, w.kb); err != nil {
		w.clearLoading()
		return
	}
	w.clearLoading()
	w.startPolling(ctx)
}

func (w *Wizard) startPolling(ctx context.Context) {
	w.stopPolling()
	w.polls = 0
	w.pollOnce(ctx)
}

func (w *Wizard) stopPolling() {
	if w.poll != nil {
		w.poll.Stop()
		w.poll = nil
	}
}

// pollOnce asks for the extracted images and reschedules itself while
// extraction is pending, up to PollAttempts.
func (w *Wizard) pollOnce(ctx context.Context) {
	w.poll = nil
	w.polls++
	w.setLoading("import_phase_extracting")
	listing, err := w.deps.API.ReviewImages(ctx, w.kb)
	if err != nil {
		w.clearLoading()
		return
	}
	if listing.Status == apiclient.ReviewPending {
		if w.polls < PollAttempts {
			w.poll = w.deps.Sched.AfterFunc(PollInterval, w.pollOnce)
			return
		}
		w.clearLoading()
		w.deps.Status.SetText("import_extraction_timeout", true, nil)
		return
	}
	w.clearLoading()
	if len(listing.Images) == 0 {
		w.finish("import_success")
		return
	}
	w.images = listing.Images
	w.deps.Status.SetText("import_review", false, map[string]string{"count": strconv.Itoa(len(w.images))})
	w.showImage(0)
}

// SaveImage stores the edited description and classification of the
// current image.
func (w *Wizard) SaveImage(ctx context.Context) error {
	if w.loading || w.index < 0 || w.index >= len(w.images) {
		return nil
	}
	w.keepEdits()
	img := w.images[w.index]
	w.setLoading("import_phase_saving")
	err := w.deps.API.UpdateReviewImage(ctx, w.kb, img.Filename, apiclient.ReviewUpdate{
		Description:    img.Description,
		Classification: img.Classification,
	})
	w.clearLoading()
	if err != nil {
		return err
	}
	w.deps.Status.SetText("review_saved", false, map[string]string{"name": img.Filename})
	return nil
}

func (w *Wizard) finalize(ctx context.Context) {
	w.setLoading("import_phase_finalizing")
	err := w.deps.API.IngestImages(ctx, w.kb)
	w.clearLoading()
	if err != nil {
		return
	}
	w.finish("import_images_ingested")
}

func (w *Wizard) finish(key string) {
	kb := w.kb
	w.Close()
	w.deps.Status.SetText(key, false, map[string]string{"name": kb})
}

// Images returns the images under review.
func (w *Wizard) Images() []apiclient.ReviewImage {
	return append([]apiclient.ReviewImage(nil), w.images...)
}

// Index returns the position of the image on screen.
func (w *Wizard) Index() int {
	return w.index
}

func (w *Wizard) keepEdits() {
	if w.index < 0 || w.index >= len(w.images) {
		return
	}
	doc := w.deps.Doc
	w.images[w.index].Description = doc.ByID(ReviewDescriptionID).Value()
	w.images[w.index].Classification = doc.ByID(ReviewClassificationID).Value()
}

func (w *Wizard) showImage(i int) {
	if i < 0 || i >= len(w.images) {
		return
	}
	if i != w.index {
		w.keepEdits()
	}
	w.index = i
	img := w.images[i]
	doc := w.deps.Doc
	doc.ByID(ReviewImageID).SetAttr("src", img.URL)
	doc.ByID(ReviewImageID).SetAttr("alt", img.Filename)
	doc.ByID(ReviewCounterID).SetText(strconv.Itoa(i+1) + " / " + strconv.Itoa(len(w.images)))
	doc.ByID(ReviewDescriptionID).SetValue(img.Description)
	doc.ByID(ReviewClassificationID).SetValue(img.Classification)
	doc.ByID(ReviewPrevID).SetDisabled(i == 0)
	doc.ByID(ReviewNextID).SetDisabled(i == len(w.images)-1)
	w.render()
}

func (w *Wizard) reset() {
	w.stopPolling()
	w.step = StepSource
	w.file = nil
	w.kb = ""
	w.loading = false
	w.ingested = false
	w.images = nil
	w.index = 0
	w.polls = 0
}

func (w *Wizard) setLoading(phaseKey string) {
	w.loading = true
	doc := w.deps.Doc
	w.label(doc.ByID(NextID), phaseKey)
	doc.ByID(NextID).SetDisabled(true)
	doc.ByID(BackID).SetDisabled(true)
	if w.step == StepIngest {
		w.label(doc.ByID(ProgressID), phaseKey)
	}
}

func (w *Wizard) clearLoading() {
	w.loading = false
	w.render()
}

func (w *Wizard) render() {
	doc := w.deps.Doc
	for step := StepSource; step <= StepReview; step++ {
		doc.ByID("import-step-" + strconv.Itoa(step)).SetVisible(step == w.step)
	}
	next := doc.ByID(NextID)
	switch {
	case w.step == StepSource:
		w.label(next, "wizard_next")
	case w.step == StepIngest:
		w.label(next, "import_start")
		w.label(doc.ByID(ProgressID), "import_ready")
	case len(w.images) == 0:
		w.label(next, "import_check_images")
	default:
		w.label(next, "import_finalize")
	}
	next.SetDisabled(w.loading)
	doc.ByID(BackID).SetDisabled(w.loading || w.ingested || w.step == StepSource)
}

// label sets a translated text and keeps data-i18n in sync so a later
// language change retranslates it.
func (w *Wizard) label(el *dom.Element, key string) {
	if el == nil || el.Attr(i18n.KeyAttr) == key {
		return
	}
	el.SetAttr(i18n.KeyAttr, key)
	el.SetText(w.deps.Tr.T(key, nil))
}
