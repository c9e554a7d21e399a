package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
)

const (
	// maxEventBody bounds one posted event, attachments included.
	maxEventBody = 32 << 20
	// streamSinceAttr carries the patch sequence the rendered page reflects.
	streamSinceAttr = "data-stream-since"
)

var eventTypes = map[string]bool{
	dom.EventClick:     true,
	dom.EventChange:    true,
	dom.EventInput:     true,
	dom.EventKeyDown:   true,
	dom.EventMouseOver: true,
	dom.EventMouseOut:  true,
	dom.EventDrop:      true,
}

// handleEvent queues one browser event on the session loop. The response does
// not wait for the handlers; their effects arrive on the stream.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.lookup(r)
	if !ok {
		http.Error(w, "session expired", http.StatusGone)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBody)
	ev, err := decodeEvent(r)
	if err != nil {
		sess.logger.Warn().Err(err).Msg("reject event")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess.loop.Post(func(ctx context.Context) {
		sess.doc.Dispatch(ctx, ev)
	})
	s.cfg.Metrics.EventsDispatched.WithLabelValues(ev.Type).Inc()
	w.WriteHeader(http.StatusNoContent)
}

// decodeEvent reads a JSON event, or a multipart form whose "event" field is
// the JSON event and whose "files" parts are its attachments.
func decodeEvent(r *http.Request) (dom.Event, error) {
	var ev dom.Event
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxEventBody); err != nil {
			return dom.Event{}, fmt.Errorf("parse form: %w", err)
		}
		if err := json.Unmarshal([]byte(r.FormValue("event")), &ev); err != nil {
			return dom.Event{}, fmt.Errorf("decode event: %w", err)
		}
		files, err := readFiles(r)
		if err != nil {
			return dom.Event{}, err
		}
		ev.Files = files
	default:
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			return dom.Event{}, fmt.Errorf("decode event: %w", err)
		}
	}
	if !eventTypes[ev.Type] {
		return dom.Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return ev, nil
}

func readFiles(r *http.Request) ([]dom.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File["files"]
	files := make([]dom.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, dom.File{Name: fh.Filename, ContentType: contentType, Data: data})
	}
	return files, nil
}

// markStreamPosition stamps the document with the last published patch
// sequence. Runs on the loop, so every earlier batch is already published.
func markStreamPosition(sess *session) {
	sess.doc.Root().SetAttr(streamSinceAttr, strconv.FormatUint(sess.log.Seq(), 10))
	sess.doc.DropPatches()
}

// handleStream sends the session's patch batches as server-sent events. Each
// event id is the batch sequence, so a reconnecting EventSource resumes via
// Last-Event-ID. Streams that cannot resume are told to reload.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sess, ok := s.sessions.lookup(r)
	if !ok {
		writeReload(w, rc)
		return
	}
	last, err := resumePoint(r)
	if err != nil {
		writeReload(w, rc)
		return
	}

	wake, unsubscribe := sess.log.subscribe()
	defer unsubscribe()
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	_ = rc.Flush()

	for {
		batches, ok := sess.log.since(last)
		if !ok {
			writeReload(w, rc)
			return
		}
		for _, b := range batches {
			data, err := json.Marshal(b.patches)
			if err != nil {
				sess.logger.Error().Err(err).Uint64("seq", b.seq).Msg("encode patches")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", b.seq, data); err != nil {
				return
			}
			last = b.seq
			s.cfg.Metrics.PatchesStreamed.Add(float64(len(b.patches)))
		}
		if len(batches) > 0 {
			if err := rc.Flush(); err != nil {
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-s.stopping:
			return
		case <-sess.log.Done():
			writeReload(w, rc)
			return
		case <-wake:
		case <-heartbeat.C:
			sess.touch(time.Now())
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return
			}
		}
	}
}

// resumePoint prefers the EventSource Last-Event-ID over the since query the
// page was rendered with.
func resumePoint(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(r.Header.Get("Last-Event-ID"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("since"))
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func writeReload(w io.Writer, rc *http.ResponseController) {
	_, _ = io.WriteString(w, "event: reload\ndata: {}\n\n")
	_ = rc.Flush()
}
