package console

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/louisbranch/gmconsole/internal/platform/i18n/catalog"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/library/cache"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/shell"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/apiclient"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/dom"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/eventloop"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/i18n"
	"github.com/louisbranch/gmconsole/internal/services/console/platform/status"
	"github.com/louisbranch/gmconsole/internal/services/console/static"
)

const sessionCookieName = "gmconsole_session"

// session is one browser's console: its document, loop and components.
type session struct {
	id     string
	doc    *dom.Document
	loop   *eventloop.Loop
	log    *patchLog
	shell  *shell.Shell
	logger zerolog.Logger
	cancel context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *session) close() {
	s.cancel()
	s.loop.Close()
	s.log.close()
}

// registry owns the live sessions of one server.
type registry struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func newRegistry(cfg Config) *registry {
	return &registry{cfg: cfg, now: time.Now, sessions: map[string]*session{}}
}

// lookup returns the session named by the request cookie.
func (r *registry) lookup(req *http.Request) (*session, bool) {
	cookie, err := req.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	r.mu.Lock()
	s, ok := r.sessions[cookie.Value]
	now := r.now()
	r.mu.Unlock()
	if ok {
		s.touch(now)
	}
	return s, ok
}

// create starts a new session: parses the skeleton, wires the components and
// queues the boot sequence on its loop.
func (r *registry) create(parent context.Context) *session {
	id := uuid.NewString()
	logger := r.cfg.Logger.With().Str("session_id", id).Logger()
	doc := dom.MustParseString(static.Skeleton())
	log := newPatchLog(r.cfg.StreamBacklog)
	doc.SetFlusher(log.publish)
	loop := eventloop.New(logger, eventloop.AfterEach(func(context.Context) {
		doc.Flush()
	}))

	tr := i18n.New(doc, catalog.Default())
	bar := status.NewBar(doc, tr)
	api := apiclient.New(r.cfg.BackendURL,
		apiclient.WithHTTPClient(r.cfg.HTTPClient),
		apiclient.WithMetrics(r.cfg.Metrics),
		// Busy states reach the browser before the call blocks the loop.
		apiclient.WithBeforeRequest(func() { doc.Flush() }),
	).WithReporter(bar)

	sh := shell.New(shell.Deps{
		Doc:    doc,
		API:    api,
		I18n:   tr,
		Bar:    bar,
		Modal:  status.NewModal(doc, tr),
		Sched:  loop,
		Cache:  cache.New(r.cfg.CacheStore, id, r.cfg.Metrics, logger.With().Str("component", "cache").Logger()),
		Seed:   r.cfg.Seed,
		Logger: logger,
	})

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	r.mu.Lock()
	started := r.now()
	r.mu.Unlock()
	s := &session{
		id:       id,
		doc:      doc,
		loop:     loop,
		log:      log,
		shell:    sh,
		logger:   logger,
		cancel:   cancel,
		lastSeen: started,
	}
	go loop.Run(ctx)
	loop.Post(sh.Boot)

	r.mu.Lock()
	r.sessions[id] = s
	count := len(r.sessions)
	r.mu.Unlock()
	r.cfg.Metrics.ActiveSessions.Set(float64(count))
	logger.Info().Int("sessions", count).Msg("session started")
	return s
}

// sweep evicts sessions idle for longer than the TTL.
func (r *registry) sweep() int {
	var expired []*session
	r.mu.Lock()
	cutoff := r.now().Add(-r.cfg.SessionTTL)
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	count := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
		s.logger.Info().Msg("session expired")
	}
	r.cfg.Metrics.ActiveSessions.Set(float64(count))
	return len(expired)
}

// runSweeper evicts idle sessions every interval until ctx ends.
func (r *registry) runSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// closeAll ends every session.
func (r *registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*session{}
	r.mu.Unlock()
	for _, s := range all {
		s.close()
	}
	r.cfg.Metrics.ActiveSessions.Set(0)
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
