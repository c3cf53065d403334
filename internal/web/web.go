package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"lunarcal/internal/config"
	"lunarcal/internal/ics"
	appLog "lunarcal/internal/log"
	"lunarcal/internal/model"
)

// Server publishes the latest generated calendars over HTTP.
//
//	GET /health                  unauthenticated liveness probe
//	GET /calendars               names of the available feeds
//	GET /calendars/{name}.ics    the feed itself, for calendar subscriptions
//	GET /api/events              upcoming events as JSON
type Server struct {
	store  *Store
	auth   *config.BasicAuth
	logger *appLog.Logger
	now    func() time.Time
	router *chi.Mux

	// Decoded feeds, keyed by calendar name. An entry is reused while the
	// feed's UpdatedAt is unchanged.
	eventsMu    sync.RWMutex
	eventsCache map[string]*eventsCache
}

type eventsCache struct {
	meta      model.Metadata
	events    []model.Event
	updatedAt time.Time
}

// NewServer constructs a Server. auth may be nil to disable Basic Auth.
func NewServer(store *Store, auth *config.BasicAuth, logger *appLog.Logger) *Server {
	if logger == nil {
		logger = appLog.NewNop()
	}
	s := &Server{
		store:       store,
		auth:        auth,
		logger:      logger,
		now:         time.Now,
		router:      chi.NewRouter(),
		eventsCache: map[string]*eventsCache{},
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "listen", "http://"+addr, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			r.Use(s.basicAuthMiddleware)
		}
		r.Get("/calendars", s.handleCalendars)
		r.Get("/calendars/{file}", s.handleCalendar)
		r.Get("/api/events", s.handleEvents)
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	return s.auth != nil && s.auth.Username != "" && s.auth.PasswordHash != ""
}

// basicAuthMiddleware checks the user name in constant time and the password
// against the configured bcrypt hash.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.auth.Username
	hash := []byte(s.auth.PasswordHash)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || bcrypt.CompareHashAndPassword(hash, []byte(p)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="lunarcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type calendarDTO struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleCalendars(w http.ResponseWriter, _ *http.Request) {
	feeds := s.store.List()
	out := make([]calendarDTO, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, calendarDTO{Name: f.Name, URL: "/calendars/" + f.Name + ".ics", UpdatedAt: f.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".ics")
	if !ok {
		http.NotFound(w, r)
		return
	}
	feed, ok := s.store.Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Disposition", `inline; filename="`+name+`.ics"`)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	http.ServeContent(w, r, name+".ics", feed.UpdatedAt, bytes.NewReader(feed.Body))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Calendar        string     `json:"calendar"`
	Events          []eventDTO `json:"events"`
	RangeStart      time.Time  `json:"range_start"`
	RangeEnd        time.Time  `json:"range_end"`
	DisplayTimeZone string     `json:"display_timezone"`
}

type eventDTO struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Reminders   []int     `json:"reminders"`
	Attendees   []string  `json:"attendees"`
}

// handleEvents lists a calendar's events starting within a window.
//
// GET /api/events?calendar=family&days=30
//   - calendar: feed name; may be omitted when only one feed exists
//   - days:     window length from now (default 30)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 30)
	if days <= 0 {
		days = 30
	}

	name := q.Get("calendar")
	if name == "" {
		feeds := s.store.List()
		if len(feeds) != 1 {
			writeError(w, http.StatusBadRequest, "calendar parameter is required")
			return
		}
		name = feeds[0].Name
	}

	meta, events, err := s.decoded(name)
	if err != nil {
		if errors.Is(err, errNoFeed) {
			writeError(w, http.StatusNotFound, "unknown calendar")
			return
		}
		s.logger.Error("api events: decode failed", err, "calendar", name)
		writeError(w, http.StatusInternalServerError, "failed to read calendar")
		return
	}

	loc := resolveLocationOrUTC(meta.Timezone)
	rangeStart := s.now().In(loc)
	rangeEnd := rangeStart.AddDate(0, 0, days)

	dtos := make([]eventDTO, 0)
	for _, ev := range events {
		if ev.Start.Before(rangeStart) || !ev.Start.Before(rangeEnd) {
			continue
		}
		dtos = append(dtos, eventDTO{
			UID:         ev.UID,
			Summary:     ev.Summary,
			Description: ev.Description,
			Start:       ev.Start.In(loc),
			End:         ev.End.In(loc),
			Reminders:   nonNil(ev.Reminders),
			Attendees:   nonNil(ev.Attendees),
		})
	}
	sort.SliceStable(dtos, func(i, j int) bool { return dtos[i].Start.Before(dtos[j].Start) })

	writeJSON(w, http.StatusOK, eventsResponse{
		Calendar:        name,
		Events:          dtos,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: loc.String(),
	})
}

var errNoFeed = errors.New("no such calendar")

// decoded returns the parsed events of a feed, decoding at most once per
// published version.
func (s *Server) decoded(name string) (model.Metadata, []model.Event, error) {
	feed, ok := s.store.Get(name)
	if !ok {
		return model.Metadata{}, nil, errNoFeed
	}

	s.eventsMu.RLock()
	ec := s.eventsCache[name]
	s.eventsMu.RUnlock()
	if ec != nil && ec.updatedAt.Equal(feed.UpdatedAt) {
		return ec.meta, ec.events, nil
	}

	meta, events, err := ics.Decode(bytes.NewReader(feed.Body))
	if err != nil {
		return model.Metadata{}, nil, err
	}

	s.eventsMu.Lock()
	s.eventsCache[name] = &eventsCache{meta: meta, events: events, updatedAt: feed.UpdatedAt}
	s.eventsMu.Unlock()
	return meta, events, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
