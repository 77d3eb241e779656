// Package session maps a signed browser cookie to that browser's own Dashboard.
package session

import (
	"container/list"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/config"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/dashboard"
)

// CookieName is the name of the dashboard session cookie.
const CookieName = "dashboard-session"

const keyDashboardID = "dashboard_id"

var errRegistryClosed = errors.New("session registry is closed")

// Factory builds the dashboard for a session id.
type Factory func(ctx context.Context, id string) (*dashboard.Dashboard, error)

// Registry owns the live dashboards, one per browser session. When more than
// MaxDashboards are live the least recently used one is closed; its saved
// history is restored if the browser returns.
type Registry struct {
	store   *sessions.CookieStore
	factory Factory
	limit   int
	logger  *zap.Logger

	mu         sync.Mutex
	dashboards map[string]*list.Element
	lru        *list.List // front = most recently used
	closed     bool
}

type entry struct {
	id string
	d  *dashboard.Dashboard
}

// NewRegistry creates a registry whose cookies are signed with a key derived from cfg.Secret.
// secure marks cookies HTTPS-only.
func NewRegistry(cfg config.SessionConfig, secure bool, factory Factory, logger *zap.Logger) *Registry {
	// Hash the secret to get a consistent 32-byte key
	key := sha256.Sum256([]byte(cfg.Secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAgeSeconds,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	limit := cfg.MaxDashboards
	if limit <= 0 {
		limit = 1
	}

	return &Registry{
		store:      store,
		factory:    factory,
		limit:      limit,
		logger:     logger.Named("session-registry"),
		dashboards: make(map[string]*list.Element),
		lru:        list.New(),
	}
}

// Resolve returns the dashboard bound to the request's session cookie, creating
// the session and the dashboard when needed. A new cookie is written to w.
func (r *Registry) Resolve(w http.ResponseWriter, req *http.Request) (*dashboard.Dashboard, error) {
	// A cookie that fails verification yields a fresh session, not an error.
	sess, _ := r.store.Get(req, CookieName)

	id, _ := sess.Values[keyDashboardID].(string)
	if id == "" {
		id = uuid.NewString()
		sess.Values[keyDashboardID] = id
		if err := sess.Save(req, w); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		r.logger.Debug("Started dashboard session", zap.String("dashboard_id", id))
	}

	return r.Get(req.Context(), id)
}

// Get returns the live dashboard for id, building it if necessary.
// Building and closing dashboards both touch storage, so neither runs under
// the registry lock.
func (r *Registry) Get(ctx context.Context, id string) (*dashboard.Dashboard, error) {
	if d, ok, err := r.lookup(id); ok || err != nil {
		return d, err
	}

	built, err := r.factory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard: %w", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		built.Close()
		return nil, errRegistryClosed
	}
	if el, ok := r.dashboards[id]; ok {
		// Another request built the same session first.
		r.lru.MoveToFront(el)
		existing := el.Value.(*entry).d
		r.mu.Unlock()
		built.Close()
		return existing, nil
	}
	r.dashboards[id] = r.lru.PushFront(&entry{id: id, d: built})

	var evicted []*entry
	for r.lru.Len() > r.limit {
		oldest := r.lru.Back()
		e := oldest.Value.(*entry)
		r.lru.Remove(oldest)
		delete(r.dashboards, e.id)
		evicted = append(evicted, e)
	}
	r.mu.Unlock()

	for _, e := range evicted {
		e.d.Close()
		r.logger.Debug("Evicted idle dashboard", zap.String("dashboard_id", e.id))
	}
	return built, nil
}

func (r *Registry) lookup(id string) (*dashboard.Dashboard, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, errRegistryClosed
	}
	if el, ok := r.dashboards[id]; ok {
		r.lru.MoveToFront(el)
		return el.Value.(*entry).d, true, nil
	}
	return nil, false, nil
}

// Len returns the number of live dashboards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}

// Close closes every live dashboard. Subsequent lookups fail.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	live := make([]*dashboard.Dashboard, 0, r.lru.Len())
	for el := r.lru.Front(); el != nil; el = el.Next() {
		live = append(live, el.Value.(*entry).d)
	}
	r.lru.Init()
	r.dashboards = make(map[string]*list.Element)
	r.mu.Unlock()

	for _, d := range live {
		d.Close()
	}
}
