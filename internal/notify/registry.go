// Package notify keeps the set of one-shot user notifications currently
// displayed. Posting a notification whose ID is already active is suppressed,
// so repeated failures with the same error code produce a single message.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status classifies a notification for display.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Notification is a single user-facing message. ID doubles as the
// deduplication key; error notifications use the provider error code.
type Notification struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registry tracks active notifications with a display TTL.
type Registry struct {
	ttl        time.Duration
	suppressed prometheus.Counter

	mu     sync.Mutex
	active map[string]Notification
	now    func() time.Time
}

// DefaultTTL approximates how long a toast stays on screen.
const DefaultTTL = 5 * time.Second

// NewRegistry creates a registry. suppressed may be nil; ttl <= 0 falls back
// to DefaultTTL.
func NewRegistry(ttl time.Duration, suppressed prometheus.Counter) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:        ttl,
		suppressed: suppressed,
		active:     make(map[string]Notification),
		now:        time.Now,
	}
}

// Notify records a notification unless one with the same ID is still active.
// It returns false when the notification was suppressed as a duplicate.
func (r *Registry) Notify(id string, status Status, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.purgeLocked(now)

	if _, exists := r.active[id]; exists {
		if r.suppressed != nil {
			r.suppressed.Inc()
		}
		return false
	}

	r.active[id] = Notification{ID: id, Status: status, Message: message, CreatedAt: now}
	return true
}

// Active returns the notifications still within their TTL, oldest first.
func (r *Registry) Active() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeLocked(r.now())

	out := make([]Notification, 0, len(r.active))
	for _, n := range r.active {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Dismiss removes a notification before its TTL expires.
func (r *Registry) Dismiss(id string) {
	r.mu.Lock()
	delete(r.active, id)
	r.mu.Unlock()
}

func (r *Registry) purgeLocked(now time.Time) {
	for id, n := range r.active {
		if now.Sub(n.CreatedAt) >= r.ttl {
			delete(r.active, id)
		}
	}
}
