package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/tool-requests-bot/internal/infra/metrics"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Toast struct {
	ID        string
	Target    int64
	Text      string
	Kind      Kind
	ExpiresAt time.Time
	Ref       int // renderer handle, e.g. a telegram message id
}

// Renderer shows and removes toasts on the target surface.
type Renderer interface {
	Show(ctx context.Context, t Toast) (int, error)
	Hide(ctx context.Context, t Toast) error
}

// Queue holds short-lived notifications; each one is removed after ttl.
type Queue struct {
	ttl time.Duration
	r   Renderer
	log *slog.Logger

	mu     sync.Mutex
	live   map[string]Toast
	timers map[string]*time.Timer
	closed bool
}

func NewQueue(ttl time.Duration, r Renderer, log *slog.Logger) *Queue {
	return &Queue{
		ttl:    ttl,
		r:      r,
		log:    log,
		live:   map[string]Toast{},
		timers: map[string]*time.Timer{},
	}
}

func (q *Queue) Push(ctx context.Context, target int64, text string, kind Kind) (Toast, error) {
	t := Toast{
		ID:        uuid.NewString(),
		Target:    target,
		Text:      text,
		Kind:      kind,
		ExpiresAt: time.Now().Add(q.ttl),
	}
	ref, err := q.r.Show(ctx, t)
	if err != nil {
		return Toast{}, err
	}
	t.Ref = ref

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return t, nil
	}
	q.live[t.ID] = t
	q.timers[t.ID] = time.AfterFunc(q.ttl, func() { q.expire(t.ID) })
	metrics.ActiveToasts.Inc()
	return t, nil
}

func (q *Queue) Info(ctx context.Context, target int64, text string) {
	q.push(ctx, target, text, KindInfo)
}

func (q *Queue) Success(ctx context.Context, target int64, text string) {
	q.push(ctx, target, text, KindSuccess)
}

func (q *Queue) Error(ctx context.Context, target int64, text string) {
	q.push(ctx, target, text, KindError)
}

func (q *Queue) push(ctx context.Context, target int64, text string, kind Kind) {
	if _, err := q.Push(ctx, target, text, kind); err != nil {
		q.log.Warn("toast not shown", "chat_id", target, "err", err)
	}
}

func (q *Queue) expire(id string) {
	q.mu.Lock()
	t, ok := q.live[id]
	delete(q.live, id)
	delete(q.timers, id)
	q.mu.Unlock()
	if !ok {
		return
	}
	metrics.ActiveToasts.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.r.Hide(ctx, t); err != nil {
		q.log.Debug("toast hide failed", "chat_id", t.Target, "err", err)
	}
}

// Active lists the live toasts of target, oldest first.
func (q *Queue) Active(target int64) []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Toast
	for _, t := range q.live {
		if t.Target == target {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}

// Close stops the expiry timers; live toasts are left on screen.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for id, tm := range q.timers {
		if tm.Stop() {
			metrics.ActiveToasts.Dec()
		}
		delete(q.timers, id)
		delete(q.live, id)
	}
}
