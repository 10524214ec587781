package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Spok95/tool-requests-bot/internal/domain/catalog"
	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/infra/metrics"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

var ErrEmptySubmission = errors.New("add at least one quantity")

type API interface {
	CreateRequest(ctx context.Context, sess session.Session, items []requests.NewLine) (int64, error)
	MyRequests(ctx context.Context, sess session.Session) ([]requests.Request, error)
}

// Cache is the per-chat recent requests list.
type Cache interface {
	Prepend(ctx context.Context, chatID int64, r requests.Request) error
	Replace(ctx context.Context, chatID int64, list []requests.Request) error
	List(ctx context.Context, chatID int64) ([]requests.Request, error)
}

type Service struct {
	api   API
	cache Cache
	log   *slog.Logger
	now   func() time.Time

	refetchTimeout time.Duration
	wg             sync.WaitGroup
}

func New(api API, cache Cache, log *slog.Logger) *Service {
	return &Service{
		api:            api,
		cache:          cache,
		log:            log,
		now:            time.Now,
		refetchTimeout: 30 * time.Second,
	}
}

// Submit sends the draft as one combined request. On success the optimistic
// entry is already in the recent list and the draft is cleared; the
// authoritative list is fetched in the background. On failure the draft is
// left untouched.
func (s *Service) Submit(ctx context.Context, sess session.Session, chatID int64, d *Draft, groups []catalog.Group) (requests.Request, error) {
	items := d.Items(groups)
	if len(items) == 0 {
		metrics.Submissions.WithLabelValues("empty").Inc()
		return requests.Request{}, ErrEmptySubmission
	}

	id, err := s.api.CreateRequest(ctx, sess, Payload(items))
	if err != nil {
		metrics.Submissions.WithLabelValues("error").Inc()
		return requests.Request{}, fmt.Errorf("submit request: %w", err)
	}
	metrics.Submissions.WithLabelValues("ok").Inc()

	opt := requests.NewOptimistic(id, drafts(items), s.now())
	if err := s.cache.Prepend(ctx, chatID, opt); err != nil {
		s.log.Warn("optimistic entry not cached", "chat_id", chatID, "err", err)
	}
	d.Clear()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refetchTimeout)
		defer cancel()
		if _, err := s.refresh(bg, sess, chatID); err != nil {
			s.log.Debug("background refetch failed, keeping optimistic list", "chat_id", chatID, "err", err)
		}
	}()
	return opt, nil
}

func (s *Service) refresh(ctx context.Context, sess session.Session, chatID int64) ([]requests.Request, error) {
	list, err := s.api.MyRequests(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Replace(ctx, chatID, list); err != nil {
		s.log.Warn("recent list not cached", "chat_id", chatID, "err", err)
	}
	return list, nil
}

// Recent returns the recent requests, asking the server first when refresh is
// set. A failed refresh still returns the cached view together with the error.
func (s *Service) Recent(ctx context.Context, sess session.Session, chatID int64, refresh bool) ([]requests.Request, error) {
	if refresh {
		list, err := s.refresh(ctx, sess, chatID)
		if err == nil {
			return list, nil
		}
		cached, cerr := s.cache.List(ctx, chatID)
		if cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return cached, err
	}
	return s.cache.List(ctx, chatID)
}

// Wait blocks until background refetches are done.
func (s *Service) Wait() { s.wg.Wait() }
