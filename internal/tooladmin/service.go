package tooladmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/tool-requests-bot/internal/debounce"
	"github.com/Spok95/tool-requests-bot/internal/domain/tools"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

var ErrPasswordRequired = errors.New("enter the admin password to delete")

type API interface {
	Tools(ctx context.Context, sess session.Session, q string) ([]tools.Record, error)
	CreateTool(ctx context.Context, sess session.Session, f tools.Form) (tools.Record, error)
	UpdateTool(ctx context.Context, sess session.Session, id int64, f tools.Form) (tools.Record, error)
	DeleteTool(ctx context.Context, sess session.Session, id int64, password string) error
	ToolLogs(ctx context.Context, sess session.Session, id int64) ([]tools.DistributionLog, error)
	Categories(ctx context.Context, sess session.Session) ([]tools.Category, error)
}

// Deliver receives the result of a settled search.
type Deliver func(q string, list []tools.Record, err error)

type Service struct {
	api      API
	log      *slog.Logger
	searches *debounce.Group
	timeout  time.Duration
}

func New(api API, searchDelay time.Duration, log *slog.Logger) *Service {
	return &Service{
		api:      api,
		log:      log,
		searches: debounce.New(searchDelay),
		timeout:  15 * time.Second,
	}
}

// Search coalesces a burst of queries for key; only the last one reaches the
// server, once the input settles.
func (s *Service) Search(key string, sess session.Session, q string, deliver Deliver) {
	q = strings.TrimSpace(q)
	s.searches.Do(key, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		list, err := s.api.Tools(ctx, sess, q)
		if err != nil {
			s.log.Debug("tool search failed", "key", key, "q", q, "err", err)
		}
		deliver(q, list, err)
	})
}

func (s *Service) List(ctx context.Context, sess session.Session, q string) ([]tools.Record, error) {
	list, err := s.api.Tools(ctx, sess, q)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return list, nil
}

func (s *Service) Categories(ctx context.Context, sess session.Session) ([]tools.Category, error) {
	return s.api.Categories(ctx, sess)
}

// Update sends the full record.
func (s *Service) Update(ctx context.Context, sess session.Session, id int64, f tools.Form) (tools.Record, error) {
	return s.api.UpdateTool(ctx, sess, id, f)
}

func (s *Service) Create(ctx context.Context, sess session.Session, f tools.Form) (tools.Record, error) {
	return s.api.CreateTool(ctx, sess, f)
}

// Delete forwards the password; only emptiness is checked here.
func (s *Service) Delete(ctx context.Context, sess session.Session, id int64, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	return s.api.DeleteTool(ctx, sess, id, password)
}

func (s *Service) Logs(ctx context.Context, sess session.Session, id int64) ([]tools.DistributionLog, error) {
	return s.api.ToolLogs(ctx, sess, id)
}

// Close drops pending searches.
func (s *Service) Close() { s.searches.Stop() }
