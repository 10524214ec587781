package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Spok95/tool-requests-bot/internal/apiclient"
	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/infra/metrics"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

const StockHint = "Edit quantities to not exceed stock before approving."

var (
	ErrNotPending        = requests.ErrNotPending
	ErrApproveBlocked    = errors.New("approval blocked: a line exceeds stock")
	ErrNotConfirmed      = errors.New("delete was not confirmed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("request is no longer in the list")
	ErrNotEditing        = errors.New("request is not being edited")
)

type API interface {
	AdminRequests(ctx context.Context, sess session.Session, filter requests.Filter) ([]requests.Request, error)
	ApproveRequest(ctx context.Context, sess session.Session, id int64) error
	RejectRequest(ctx context.Context, sess session.Session, id int64) error
	EditRequest(ctx context.Context, sess session.Session, id int64, lines []requests.LineUpdate) error
	DeleteRequest(ctx context.Context, sess session.Session, id int64) error
}

type Service struct {
	api API
	log *slog.Logger
	now func() time.Time
}

func New(api API, log *slog.Logger) *Service {
	return &Service{api: api, log: log, now: time.Now}
}

// Load replaces the rows; on failure the previous rows stay.
func (s *Service) Load(ctx context.Context, sess session.Session, b *Board) error {
	list, err := s.api.AdminRequests(ctx, sess, b.Filter)
	if err != nil {
		return fmt.Errorf("load requests: %w", err)
	}
	b.Rows = list
	if b.Editing != 0 {
		if req := b.Find(b.Editing); req == nil || !req.CanEdit() {
			b.CancelEdit()
		}
	}
	if b.OpenID != 0 && b.Find(b.OpenID) == nil {
		b.OpenID = 0
	}
	return nil
}

func (s *Service) reload(ctx context.Context, sess session.Session, b *Board) {
	if err := s.Load(ctx, sess, b); err != nil {
		s.log.Warn("reload after review action failed", "err", err)
	}
}

func (s *Service) pending(b *Board, id int64) (*requests.Request, error) {
	req := b.Find(id)
	if req == nil {
		return nil, ErrNotFound
	}
	if !req.Pending() {
		return nil, fmt.Errorf("request %s: %w", req.Ref(), ErrNotPending)
	}
	return req, nil
}

// SaveEdit sends every line in one batch. On failure the draft is kept.
func (s *Service) SaveEdit(ctx context.Context, sess session.Session, b *Board, id int64) error {
	if !b.IsEditing(id) {
		return ErrNotEditing
	}
	req, err := s.pending(b, id)
	if err != nil {
		return err
	}
	lines := b.EditedLines(req)
	err = s.api.EditRequest(ctx, sess, id, lines)
	metrics.Reviews.WithLabelValues("edit", metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}
	if err := req.ApplyEdit(lines); err != nil {
		s.log.Warn("local edit not applied", "request_id", id, "err", err)
	}
	b.CancelEdit()
	s.reload(ctx, sess, b)
	return nil
}

// Approve saves a dirty edit of the same request first, so the server sees
// the quantities the stock check passed on.
func (s *Service) Approve(ctx context.Context, sess session.Session, b *Board, id int64) error {
	req, err := s.pending(b, id)
	if err != nil {
		return err
	}
	if b.ApproveBlocked(req) {
		return ErrApproveBlocked
	}
	if b.Dirty(req) {
		if err := s.SaveEdit(ctx, sess, b, id); err != nil {
			return err
		}
		if req, err = s.pending(b, id); err != nil {
			return err
		}
		if b.ApproveBlocked(req) {
			return ErrApproveBlocked
		}
	}

	err = s.api.ApproveRequest(ctx, sess, id)
	metrics.Reviews.WithLabelValues("approve", metrics.Outcome(err)).Inc()
	if err != nil {
		if isInsufficientStock(err) {
			return fmt.Errorf("%w: %w", ErrInsufficientStock, err)
		}
		return err
	}
	if err := req.Approve(approver(sess), s.now()); err != nil {
		s.log.Warn("local approve not applied", "request_id", id, "err", err)
	}
	if b.IsEditing(id) {
		b.CancelEdit()
	}
	s.reload(ctx, sess, b)
	return nil
}

func (s *Service) Reject(ctx context.Context, sess session.Session, b *Board, id int64) error {
	req, err := s.pending(b, id)
	if err != nil {
		return err
	}
	err = s.api.RejectRequest(ctx, sess, id)
	metrics.Reviews.WithLabelValues("reject", metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}
	if err := req.Reject(approver(sess), s.now()); err != nil {
		s.log.Warn("local reject not applied", "request_id", id, "err", err)
	}
	if b.IsEditing(id) {
		b.CancelEdit()
	}
	s.reload(ctx, sess, b)
	return nil
}

// Delete issues no call unless confirmed.
func (s *Service) Delete(ctx context.Context, sess session.Session, b *Board, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if _, err := s.pending(b, id); err != nil {
		return err
	}
	err := s.api.DeleteRequest(ctx, sess, id)
	metrics.Reviews.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	if err != nil {
		return err
	}
	for i := range b.Rows {
		if b.Rows[i].ID == id {
			b.Rows = append(b.Rows[:i], b.Rows[i+1:]...)
			break
		}
	}
	if b.IsEditing(id) {
		b.CancelEdit()
	}
	if b.OpenID == id {
		b.OpenID = 0
	}
	s.reload(ctx, sess, b)
	return nil
}

func isInsufficientStock(err error) bool {
	var apiErr *apiclient.Error
	return errors.As(err, &apiErr) &&
		apiErr.Status == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Detail), "insufficient stock")
}

func approver(sess session.Session) requests.Person {
	return requests.Person{
		ID:       sess.User.ID,
		Name:     sess.User.DisplayName(),
		Username: sess.User.Username,
		Facility: sess.User.Facility,
		Email:    sess.User.Email,
	}
}

// Message is the toast text for a review error.
func Message(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		msg := apiclient.Message(err, "Insufficient stock.")
		if !strings.Contains(strings.ToLower(msg), "edit quantit") {
			msg += " " + StockHint
		}
		return msg
	case errors.Is(err, ErrApproveBlocked):
		return StockHint
	case errors.Is(err, ErrNotPending):
		return "Only pending requests can be changed."
	case errors.Is(err, ErrNotConfirmed):
		return "Delete cancelled."
	case errors.Is(err, ErrNotFound):
		return "Request not found, reload the list."
	case errors.Is(err, ErrNotEditing):
		return "Start editing the request first."
	case errors.Is(err, requests.ErrInvalidQuantity):
		return "Enter a valid quantity."
	}
	return apiclient.Message(err, fallback)
}
