package requests

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotPending      = errors.New("only pending requests can be changed")
	ErrUnknownLine     = errors.New("line not found on this request")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
)

// LineUpdate is one entry of the batched edit payload.
type LineUpdate struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// NewLine is one entry of a submission payload.
type NewLine struct {
	ToolID   int64 `json:"tool_id"`
	Quantity int   `json:"quantity"`
}

func (r *Request) Pending() bool { return r.Status == StatusPending }

func (r *Request) CanEdit() bool   { return r.Pending() }
func (r *Request) CanReject() bool { return r.Pending() }
func (r *Request) CanDelete() bool { return r.Pending() }

// CanApprove pending and no line over its stock snapshot.
func (r *Request) CanApprove(quantities map[int64]int) bool {
	return r.Pending() && !r.ExceedsStock(quantities)
}

// StockViolations lines whose effective quantity is above the in_stock snapshot.
// quantities overrides line quantities by line id (edit drafts), nil uses the lines as is.
// Never cached: callers recompute on every render.
func (r *Request) StockViolations(quantities map[int64]int) []Line {
	var out []Line
	for _, ln := range r.Lines {
		q := ln.Quantity
		if v, ok := quantities[ln.ID]; ok {
			q = v
		}
		if q > ln.Stock() {
			out = append(out, ln)
		}
	}
	return out
}

func (r *Request) ExceedsStock(quantities map[int64]int) bool {
	return len(r.StockViolations(quantities)) > 0
}

func (r *Request) Approve(by Person, at time.Time) error {
	if !r.Pending() {
		return fmt.Errorf("approve %s: %w", r.Ref(), ErrNotPending)
	}
	r.setStatus(StatusApproved)
	r.DateApproved = NewTimestamp(at)
	r.ApprovedBy = &by
	return nil
}

func (r *Request) Reject(by Person, at time.Time) error {
	if !r.Pending() {
		return fmt.Errorf("reject %s: %w", r.Ref(), ErrNotPending)
	}
	r.setStatus(StatusRejected)
	r.DateRejected = NewTimestamp(at)
	r.ApprovedBy = &by
	return nil
}

// ApplyEdit validates the whole batch before touching any line.
func (r *Request) ApplyEdit(updates []LineUpdate) error {
	if !r.Pending() {
		return fmt.Errorf("edit %s: %w", r.Ref(), ErrNotPending)
	}
	idx := make(map[int64]int, len(r.Lines))
	for i, ln := range r.Lines {
		idx[ln.ID] = i
	}
	for _, u := range updates {
		if _, ok := idx[u.ID]; !ok {
			return fmt.Errorf("line %d: %w", u.ID, ErrUnknownLine)
		}
		if u.Quantity <= 0 {
			return fmt.Errorf("line %d: %w", u.ID, ErrInvalidQuantity)
		}
	}
	for _, u := range updates {
		r.Lines[idx[u.ID]].Quantity = u.Quantity
	}
	return nil
}

// lines always mirror the parent
func (r *Request) setStatus(s Status) {
	r.Status = s
	for i := range r.Lines {
		r.Lines[i].Status = s
	}
}

// Draft is what the composer hands over for the optimistic entry.
type Draft struct {
	ToolID   int64
	ToolName string
	Quantity int
}

// NewOptimistic builds the local stand-in shown right after a successful
// submission. serverID is 0 when the backend did not echo an id.
func NewOptimistic(serverID int64, items []Draft, at time.Time) Request {
	r := Request{
		ID:            serverID,
		Optimistic:    true,
		Status:        StatusPending,
		DateRequested: NewTimestamp(at),
		Lines:         make([]Line, 0, len(items)),
	}
	if serverID == 0 {
		r.LocalID = uuid.NewString()
	}
	for _, it := range items {
		r.Lines = append(r.Lines, Line{
			LocalID:  uuid.NewString(),
			ToolID:   it.ToolID,
			ToolName: it.ToolName,
			Quantity: it.Quantity,
			Status:   StatusPending,
		})
	}
	return r
}
