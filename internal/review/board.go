package review

import (
	"fmt"
	"strconv"

	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/domain/tools"
)

// Board is the admin review screen state of one chat.
type Board struct {
	Filter  requests.Filter    `json:"filter"`
	Rows    []requests.Request `json:"rows"`
	Editing int64              `json:"editing,omitempty"`
	Draft   map[int64]string   `json:"draft,omitempty"`
	OpenID  int64              `json:"open_id,omitempty"`
}

func NewBoard() *Board { return &Board{Filter: requests.Filter(requests.StatusPending)} }

func (b *Board) Find(id int64) *requests.Request {
	for i := range b.Rows {
		if b.Rows[i].ID == id {
			return &b.Rows[i]
		}
	}
	return nil
}

// Toggle opens the row, or closes it when it is already open.
func (b *Board) Toggle(id int64) {
	if b.OpenID == id {
		b.OpenID = 0
		return
	}
	b.OpenID = id
}

// BeginEdit seeds the draft with the current line quantities.
func (b *Board) BeginEdit(id int64) error {
	req := b.Find(id)
	if req == nil {
		return ErrNotFound
	}
	if !req.CanEdit() {
		return ErrNotPending
	}
	b.Editing = id
	b.Draft = make(map[int64]string, len(req.Lines))
	for _, ln := range req.Lines {
		b.Draft[ln.ID] = strconv.Itoa(ln.Quantity)
	}
	return nil
}

// SetDraft stores the digits of raw for a line of the request being edited.
func (b *Board) SetDraft(lineID int64, raw string) error {
	req := b.Find(b.Editing)
	if b.Editing == 0 || req == nil {
		return ErrNotEditing
	}
	for _, ln := range req.Lines {
		if ln.ID == lineID {
			digits := tools.Digits(raw)
			if digits != "" {
				if _, err := strconv.Atoi(digits); err != nil {
					return fmt.Errorf("line %d: %w", lineID, requests.ErrInvalidQuantity)
				}
			}
			if b.Draft == nil {
				b.Draft = map[int64]string{}
			}
			b.Draft[lineID] = digits
			return nil
		}
	}
	return requests.ErrUnknownLine
}

func (b *Board) CancelEdit() {
	b.Editing = 0
	b.Draft = nil
}

func (b *Board) IsEditing(id int64) bool { return id != 0 && b.Editing == id }

// EditedLines has one entry per original line; untouched or empty drafts keep
// the original quantity.
func (b *Board) EditedLines(req *requests.Request) []requests.LineUpdate {
	out := make([]requests.LineUpdate, 0, len(req.Lines))
	for _, ln := range req.Lines {
		q := ln.Quantity
		if b.IsEditing(req.ID) {
			if raw := b.Draft[ln.ID]; raw != "" {
				if n, err := strconv.Atoi(raw); err == nil {
					q = n
				}
			}
		}
		out = append(out, requests.LineUpdate{ID: ln.ID, Quantity: q})
	}
	return out
}

// Effective quantities used by the stock check; nil unless req is being edited.
func (b *Board) Effective(req *requests.Request) map[int64]int {
	if !b.IsEditing(req.ID) {
		return nil
	}
	out := make(map[int64]int, len(req.Lines))
	for _, u := range b.EditedLines(req) {
		out[u.ID] = u.Quantity
	}
	return out
}

// ApproveBlocked is recomputed on every call, never stored.
func (b *Board) ApproveBlocked(req *requests.Request) bool {
	return req.ExceedsStock(b.Effective(req))
}

func (b *Board) Violations(req *requests.Request) []requests.Line {
	return req.StockViolations(b.Effective(req))
}

// Dirty reports unsaved draft changes on req.
func (b *Board) Dirty(req *requests.Request) bool {
	if !b.IsEditing(req.ID) {
		return false
	}
	for i, u := range b.EditedLines(req) {
		if u.Quantity != req.Lines[i].Quantity {
			return true
		}
	}
	return false
}
