package dialog

import (
	"github.com/Spok95/tool-requests-bot/internal/composer"
	"github.com/Spok95/tool-requests-bot/internal/domain/catalog"
	"github.com/Spok95/tool-requests-bot/internal/domain/tools"
	"github.com/Spok95/tool-requests-bot/internal/review"
)

type State string

const (
	StateIdle State = "idle"

	// login
	StateLoginUsername State = "login_username"
	StateLoginPassword State = "login_password"

	// catalog and composer
	StateCatalog    State = "catalog"
	StateCompose    State = "compose"
	StateComposeQty State = "compose_qty" // typed quantity for ToolID
	StateMyRequests State = "my_requests"

	// admin review
	StateReview        State = "review"
	StateReviewQty     State = "review_qty"     // typed quantity for LineID
	StateReviewConfirm State = "review_confirm" // delete confirmation for Target

	// tool admin
	StateToolSearch   State = "tool_search"
	StateToolCard     State = "tool_card"
	StateToolField    State = "tool_field"    // typed value for Field
	StateToolPassword State = "tool_password" // admin password for delete
	StateToolCreate   State = "tool_create"

	StateStaff State = "staff"
)

// Payload is the per-chat screen state. Only the part of the current screen is set.
type Payload struct {
	MsgID int `json:"msg_id,omitempty"` // menu message edited in place

	OpenRow string          `json:"open_row,omitempty"` // catalog accordion key
	Groups  []catalog.Group `json:"groups,omitempty"`   // catalog as fetched when the screen opened
	Draft   *composer.Draft `json:"draft,omitempty"`
	ToolID  int64           `json:"tool_id,omitempty"`

	Board  *review.Board `json:"board,omitempty"`
	LineID int64         `json:"line_id,omitempty"`
	Target int64         `json:"target,omitempty"` // request awaiting delete confirmation

	Username string      `json:"username,omitempty"`
	Query    string      `json:"query,omitempty"`
	Form     *tools.Form `json:"form,omitempty"`
	Field    string      `json:"field,omitempty"`
}

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}
