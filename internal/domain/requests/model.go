package requests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Terminal approve and reject end the lifecycle
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

// Filter of the admin list; the zero value means all statuses.
type Filter string

const FilterAll Filter = ""

var Filters = []Filter{Filter(StatusPending), Filter(StatusApproved), Filter(StatusRejected), FilterAll}

// ParseFilter accepts the three statuses (any case) and "all"/"" for everything.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "pending":
		return Filter(StatusPending), nil
	case "approved":
		return Filter(StatusApproved), nil
	case "rejected":
		return Filter(StatusRejected), nil
	}
	return FilterAll, fmt.Errorf("unknown status filter %q", s)
}

func (f Filter) Label() string {
	if f == FilterAll {
		return "All"
	}
	return string(f)
}

// Person is the owner or the approver of a request.
type Person struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Facility string `json:"facility,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Line is one tool+quantity entry of a request. InStock is the stock snapshot
// taken when the list was fetched, nil when unknown (optimistic entries).
type Line struct {
	ID       int64  `json:"id"`
	LocalID  string `json:"local_id,omitempty"`
	ToolID   int64  `json:"tool_id"`
	ToolName string `json:"tool_name"`
	Quantity int    `json:"quantity"`
	InStock  *int   `json:"in_stock"`
	Status   Status `json:"status"`
}

// Stock snapshot, unknown counts as zero.
func (l Line) Stock() int {
	if l.InStock == nil {
		return 0
	}
	return *l.InStock
}

type Request struct {
	ID            int64      `json:"id"`
	LocalID       string     `json:"local_id,omitempty"`
	Optimistic    bool       `json:"optimistic,omitempty"`
	Status        Status     `json:"status"`
	User          *Person    `json:"user,omitempty"`
	Lines         []Line     `json:"lines"`
	DateRequested *Timestamp `json:"date_requested"`
	DateApproved  *Timestamp `json:"date_approved"`
	DateRejected  *Timestamp `json:"date_rejected"`
	ApprovedBy    *Person    `json:"approved_by"`
}

// UnmarshalJSON older backends name the lines requested_tools
func (r *Request) UnmarshalJSON(b []byte) error {
	type plain Request
	var aux struct {
		plain
		RequestedTools []Line `json:"requested_tools"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = Request(aux.plain)
	if r.Lines == nil && aux.RequestedTools != nil {
		r.Lines = aux.RequestedTools
	}
	return nil
}

// Ref "#12" for stored requests, the local placeholder for optimistic ones.
func (r Request) Ref() string {
	if r.ID != 0 {
		return fmt.Sprintf("#%d", r.ID)
	}
	if r.LocalID != "" {
		return "#" + shortID(r.LocalID)
	}
	return "#?"
}

func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Timestamp accepts the backend's isoformat() output, with or without zone.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func NewTimestamp(t time.Time) *Timestamp { return &Timestamp{Time: t} }

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unsupported timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Display formats in the local zone; empty for nil/zero.
func (t *Timestamp) Display(layout string) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Time.In(time.Local).Format(layout)
}
