package composer

import (
	"strconv"

	"github.com/Spok95/tool-requests-bot/internal/domain/catalog"
	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/domain/tools"
)

// Draft is the sparse tool -> quantity map of one requester.
type Draft struct {
	Qty map[int64]int `json:"qty"`
}

func NewDraft() *Draft { return &Draft{Qty: map[int64]int{}} }

// Set strips non-digits from raw; an empty result unsets the tool.
func (d *Draft) Set(toolID int64, raw string) {
	d.init()
	digits := tools.Digits(raw)
	if digits == "" {
		delete(d.Qty, toolID)
		return
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		delete(d.Qty, toolID)
		return
	}
	d.Qty[toolID] = n
}

func (d *Draft) Inc(toolID int64) {
	d.init()
	d.Qty[toolID]++
}

// Dec never goes below zero; reaching zero unsets the tool.
func (d *Draft) Dec(toolID int64) {
	d.init()
	if d.Qty[toolID] <= 1 {
		delete(d.Qty, toolID)
		return
	}
	d.Qty[toolID]--
}

func (d *Draft) Get(toolID int64) (int, bool) {
	n, ok := d.Qty[toolID]
	return n, ok
}

func (d *Draft) Clear() { d.Qty = map[int64]int{} }

// Count of tools with a positive quantity.
func (d *Draft) Count() int {
	n := 0
	for _, q := range d.Qty {
		if q > 0 {
			n++
		}
	}
	return n
}

func (d *Draft) init() {
	if d.Qty == nil {
		d.Qty = map[int64]int{}
	}
}

type Item struct {
	ToolID   int64
	ToolName string
	Quantity int
}

// Items lists every catalog tool with a positive quantity, in catalog order.
func (d *Draft) Items(groups []catalog.Group) []Item {
	var out []Item
	seen := map[int64]bool{}
	for _, t := range catalog.Tools(groups) {
		if t.ID == 0 || seen[t.ID] {
			continue
		}
		if q := d.Qty[t.ID]; q > 0 {
			seen[t.ID] = true
			out = append(out, Item{ToolID: t.ID, ToolName: t.Name, Quantity: q})
		}
	}
	return out
}

// Payload drops the display names.
func Payload(items []Item) []requests.NewLine {
	out := make([]requests.NewLine, 0, len(items))
	for _, it := range items {
		out = append(out, requests.NewLine{ToolID: it.ToolID, Quantity: it.Quantity})
	}
	return out
}

func drafts(items []Item) []requests.Draft {
	out := make([]requests.Draft, 0, len(items))
	for _, it := range items {
		out = append(out, requests.Draft{ToolID: it.ToolID, ToolName: it.ToolName, Quantity: it.Quantity})
	}
	return out
}
