package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tool-requests-bot/internal/composer"
	"github.com/Spok95/tool-requests-bot/internal/domain/catalog"
	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/domain/tools"
	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/review"
)

const dateLayout = "02 Jan 2006 15:04"

func fold(open bool) string {
	if open {
		return "▾"
	}
	return "▸"
}

/*** catalog ***/

func catalogView(rows []catalog.Row, open string) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(rows) == 0 {
		return "Tool catalog\n\n" + catalog.EmptyText, markup(row(button("🔄 Reload", "cat:reload")))
	}
	var sb strings.Builder
	sb.WriteString("Tool catalog")
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows)+1)
	for i, r := range rows {
		isOpen := r.Key == open
		fmt.Fprintf(&sb, "\n\n%s %s (%d)", fold(isOpen), r.Label, len(r.Tools))
		if isOpen {
			if r.Empty {
				sb.WriteString("\n   " + catalog.EmptyGroupText)
			}
			for _, t := range r.Tools {
				fmt.Fprintf(&sb, "\n   • %s — %d in stock", toolName(t), t.Quantity)
				if d := strings.TrimSpace(t.Description); d != "" {
					fmt.Fprintf(&sb, "\n     %s", d)
				}
			}
		}
		kb = append(kb, row(button(fold(isOpen)+" "+r.Label, "cat:open:"+strconv.Itoa(i))))
	}
	kb = append(kb, row(button("🔄 Reload", "cat:reload")))
	return sb.String(), markup(kb...)
}

func toolName(t catalog.Tool) string {
	if n := strings.TrimSpace(t.Name); n != "" {
		return n
	}
	return "Unnamed tool"
}

/*** composer ***/

func composerView(groups []catalog.Group, open string, d *composer.Draft) (string, tgbotapi.InlineKeyboardMarkup) {
	rows := catalog.Project(groups)
	items := d.Items(groups)

	var sb strings.Builder
	sb.WriteString("New request")
	if len(items) == 0 {
		sb.WriteString("\n\nNothing selected yet. Open a category and set quantities.")
	} else {
		sb.WriteString("\n\nSelected:")
		for _, it := range items {
			fmt.Fprintf(&sb, "\n • %s × %d", it.ToolName, it.Quantity)
		}
	}
	if len(rows) == 0 {
		sb.WriteString("\n\n" + catalog.EmptyText)
	}

	var kb [][]tgbotapi.InlineKeyboardButton
	for i, r := range rows {
		isOpen := r.Key == open
		kb = append(kb, row(button(fold(isOpen)+" "+r.Label, "cmp:open:"+strconv.Itoa(i))))
		if !isOpen {
			continue
		}
		if r.Empty {
			fmt.Fprintf(&sb, "\n\n%s: %s", r.Label, catalog.EmptyGroupText)
		}
		for _, t := range r.Tools {
			if t.ID == 0 {
				continue
			}
			q, _ := d.Get(t.ID)
			id := strconv.FormatInt(t.ID, 10)
			kb = append(kb, row(
				button(fmt.Sprintf("%s: %d (stock %d)", toolName(t), q, t.Quantity), "cmp:qty:"+id),
				button("➖", "cmp:dec:"+id),
				button("➕", "cmp:inc:"+id),
			))
		}
	}
	kb = append(kb,
		row(button("📨 Submit", "cmp:submit"), button("🧹 Clear", "cmp:clear")),
		cancelRow(),
	)
	return sb.String(), markup(kb...)
}

/*** my requests ***/

// approvalMeta "Approved: <date> • by <name>" for terminal requests.
func approvalMeta(r requests.Request) string {
	var label string
	var at *requests.Timestamp
	switch r.Status {
	case requests.StatusApproved:
		label, at = "Approved", r.DateApproved
	case requests.StatusRejected:
		label, at = "Rejected", r.DateRejected
	default:
		return ""
	}
	s := label + ":"
	if d := at.Display(dateLayout); d != "" {
		s += " " + d
	}
	if r.ApprovedBy != nil && strings.TrimSpace(r.ApprovedBy.Name) != "" {
		s += " • by " + r.ApprovedBy.Name
	}
	return s
}

func requestHeader(r requests.Request) string {
	s := fmt.Sprintf("%s • %s", r.Ref(), r.Status)
	if d := r.DateRequested.Display(dateLayout); d != "" {
		s += " • " + d
	}
	return s
}

func myRequestsView(list []requests.Request) (string, tgbotapi.InlineKeyboardMarkup) {
	kb := markup(row(button("🔄 Refresh", "my:refresh")))
	if len(list) == 0 {
		return "My recent requests\n\nNo requests yet.", kb
	}
	var sb strings.Builder
	sb.WriteString("My recent requests")
	for _, r := range list {
		sb.WriteString("\n\n" + requestHeader(r))
		if r.Optimistic {
			sb.WriteString(" (syncing…)")
		}
		for _, ln := range r.Lines {
			fmt.Fprintf(&sb, "\n   – %s × %d", ln.ToolName, ln.Quantity)
		}
		if meta := approvalMeta(r); meta != "" {
			sb.WriteString("\n   " + meta)
		}
	}
	return sb.String(), kb
}

/*** review ***/

func filterData(f requests.Filter) string {
	return "rv:f:" + strings.ToLower(f.Label())
}

func requester(r requests.Request) string {
	if r.User == nil {
		return "—"
	}
	name := strings.TrimSpace(r.User.Name)
	if name == "" {
		name = r.User.Username
	}
	if r.User.Facility != "" {
		name += " (" + r.User.Facility + ")"
	}
	return name
}

func reviewView(b *review.Board) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Requests • %s (%d)", b.Filter.Label(), len(b.Rows))

	filters := make([]tgbotapi.InlineKeyboardButton, 0, len(requests.Filters))
	for _, f := range requests.Filters {
		label := f.Label()
		if f == b.Filter {
			label = "• " + label
		}
		filters = append(filters, button(label, filterData(f)))
	}
	kb := [][]tgbotapi.InlineKeyboardButton{filters}

	if len(b.Rows) == 0 {
		sb.WriteString("\n\nNo requests.")
	}
	for i := range b.Rows {
		r := &b.Rows[i]
		isOpen := b.OpenID == r.ID
		id := strconv.FormatInt(r.ID, 10)
		kb = append(kb, row(button(
			fmt.Sprintf("%s %s %s • %s", fold(isOpen), r.Ref(), requester(*r), r.Status), "rv:open:"+id)))
		if !isOpen {
			continue
		}
		sb.WriteString("\n\n" + requestCard(b, r))
		kb = append(kb, requestControls(b, r)...)
	}
	kb = append(kb, row(button("🔄 Reload", "rv:reload"), button("📊 Export", "rv:xlsx")))
	return sb.String(), markup(kb...)
}

func requestCard(b *review.Board, r *requests.Request) string {
	var sb strings.Builder
	sb.WriteString(requestHeader(*r))
	sb.WriteString("\nBy: " + requester(*r))
	eff := b.Effective(r)
	over := map[int64]bool{}
	for _, ln := range b.Violations(r) {
		over[ln.ID] = true
	}
	for _, ln := range r.Lines {
		q := ln.Quantity
		if v, ok := eff[ln.ID]; ok {
			q = v
		}
		fmt.Fprintf(&sb, "\n   – %s × %d", ln.ToolName, q)
		if b.IsEditing(r.ID) && q != ln.Quantity {
			fmt.Fprintf(&sb, " (was %d)", ln.Quantity)
		}
		if r.Pending() {
			fmt.Fprintf(&sb, " • in stock %d", ln.Stock())
			if over[ln.ID] {
				sb.WriteString(" ⚠️ exceeds stock")
			}
		}
	}
	if meta := approvalMeta(*r); meta != "" {
		sb.WriteString("\n" + meta)
	}
	if r.Pending() && b.ApproveBlocked(r) {
		sb.WriteString("\n" + review.StockHint)
	}
	return sb.String()
}

// requestControls are only offered for pending requests.
func requestControls(b *review.Board, r *requests.Request) [][]tgbotapi.InlineKeyboardButton {
	if !r.Pending() {
		return nil
	}
	id := strconv.FormatInt(r.ID, 10)
	approve := "✅ Approve"
	if b.ApproveBlocked(r) {
		approve = "🚫 Approve"
	}
	var kb [][]tgbotapi.InlineKeyboardButton
	if b.IsEditing(r.ID) {
		eff := b.Effective(r)
		for _, ln := range r.Lines {
			kb = append(kb, row(button(
				fmt.Sprintf("✏️ %s: %d", ln.ToolName, eff[ln.ID]),
				"rv:line:"+strconv.FormatInt(ln.ID, 10))))
		}
		kb = append(kb, row(button("💾 Save", "rv:save:"+id), button("↩️ Cancel edit", "rv:cancel:"+id)))
	} else {
		kb = append(kb, row(button("✏️ Edit", "rv:edit:"+id)))
	}
	kb = append(kb,
		row(button(approve, "rv:ok:"+id), button("⛔ Reject", "rv:no:"+id)),
		row(button("🗑 Delete", "rv:del:"+id)),
	)
	return kb
}

func deleteConfirmView(r *requests.Request) (string, tgbotapi.InlineKeyboardMarkup) {
	id := strconv.FormatInt(r.ID, 10)
	text := fmt.Sprintf("Delete request %s from %s? This cannot be undone.", r.Ref(), requester(*r))
	return text, markup(row(button("🗑 Yes, delete", "rv:delyes:"+id), button("↩️ No", "rv:delno:"+id)))
}

/*** tools ***/

func toolsView(q string, list []tools.Record) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString("Tools")
	if q != "" {
		fmt.Fprintf(&sb, " • search %q", q)
	}
	sb.WriteString("\nType a message to search by name.")
	if len(list) == 0 {
		sb.WriteString("\n\nNo tools found.")
	}
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(list)+2)
	for _, t := range list {
		cat := t.Category
		if cat == "" {
			cat = "—"
		}
		fmt.Fprintf(&sb, "\n• %s — %d (%s)", t.Name, t.Quantity, cat)
		kb = append(kb, row(button(fmt.Sprintf("%s (%d)", t.Name, t.Quantity), "tl:open:"+strconv.FormatInt(t.ID, 10))))
	}
	kb = append(kb, row(button("➕ New tool", "tl:new")), cancelRow())
	return sb.String(), markup(kb...)
}

func toolCardView(id int64, f tools.Form) (string, tgbotapi.InlineKeyboardMarkup) {
	title := "New tool"
	if id != 0 {
		title = fmt.Sprintf("Tool #%d", id)
	}
	text := fmt.Sprintf("%s\n\nName: %s\nDescription: %s\nQuantity: %d\nCategory: %s",
		title, dash(f.Name), dash(f.Description), f.Quantity, dash(f.Category))

	kb := [][]tgbotapi.InlineKeyboardButton{
		row(button("✏️ Name", "tl:field:"+tools.FieldName), button("✏️ Description", "tl:field:"+tools.FieldDescription)),
		row(button("✏️ Quantity", "tl:field:"+tools.FieldQuantity), button("✏️ Category", "tl:field:"+tools.FieldCategory)),
		row(button("💾 Save", "tl:save")),
	}
	if id != 0 {
		sid := strconv.FormatInt(id, 10)
		kb = append(kb, row(button("📜 Logs", "tl:logs:"+sid), button("🗑 Delete", "tl:del:"+sid)))
	}
	kb = append(kb, row(button("⬅️ Back", "tl:list")))
	return text, markup(kb...)
}

func categoryPickView(field string, cats []tools.Category) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("Enter the %s, or pick one below:", field)
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(cats)+1)
	for _, c := range cats {
		kb = append(kb, row(button(c.Name, "tl:setcat:"+strconv.FormatInt(c.ID, 10))))
	}
	kb = append(kb, cancelRow())
	return text, markup(kb...)
}

func logsView(id int64, name string, logs []tools.DistributionLog) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Distribution log: %s", dash(name))
	if len(logs) == 0 {
		sb.WriteString("\n\nNo distributions yet.")
	}
	for _, l := range logs {
		fmt.Fprintf(&sb, "\n• %s • %s • %s • %d",
			dash(l.Date.Display(dateLayout)), dash(l.Facility), dash(l.UserName), l.Quantity)
	}
	return sb.String(), markup(row(button("⬅️ Back", "tl:open:"+strconv.FormatInt(id, 10))))
}

/*** staff ***/

func staffView(list []users.User) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Staff (%d)", len(list))
	if len(list) == 0 {
		sb.WriteString("\n\nNo staff yet.")
	}
	for _, u := range list {
		fmt.Fprintf(&sb, "\n• %s", u.DisplayName())
		if u.Username != "" {
			fmt.Fprintf(&sb, " (@%s)", u.Username)
		}
		fmt.Fprintf(&sb, " — %s — %s", dash(u.Facility), u.RoleLabel())
	}
	return sb.String(), markup(row(button("🔄 Reload", "st:reload")))
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
