package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tool-requests-bot/internal/dialog"
	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/report"
	"github.com/Spok95/tool-requests-bot/internal/review"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

/*** my requests ***/

func (b *Bot) showMyRequests(ctx context.Context, chatID int64, editMsgID *int) {
	sess, ok := b.session(ctx, chatID)
	if !ok {
		return
	}
	list, err := b.composer.Recent(ctx, sess, chatID, true)
	if err != nil {
		b.apiFailed(ctx, chatID, err, "Failed to load your requests")
		if list == nil {
			return
		}
	}
	st := b.state(ctx, chatID)
	p := carry(st.Payload)
	text, kb := myRequestsView(list)
	p.MsgID = b.screen(chatID, editMsgID, text, kb)
	b.setState(ctx, chatID, dialog.StateMyRequests, p)
}

func (b *Bot) onMyRequestsCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, _ string) {
	b.showMyRequests(ctx, cb.Message.Chat.ID, &cb.Message.MessageID)
	_ = b.answerCallback(cb, "", false)
}

/*** review ***/

func boardOf(st *dialog.Item) *review.Board {
	if st.Payload.Board == nil {
		return review.NewBoard()
	}
	return st.Payload.Board
}

func (b *Bot) renderReview(ctx context.Context, chatID int64, editMsgID *int, st *dialog.Item, board *review.Board) {
	p := carry(st.Payload)
	p.Board = board
	text, kb := reviewView(board)
	p.MsgID = b.screen(chatID, editMsgID, text, kb)
	b.setState(ctx, chatID, dialog.StateReview, p)
}

// showReview loads the board; a nil board starts on the pending filter.
func (b *Bot) showReview(ctx context.Context, chatID int64, editMsgID *int, board *review.Board) {
	sess, ok := b.adminSession(ctx, chatID)
	if !ok {
		return
	}
	st := b.state(ctx, chatID)
	if board == nil {
		board = boardOf(st)
	}
	if err := b.review.Load(ctx, sess, board); err != nil {
		// rows keep their previous value
		b.apiFailed(ctx, chatID, err, "Failed to load requests")
	}
	b.renderReview(ctx, chatID, editMsgID, st, board)
}

func (b *Bot) onReviewCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data string) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	sess, ok := b.adminSession(ctx, chatID)
	if !ok {
		_ = b.answerCallback(cb, "", false)
		return
	}
	st := b.state(ctx, chatID)
	board := boardOf(st)
	action, arg := parseData(data)
	id := parseID(arg)

	switch action {
	case "f":
		f, err := requests.ParseFilter(arg)
		if err != nil {
			_ = b.answerCallback(cb, "Unknown filter", false)
			return
		}
		board.Filter = f
		board.OpenID = 0
		board.CancelEdit()
		b.showReview(ctx, chatID, &msgID, board)

	case "reload":
		b.showReview(ctx, chatID, &msgID, board)

	case "open":
		board.Toggle(id)
		b.renderReview(ctx, chatID, &msgID, st, board)

	case "edit":
		if err := board.BeginEdit(id); err != nil {
			b.toasts.Error(ctx, chatID, review.Message(err, "Cannot edit this request"))
		}
		board.OpenID = id
		b.renderReview(ctx, chatID, &msgID, st, board)

	case "cancel":
		board.CancelEdit()
		b.renderReview(ctx, chatID, &msgID, st, board)

	case "line":
		b.askLineQty(ctx, chatID, msgID, st, board, id)

	case "save":
		if err := b.review.SaveEdit(ctx, sess, board, id); err != nil {
			b.reviewFailed(ctx, chatID, err, "Failed to save changes")
		} else {
			b.toasts.Success(ctx, chatID, fmt.Sprintf("Request #%d updated.", id))
		}
		b.renderReview(ctx, chatID, &msgID, st, board)

	case "ok":
		err := b.review.Approve(ctx, sess, board, id)
		if errors.Is(err, review.ErrApproveBlocked) || errors.Is(err, review.ErrInsufficientStock) {
			_ = b.answerCallback(cb, review.Message(err, "Failed to approve"), true)
			b.renderReview(ctx, chatID, &msgID, st, board)
			return
		}
		if err != nil {
			b.reviewFailed(ctx, chatID, err, "Failed to approve")
		} else {
			b.toasts.Success(ctx, chatID, fmt.Sprintf("Request #%d approved.", id))
		}
		b.renderReview(ctx, chatID, &msgID, st, board)

	case "no":
		if err := b.review.Reject(ctx, sess, board, id); err != nil {
			b.reviewFailed(ctx, chatID, err, "Failed to reject")
		} else {
			b.toasts.Success(ctx, chatID, fmt.Sprintf("Request #%d rejected.", id))
		}
		b.renderReview(ctx, chatID, &msgID, st, board)

	case "del":
		req := board.Find(id)
		if req == nil || !req.CanDelete() {
			b.toasts.Error(ctx, chatID, review.Message(review.ErrNotPending, ""))
			b.renderReview(ctx, chatID, &msgID, st, board)
			break
		}
		text, kb := deleteConfirmView(req)
		p := carry(st.Payload)
		p.Board = board
		p.Target = id
		p.MsgID = b.screen(chatID, &msgID, text, kb)
		b.setState(ctx, chatID, dialog.StateReviewConfirm, p)

	case "delyes", "delno":
		confirmed := action == "delyes" && st.State == dialog.StateReviewConfirm && st.Payload.Target == id
		err := b.review.Delete(ctx, sess, board, id, confirmed)
		switch {
		case errors.Is(err, review.ErrNotConfirmed):
			b.toasts.Info(ctx, chatID, review.Message(err, ""))
		case err != nil:
			b.reviewFailed(ctx, chatID, err, "Failed to delete")
		default:
			b.toasts.Success(ctx, chatID, fmt.Sprintf("Request #%d deleted.", id))
		}
		b.renderReview(ctx, chatID, &msgID, st, board)

	case "xlsx":
		b.exportRequests(ctx, chatID, sess, board)
	}
	_ = b.answerCallback(cb, "", false)
}

func (b *Bot) reviewFailed(ctx context.Context, chatID int64, err error, fallback string) {
	if errors.Is(err, review.ErrNotPending) || errors.Is(err, review.ErrNotFound) || errors.Is(err, review.ErrNotEditing) {
		b.toasts.Error(ctx, chatID, review.Message(err, fallback))
		return
	}
	b.apiFailed(ctx, chatID, err, review.Message(err, fallback))
}

func (b *Bot) askLineQty(ctx context.Context, chatID int64, msgID int, st *dialog.Item, board *review.Board, lineID int64) {
	req := board.Find(board.Editing)
	if req == nil {
		b.toasts.Error(ctx, chatID, review.Message(review.ErrNotEditing, ""))
		return
	}
	name := fmt.Sprintf("line #%d", lineID)
	for _, ln := range req.Lines {
		if ln.ID == lineID {
			name = ln.ToolName
		}
	}
	p := carry(st.Payload)
	p.Board = board
	p.LineID = lineID
	p.MsgID = msgID
	b.setState(ctx, chatID, dialog.StateReviewQty, p)
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Enter the new quantity for %s:", name)))
}

func (b *Bot) onReviewQty(ctx context.Context, chatID int64, text string, st *dialog.Item) {
	board := boardOf(st)
	if err := board.SetDraft(st.Payload.LineID, text); err != nil {
		b.toasts.Error(ctx, chatID, review.Message(err, "Cannot change this line"))
	}
	msgID := st.Payload.MsgID
	b.renderReview(ctx, chatID, &msgID, st, board)
}

func (b *Bot) exportRequests(ctx context.Context, chatID int64, sess session.Session, board *review.Board) {
	if err := b.review.Load(ctx, sess, board); err != nil {
		b.apiFailed(ctx, chatID, err, "Failed to load requests")
		return
	}
	data, err := report.Requests(board.Rows)
	if err != nil {
		b.log.Error("requests export failed", "chat_id", chatID, "err", err)
		b.toasts.Error(ctx, chatID, "Failed to build the export.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  report.FileName(board.Filter, b.now()),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("Requests • %s (%d)", board.Filter.Label(), len(board.Rows))
	b.send(doc)
}
