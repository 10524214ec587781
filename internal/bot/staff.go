package bot

import (
	"context"

	"github.com/Spok95/tool-requests-bot/internal/dialog"
)

func (b *Bot) showStaff(ctx context.Context, chatID int64, editMsgID *int) {
	sess, ok := b.adminSession(ctx, chatID)
	if !ok {
		return
	}
	list, err := b.staff.Load(ctx, sess)
	if err != nil {
		b.apiFailed(ctx, chatID, err, "Failed to load staff")
		return
	}
	st := b.state(ctx, chatID)
	p := carry(st.Payload)
	text, kb := staffView(list)
	p.MsgID = b.screen(chatID, editMsgID, text, kb)
	b.setState(ctx, chatID, dialog.StateStaff, p)
}
