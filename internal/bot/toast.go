package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tool-requests-bot/internal/notify"
)

// ToastRenderer shows a toast as a chat message and deletes it on expiry.
type ToastRenderer struct {
	api Sender
}

func NewToastRenderer(api Sender) *ToastRenderer { return &ToastRenderer{api: api} }

func (r *ToastRenderer) Show(_ context.Context, t notify.Toast) (int, error) {
	m, err := r.api.Send(tgbotapi.NewMessage(t.Target, toastIcon(t.Kind)+" "+t.Text))
	if err != nil {
		return 0, err
	}
	return m.MessageID, nil
}

func (r *ToastRenderer) Hide(_ context.Context, t notify.Toast) error {
	_, err := r.api.Request(tgbotapi.NewDeleteMessage(t.Target, t.Ref))
	return err
}

func toastIcon(k notify.Kind) string {
	switch k {
	case notify.KindSuccess:
		return "✅"
	case notify.KindError:
		return "⚠️"
	}
	return "ℹ️"
}
