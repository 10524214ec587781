package staff

import (
	"context"
	"fmt"

	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

type API interface {
	Users(ctx context.Context, sess session.Session) ([]users.User, error)
}

type Service struct {
	api API
}

func New(api API) *Service { return &Service{api: api} }

// Load returns the directory, admins first, then by name.
func (s *Service) Load(ctx context.Context, sess session.Session) ([]users.User, error) {
	list, err := s.api.Users(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	users.SortDirectory(list)
	return list, nil
}
