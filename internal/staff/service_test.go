package staff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

type fakeAPI struct {
	list []users.User
	err  error
}

func (f fakeAPI) Users(context.Context, session.Session) ([]users.User, error) { return f.list, f.err }

func TestLoad_Sorted(t *testing.T) {
	t.Parallel()
	s := New(fakeAPI{list: []users.User{
		{ID: 1, Name: "zainab", Role: users.RoleUser},
		{ID: 2, Name: "Bola", Role: "ADMIN"},
		{ID: 3, Name: "", Username: "ghost", Role: users.RoleUser},
		{ID: 4, Name: "Ade", Role: users.RoleUser},
	}})

	list, err := s.Load(context.Background(), session.Session{})
	require.NoError(t, err)
	ids := make([]int64, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []int64{2, 3, 4, 1}, ids)
}

func TestLoad_Error(t *testing.T) {
	t.Parallel()
	_, err := New(fakeAPI{err: errors.New("boom")}).Load(context.Background(), session.Session{})
	assert.ErrorContains(t, err, "load staff")
}
