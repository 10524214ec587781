package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(list []User) []string {
	out := make([]string, 0, len(list))
	for _, u := range list {
		out = append(out, u.Name)
	}
	return out
}

func TestSortDirectory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []User
		want []string
	}{
		{
			name: "admins first then alphabetical",
			in: []User{
				{ID: 1, Name: "Zainab", Role: RoleUser},
				{ID: 2, Name: "Bola", Role: RoleAdmin},
				{ID: 3, Name: "Ade", Role: RoleUser},
				{ID: 4, Name: "Chidi", Role: "ADMIN"},
			},
			want: []string{"Bola", "Chidi", "Ade", "Zainab"},
		},
		{
			name: "empty name sorts first within its group",
			in: []User{
				{ID: 1, Name: "Musa"},
				{ID: 2, Name: ""},
				{ID: 3, Name: "amaka"},
			},
			want: []string{"", "amaka", "Musa"},
		},
		{
			name: "empty role is not admin",
			in: []User{
				{ID: 1, Name: "A", Role: ""},
				{ID: 2, Name: "B", Role: " admin "},
			},
			want: []string{"B", "A"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			list := append([]User(nil), tt.in...)
			SortDirectory(list)
			assert.Equal(t, tt.want, names(list))
		})
	}
}

func TestSortDirectory_StableForTies(t *testing.T) {
	t.Parallel()
	list := []User{
		{ID: 1, Name: "Same"},
		{ID: 2, Name: "Same"},
		{ID: 3, Name: "Same"},
	}
	SortDirectory(list)
	assert.Equal(t, []int64{1, 2, 3}, []int64{list[0].ID, list[1].ID, list[2].ID})
}

func TestUser_DisplayName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Ngozi", User{Name: " Ngozi ", Username: "ngo"}.DisplayName())
	assert.Equal(t, "ngo", User{Username: "ngo"}.DisplayName())
	assert.Equal(t, "—", User{}.DisplayName())
	assert.Equal(t, "user", User{}.RoleLabel())
}
