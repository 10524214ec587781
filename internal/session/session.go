package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Spok95/tool-requests-bot/internal/domain/users"
)

var ErrNoSession = errors.New("not logged in")

// Cookie is an opaque backend session cookie.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Session struct {
	Cookies []Cookie   `json:"cookies"`
	User    users.User `json:"user"`
}

func (s Session) IsAdmin() bool { return s.User.IsAdmin() }

func (s Session) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

func FromHTTP(cookies []*http.Cookie) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Store keeps one session per chat in redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(chatID int64) string { return fmt.Sprintf("toolbot:session:%d", chatID) }

func (s *Store) Get(ctx context.Context, chatID int64) (Session, error) {
	raw, err := s.rdb.Get(ctx, key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("session get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("session decode: %w", err)
	}
	return sess, nil
}

func (s *Store) Save(ctx context.Context, chatID int64, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(chatID), raw, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, chatID int64) error {
	return s.rdb.Del(ctx, key(chatID)).Err()
}
