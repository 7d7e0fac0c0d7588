package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager issues and resolves signed session tokens backed by Redis.
// A token travels either as a bearer token or in the session cookie.
type SessionManager struct {
	client     redis.Cmdable
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data. Flashes live in a Redis list next
// to the session payload so concurrent requests append without clobbering
// each other.
type Session struct {
	Token   string
	id      string
	userID  string
	manager *SessionManager
	pending []FlashMessage
}

type sessionPayload struct {
	UserID   string    `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client redis.Cmdable, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Issue creates a session bound to userID and returns it.
func (sm *SessionManager) Issue(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, errors.New("session: user id required")
	}
	id := uuid.NewString()
	sess := &Session{Token: sm.sign(id), id: id, userID: userID, manager: sm}
	data, err := json.Marshal(sessionPayload{UserID: userID, IssuedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	if err := sm.client.Set(ctx, sm.redisKey(id), data, sm.ttl).Err(); err != nil {
		return nil, fmt.Errorf("session: store: %w", err)
	}
	return sess, nil
}

// Resolve loads the session referenced by the request. Missing, forged or
// expired tokens yield ErrUnauthenticated.
func (sm *SessionManager) Resolve(ctx context.Context, r *http.Request) (*Session, error) {
	token := bearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(sm.cookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}
	id, ok := sm.verify(token)
	if !ok {
		return nil, ErrUnauthenticated
	}
	raw, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	return &Session{Token: token, id: id, userID: stored.UserID, manager: sm}, nil
}

// Save appends queued flashes to the session's list and refreshes the expiry
// of both keys.
func (sm *SessionManager) Save(ctx context.Context, sess *Session) error {
	if sess == nil || len(sess.pending) == 0 {
		return nil
	}
	values := make([]any, 0, len(sess.pending))
	for _, f := range sess.pending {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	_, err := sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, sm.flashKey(sess.id), values...)
		pipe.Expire(ctx, sm.flashKey(sess.id), sm.ttl)
		pipe.Expire(ctx, sm.redisKey(sess.id), sm.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: save flashes: %w", err)
	}
	sess.pending = nil
	return nil
}

func (sm *SessionManager) drain(ctx context.Context, id string) ([]FlashMessage, error) {
	var lrange *redis.StringSliceCmd
	_, err := sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, sm.flashKey(id), 0, -1)
		pipe.Del(ctx, sm.flashKey(id))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session: drain flashes: %w", err)
	}
	raw := lrange.Val()
	out := make([]FlashMessage, 0, len(raw))
	for _, item := range raw {
		var f FlashMessage
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Revoke deletes the session.
func (sm *SessionManager) Revoke(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if err := sm.client.Del(ctx, sm.redisKey(sess.id), sm.flashKey(sess.id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// SetCookie writes the session cookie.
func (sm *SessionManager) SetCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// User returns the user id bound to the session.
func (s *Session) User() string {
	return s.userID
}

// AddFlash queues a flash message. It reaches Redis on the next Save.
func (s *Session) AddFlash(msg FlashMessage) {
	s.pending = append(s.pending, msg)
}

// PopFlashes returns and clears every flash stored for the session plus the
// ones queued during this request. Stored flashes are read and deleted in one
// transaction so each is delivered once.
func (s *Session) PopFlashes(ctx context.Context) ([]FlashMessage, error) {
	var out []FlashMessage
	if s.manager != nil && s.id != "" {
		stored, err := s.manager.drain(ctx, s.id)
		if err != nil {
			return nil, err
		}
		out = stored
	}
	out = append(out, s.pending...)
	s.pending = nil
	return out, nil
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) flashKey(id string) string {
	return "session:" + id + ":flashes"
}

func (sm *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (sm *SessionManager) verify(token string) (string, bool) {
	id, _, ok := strings.Cut(token, ".")
	if !ok || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(sm.sign(id)), []byte(token))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

type sessionKey struct{}

// ContextWithSession attaches the resolved session so handlers can queue flashes.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the request's session or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return sess
	}
	return nil
}
