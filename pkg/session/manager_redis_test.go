package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/elliotchance/redismock/v8"
	"github.com/go-redis/redis/v8"
	"github.com/golang/mock/gomock"
)

var token = "header.payload.signature"
var sessID = "480f0886-bbbb-40e8-9c2b-a47e8aa7a666"
var now = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
var expiresAt = now.Add(168 * time.Hour)
var u = &User{Username: "alice", ID: 34}

func testSession() *Session {
	return &Session{
		User:           &User{ID: 34, Username: "alice"},
		SessionID:      sessID,
		StandardClaims: jwt.StandardClaims{ExpiresAt: expiresAt.Unix()},
	}
}

func newTestRedisManager(rdb Cmdable, jwtManager SessionManager) *SessionManagerRedis {
	sm := NewSessionManagerRedis(rdb, jwtManager)
	sm.now = func() time.Time { return now }
	return sm
}

func TestCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	jwtMock := NewMockSessionManager(ctrl)

	ctx := context.Background()
	w := httptest.NewRecorder()

	jwtMock.EXPECT().Create(ctx, w, u, sessID, expiresAt.Unix()).Return(token, nil)

	mock := redismock.NewMock()
	sm := newTestRedisManager(mock, jwtMock)

	mock.On("Set", ctx, "session:"+sessID, u.ID, 168*time.Hour).Return(redis.NewStatusResult("OK", nil))
	mock.On("SAdd", ctx, "user:34", []interface{}{sessID}).Return(redis.NewIntResult(1, nil))

	fact, err := sm.Create(ctx, w, u, sessID, expiresAt.Unix())
	if err != nil {
		t.Fatalf("unexpected error: %v", err.Error())
	}

	if fact != token {
		t.Errorf("expected %v but was %v", token, fact)
	}
}

func TestCreateTokenError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	jwtMock := NewMockSessionManager(ctrl)

	ctx := context.Background()
	w := httptest.NewRecorder()
	jwtMock.EXPECT().Create(ctx, w, u, sessID, expiresAt.Unix()).Return("", errors.New("sign error"))

	sm := newTestRedisManager(redismock.NewMock(), jwtMock)
	if _, err := sm.Create(ctx, w, u, sessID, expiresAt.Unix()); err == nil {
		t.Fatal("expected error but was nil")
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		stored  *redis.StringCmd
		wantErr error
		ok      bool
	}{
		{name: "live session", stored: redis.NewStringResult(strconv.FormatInt(u.ID, 10), nil), ok: true},
		{name: "revoked", stored: redis.NewStringResult("", redis.Nil), wantErr: ErrUnauthorized},
		{name: "other user", stored: redis.NewStringResult("35", nil), wantErr: ErrUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			jwtMock := NewMockSessionManager(ctrl)
			mock := redismock.NewMock()
			sm := newTestRedisManager(mock, jwtMock)

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			sess := testSession()

			jwtMock.EXPECT().Check(ctx, r).Return(sess, nil)
			mock.On("Get", ctx, "session:"+sessID).Return(tc.stored)

			fact, err := sm.Check(ctx, r)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err.Error())
				}
				if fact != sess {
					t.Errorf("expected %v but was %v", sess, fact)
				}
				return
			}

			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, but was %v", tc.wantErr, err)
			}
		})
	}
}

func TestCheckTokenRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	jwtMock := NewMockSessionManager(ctrl)

	ctx := context.Background()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	jwtMock.EXPECT().Check(ctx, r).Return(nil, ErrUnauthorized)

	sm := newTestRedisManager(redismock.NewMock(), jwtMock)
	if _, err := sm.Check(ctx, r); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected unauthorized, but was %v", err)
	}
}

func TestDestroy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	jwtMock := NewMockSessionManager(ctrl)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	ctx := ContextWithSession(r.Context(), testSession())
	r = r.WithContext(ctx)

	mock := redismock.NewMock()
	sm := newTestRedisManager(mock, jwtMock)
	w := httptest.NewRecorder()

	mock.On("Del", ctx, []string{"session:" + sessID}).Return(redis.NewIntResult(1, nil))

	if err := sm.Destroy(ctx, w, r); err != nil {
		t.Errorf("unexpected error: %v", err.Error())
	}
}

func TestDestroyWithoutSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sm := newTestRedisManager(redismock.NewMock(), NewMockSessionManager(ctrl))
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	if err := sm.Destroy(r.Context(), httptest.NewRecorder(), r); err == nil {
		t.Error("expected error but was nil")
	}
}

func TestDestroyAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	jwtMock := NewMockSessionManager(ctrl)

	ctx := context.Background()
	mock := redismock.NewMock()
	sm := newTestRedisManager(mock, jwtMock)

	mock.On("SMembers", ctx, "user:34").Return(redis.NewStringSliceResult([]string{sessID}, nil))
	mock.On("Del", ctx, []string{"session:" + sessID, "user:34"}).Return(redis.NewIntResult(2, nil))

	if err := sm.DestroyAll(ctx, u); err != nil {
		t.Errorf("unexpected error: %v", err.Error())
	}
}
