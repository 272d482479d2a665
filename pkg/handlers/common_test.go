package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"socialfeed/pkg/posts"

	"go.uber.org/zap"
)

func TestWriteResponse(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResponse(w, "test_message", http.StatusTeapot)

	if w.Code != http.StatusTeapot {
		t.Errorf("expected status %d, but was %d", http.StatusTeapot, w.Code)
	}
	if w.Body.String() != `{"message":"test_message"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{err: posts.ErrEmptyContent, status: http.StatusBadRequest, body: `{"message":"content must not be empty"}`},
		{err: posts.ErrInvalidAction, status: http.StatusBadRequest, body: `{"message":"action must be like or dislike"}`},
		{err: fmt.Errorf("%w: zzz", posts.ErrInvalidID), status: http.StatusBadRequest, body: `{"message":"invalid post id: zzz"}`},
		{err: posts.ErrNotFound, status: http.StatusNotFound, body: `{"message":"post not found"}`},
		{err: posts.ErrForbidden, status: http.StatusForbidden, body: `{"message":"only the author may change this post"}`},
		{err: fmt.Errorf("gave up: %w", posts.ErrConflict), status: http.StatusConflict, body: `{"message":"gave up: post was modified concurrently"}`},
		{err: fmt.Errorf("%w: likes -1", posts.ErrInconsistentState), status: http.StatusInternalServerError, body: `{"message":"internal error"}`},
		{err: errors.New("connection refused"), status: http.StatusInternalServerError, body: `{"message":"internal error"}`},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, zap.NewNop().Sugar(), tc.err, "p1")

			if w.Code != tc.status {
				t.Errorf("expected status %d, but was %d", tc.status, w.Code)
			}
			if w.Body.String() != tc.body {
				t.Errorf("expected body %s, but was %s", tc.body, w.Body.String())
			}
		})
	}
}
