package handlers

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"

	"socialfeed/pkg/posts"
	"socialfeed/pkg/session"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:generate mockgen -source=posts.go -destination=mock_posts_service.go -package=handlers

type PostHandler struct {
	Service PostsService
	Logger  *zap.SugaredLogger
}

type PostsService interface {
	List(ctx context.Context) ([]*posts.Post, error)
	Get(ctx context.Context, id string) (*posts.Post, error)
	Create(ctx context.Context, author, content string) (*posts.Post, error)
	Edit(ctx context.Context, id, username, content string) (*posts.Post, error)
	React(ctx context.Context, id, username string, action posts.Action) (*posts.Post, error)
	Reply(ctx context.Context, id, username, content string) (*posts.Post, error)
	Delete(ctx context.Context, id, username string) error
}

type ContentReq struct {
	Content string `json:"content"`
}

type ReactReq struct {
	PostID string       `json:"postId"`
	Action posts.Action `json:"action"`
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	items, err := h.Service.List(ctx)
	if err != nil {
		writeServiceError(w, h.Logger, err, "")
		return
	}

	writeJSON(w, items, http.StatusOK)
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.Service.Get(ctx, id)
	if err != nil {
		writeServiceError(w, h.Logger, err, id)
		return
	}

	writeJSON(w, p, http.StatusOK)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ContentReq
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.Service.Create(ctx, sess.User.Username, req.Content)
	if err != nil {
		writeServiceError(w, h.Logger, err, "")
		return
	}

	h.Logger.Infow("post created", "post", p.ID, "author", p.Author)
	writeJSON(w, p, http.StatusCreated)
}

func (h *PostHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	var req ContentReq
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.Service.Edit(ctx, id, sess.User.Username, req.Content)
	if err != nil {
		writeServiceError(w, h.Logger, err, id)
		return
	}

	writeJSON(w, p, http.StatusOK)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.Service.Delete(ctx, id, sess.User.Username); err != nil {
		writeServiceError(w, h.Logger, err, id)
		return
	}

	h.Logger.Infow("post deleted", "post", id, "author", sess.User.Username)
	writeJSON(w, &SuccessResponse{Success: true}, http.StatusOK)
}

func (h *PostHandler) Reply(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	var req ContentReq
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.Service.Reply(ctx, id, sess.User.Username, req.Content)
	if err != nil {
		writeServiceError(w, h.Logger, err, id)
		return
	}

	writeJSON(w, p, http.StatusOK)
}

func (h *PostHandler) React(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ReactReq
	if !h.decode(w, r, &req) {
		return
	}

	if !req.Action.Valid() {
		writeServiceError(w, h.Logger, posts.ErrInvalidAction, req.PostID)
		return
	}

	id, err := posts.ParseID(req.PostID)
	if err != nil {
		writeServiceError(w, h.Logger, err, req.PostID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.Service.React(ctx, id, sess.User.Username, req.Action)
	if err != nil {
		writeServiceError(w, h.Logger, err, id)
		return
	}

	writeJSON(w, p, http.StatusOK)
}

func (h *PostHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := session.SessionFromContext(r.Context())
	if err != nil || sess.User == nil {
		WriteResponse(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	return sess, true
}

func (h *PostHandler) postID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := posts.ParseID(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.Logger, err, mux.Vars(r)["id"])
		return "", false
	}

	return id, true
}

func (h *PostHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		h.Logger.Errorw("cannot read request body", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		WriteResponse(w, "bad request", http.StatusBadRequest)
		return false
	}

	return true
}
