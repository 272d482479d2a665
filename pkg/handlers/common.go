package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"socialfeed/pkg/posts"

	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

type Response struct {
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type CustomError struct {
	Location string `json:"location"`
	Param    string `json:"param"`
	Value    string `json:"value"`
	Msg      string `json:"msg"`
}

type ErrorsResponse struct {
	Errors []*CustomError `json:"errors"`
}

func WriteResponse(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, &Response{Message: msg}, status)
}

func writeErrorsResponse(w http.ResponseWriter, errors []*CustomError, status int) {
	writeJSON(w, &ErrorsResponse{Errors: errors}, status)
}

func writeJSON(w http.ResponseWriter, v interface{}, status int) {
	res, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(res)
}

// writeServiceError maps a posts error to its HTTP status. Unknown errors and
// broken counters are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, err error, postID string) {
	switch {
	case errors.Is(err, posts.ErrEmptyContent),
		errors.Is(err, posts.ErrInvalidAction),
		errors.Is(err, posts.ErrInvalidID):
		WriteResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, posts.ErrNotFound):
		WriteResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, posts.ErrForbidden):
		WriteResponse(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, posts.ErrConflict):
		WriteResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, posts.ErrInconsistentState):
		logger.Errorw("inconsistent post state", "post", postID, "error", err)
		WriteResponse(w, "internal error", http.StatusInternalServerError)
	default:
		logger.Errorw("request failed", "post", postID, "error", err)
		WriteResponse(w, "internal error", http.StatusInternalServerError)
	}
}
