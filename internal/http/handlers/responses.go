package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/carelink/carelink-be/internal/apperr"
	"github.com/carelink/carelink-be/internal/auth"
	"github.com/carelink/carelink-be/internal/http/respond"
	"github.com/carelink/carelink-be/internal/validation"
)

const maxBodyBytes = 1 << 20

var errBadID = errors.New("bad id")

// decodeJSON reads a JSON object from the request body. An empty body
// decodes as an empty object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// caller returns the authenticated caller. Routes using it sit behind
// middleware.Authenticate.
func caller(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	c, ok := auth.CallerFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
	}
	return c, ok
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var limited *apperr.RateLimitError
	switch {
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())))
		respond.Error(w, http.StatusTooManyRequests, limited.Error())
	case errors.Is(err, apperr.ErrRateLimited):
		respond.Error(w, http.StatusTooManyRequests, apperr.ErrRateLimited.Error())
	case errors.Is(err, apperr.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "No active account found with the given credentials")
	case errors.Is(err, apperr.ErrInvalidToken):
		respond.Error(w, http.StatusUnauthorized, "Token is invalid or expired")
	case errors.Is(err, apperr.ErrForbidden):
		respond.Error(w, http.StatusForbidden, strings.TrimPrefix(err.Error(), apperr.ErrForbidden.Error()+": "))
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, errBadID):
		respond.Error(w, http.StatusNotFound, "Not found.")
	default:
		if fields := validation.FieldErrors(err); fields != nil {
			respond.Fields(w, http.StatusBadRequest, badRequestMessage(err), fields)
			return
		}
		log.Error().Err(err).
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// badRequestMessage picks the headline for a rejected payload.
func badRequestMessage(err error) string {
	for _, kind := range []error{
		apperr.ErrDuplicateMapping,
		apperr.ErrDuplicateEmail,
		apperr.ErrUsernameTaken,
		apperr.ErrEmailTaken,
		apperr.ErrPasswordMismatch,
		apperr.ErrWeakPassword,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return apperr.ErrValidation.Error()
}
