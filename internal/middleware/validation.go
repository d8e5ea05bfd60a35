package middleware

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MaxAccountNameLength bounds the account name accepted in URLs.
const MaxAccountNameLength = 100

// ValidateRunID checks that the {id} URL parameter is a valid UUID.
func ValidateRunID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "run id is required", "")
			return
		}
		if _, err := uuid.Parse(id); err != nil {
			writeError(w, http.StatusBadRequest, "invalid run id", err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ValidateAccountName checks the {account} URL parameter.
func ValidateAccountName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if msg := accountNameProblem(chi.URLParam(r, "account")); msg != "" {
			writeError(w, http.StatusBadRequest, "invalid account name", msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accountNameProblem(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "account name is required"
	case !utf8.ValidString(name):
		return "account name must be valid UTF-8"
	case utf8.RuneCountInString(name) > MaxAccountNameLength:
		return "account name is too long"
	case strings.ContainsAny(name, `/\`):
		return "account name must not contain path separators"
	}
	return ""
}
