package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/princekumarofficial/winsome-service/internal/store"
)

type Response struct {
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var b strings.Builder
	for _, err := range errs {
		b.WriteString(err.Field())
		b.WriteString(": ")
		b.WriteString(err.Tag())
		b.WriteString("; ")
	}

	return Response{
		Status: StatusError,
		Error:  b.String(),
	}
}

func RequestOK(message string, data interface{}) Response {
	return Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}

// StoreError maps a store error to the right HTTP status and writes it.
// Validation, lookup and state-conflict errors are client-correctable and
// never reported as server failures.
func StoreError(w http.ResponseWriter, err error) {
	WriteJSON(w, statusFor(err), GeneralError(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNoSuchUser),
		errors.Is(err, store.ErrNoSuchPost):
		return http.StatusNotFound
	case errors.Is(err, store.ErrWrongCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrUsernameTaken),
		errors.Is(err, store.ErrAlreadyLoggedIn),
		errors.Is(err, store.ErrNotLoggedIn),
		errors.Is(err, store.ErrSameUser):
		return http.StatusConflict
	case errors.Is(err, store.ErrUsernameInvalid),
		errors.Is(err, store.ErrPasswordInvalid),
		errors.Is(err, store.ErrTagInvalid),
		errors.Is(err, store.ErrTooManyTags),
		errors.Is(err, store.ErrInvalidAmount),
		errors.Is(err, store.ErrInvalidPost),
		errors.Is(err, store.ErrInvalidVote),
		errors.Is(err, store.ErrInvalidComment):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
