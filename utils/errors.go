package utils

import (
	"errors"
	"net/http"

	"cookbook/models"
	"cookbook/repository"

	"github.com/go-playground/validator/v10"
)

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidSort), errors.As(err, &verrs):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// RespondWithErr writes err with the status StatusFor picks. Client errors
// carry their message; server errors only the status text.
func RespondWithErr(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	msg := http.StatusText(code)
	if code == http.StatusBadRequest {
		msg = err.Error()
	}
	RespondWithError(w, code, msg)
}
