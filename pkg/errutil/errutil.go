package errutil

import (
	"errors"
	"net/http"
)

type httpError struct {
	code int
	err  error
}

func (e *httpError) Error() string {
	return e.err.Error()
}

func (e *httpError) Unwrap() error {
	return e.err
}

func newHttpError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &httpError{code: code, err: err}
}

func ValidationError(err error) error {
	return newHttpError(http.StatusBadRequest, err)
}

func BadRequestError(err error) error {
	return newHttpError(http.StatusBadRequest, err)
}

func UnauthorizedError(err error) error {
	return newHttpError(http.StatusUnauthorized, err)
}

func ForbiddenError(err error) error {
	return newHttpError(http.StatusForbidden, err)
}

func NotFoundError(err error) error {
	return newHttpError(http.StatusNotFound, err)
}

func ConflictError(err error) error {
	return newHttpError(http.StatusConflict, err)
}

// ParseHttpError maps an error to the status code and message returned to
// the client. Unwrapped errors are treated as internal.
func ParseHttpError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	var he *httpError
	if errors.As(err, &he) {
		return he.code, he.err.Error()
	}

	return http.StatusInternalServerError, err.Error()
}
