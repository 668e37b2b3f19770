package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	goerrors "github.com/goliatone/go-errors"
)

// TextCodeUnavailable marks transport failures (connection refused, timeouts).
const TextCodeUnavailable = "BACKEND_UNAVAILABLE"

const maxErrorBody = 4 << 10

type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func remoteError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	raw = bytes.TrimSpace(raw)

	var body errorBody
	_ = json.Unmarshal(raw, &body)
	message := body.Message
	if message == "" {
		message = body.Error
	}
	if message == "" {
		message = string(raw)
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	message = fmt.Sprintf("backend: remote error %d: %s", resp.StatusCode, message)

	category := goerrors.HTTPStatusToCategory(resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity || (resp.StatusCode == http.StatusBadRequest && len(body.Errors) > 0):
		category = goerrors.CategoryValidation
	case resp.StatusCode >= 500:
		category = goerrors.CategoryExternal
	}

	var err *goerrors.Error
	if category == goerrors.CategoryValidation {
		err = goerrors.NewValidation(message, fieldErrors(body.Errors)...)
	} else {
		err = goerrors.New(message, category)
	}
	return err.
		WithCode(resp.StatusCode).
		WithTextCode(goerrors.HTTPStatusToTextCode(resp.StatusCode)).
		WithMetadata(map[string]any{"method": method, "path": path})
}

func fieldErrors(errs map[string]string) []goerrors.FieldError {
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	out := make([]goerrors.FieldError, 0, len(fields))
	for _, field := range fields {
		out = append(out, goerrors.FieldError{Field: field, Message: errs[field]})
	}
	return out
}

// IsUnauthorized reports whether err came from a rejected or expired token.
func IsUnauthorized(err error) bool {
	return goerrors.IsAuth(err)
}

// IsUnavailable reports whether the backend could not be reached at all.
func IsUnavailable(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == TextCodeUnavailable
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Code
	}
	return 0
}
