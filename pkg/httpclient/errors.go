package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/trungse123/review-backend/pkg/errors"
)

const maxErrorBody = 64 << 10

// ResponseError is a non-2xx answer from a downstream service. It unwraps to
// the apperrors sentinel matching its status, if any.
type ResponseError struct {
	Service    string
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s returned status %d", e.Service, e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ResponseError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return apperrors.ErrInvalidInput
	case e.Status == http.StatusConflict:
		return apperrors.ErrConflict
	case e.Status == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case e.Status == http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavail
	case e.Status >= 500:
		return apperrors.ErrDependencyDegraded
	}
	return nil
}

// errorBody covers the error shapes seen from downstream services:
// {"error":{"code","message"}}, {"errors": ...} and {"message": ...}.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Errors  json.RawMessage `json:"errors"`
	Message string          `json:"message"`
}

// ParseResponseError drains and closes resp.Body and describes the failure.
// Call it only for non-2xx responses.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	rerr := &ResponseError{
		Service:    service,
		Status:     resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		rerr.Message = "read body: " + err.Error()
		return rerr
	}
	rerr.Code, rerr.Message = describeBody(raw)
	return rerr
}

func describeBody(raw []byte) (code, message string) {
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Error != nil:
			return body.Error.Code, body.Error.Message
		case len(body.Errors) > 0 && string(body.Errors) != "null":
			var s string
			if json.Unmarshal(body.Errors, &s) == nil {
				return "", s
			}
			return "", string(body.Errors)
		case body.Message != "":
			return "", body.Message
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 256 {
		text = text[:256] + "..."
	}
	return "", text
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// IsClientError reports a 4xx status.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
