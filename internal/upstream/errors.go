package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound 上游不存在该资源
var ErrNotFound = errors.New("resource not found")

// HTTPError 上游返回非预期状态码
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// retryable 5xx 可以重试，其余状态码直接失败
func retryable(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
