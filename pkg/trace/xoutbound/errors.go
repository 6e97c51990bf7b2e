package xoutbound

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNilInvoke Do 的调用函数为 nil
var ErrNilInvoke = errors.New("xoutbound: nil invoke function")

// BadResponseError 响应状态码不符合预期，携带原始响应
type BadResponseError struct {
	Response *http.Response
}

func (e *BadResponseError) Error() string {
	if e.Response == nil {
		return "xoutbound: bad response"
	}
	if req := e.Response.Request; req != nil && req.URL != nil {
		return fmt.Sprintf("xoutbound: bad response %d from %s %s", e.Response.StatusCode, req.Method, req.URL.Redacted())
	}
	return fmt.Sprintf("xoutbound: bad response %d", e.Response.StatusCode)
}

// StatusCode 返回响应状态码
func (e *BadResponseError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// ExpectStatus 状态码不在 want 中时返回 *BadResponseError
func ExpectStatus(resp *http.Response, want ...int) error {
	if resp == nil {
		return &BadResponseError{}
	}
	for _, code := range want {
		if resp.StatusCode == code {
			return nil
		}
	}
	return &BadResponseError{Response: resp}
}
