package policy

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorCode maps a Go transport error onto a canonical error code string.
//
// The request engine classifies failures by these codes rather than by
// concrete Go error types, so the retryable set can be configured as plain
// strings. Unrecognized errors map to the empty string, which is never
// retryable.
//
// Mappings:
//   - syscall.ECONNREFUSED -> "ECONNREFUSED"
//   - syscall.ECONNRESET, io.EOF, io.ErrUnexpectedEOF -> "ECONNRESET"
//   - syscall.EHOSTUNREACH, syscall.ENETUNREACH -> "EHOSTUNREACH"
//   - syscall.EPIPE -> "EPIPE"
//   - *net.DNSError -> "ENOTFOUND"
//   - timeouts (net.Error, os.ErrDeadlineExceeded, context.DeadlineExceeded) -> "ETIMEDOUT"
//
// Parameters:
//   - err: The transport error to classify
//
// Returns:
//   - string: The canonical code, or "" if the error is unrecognized
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		// The HTTP transport surfaces a reset peer as an unexpected EOF
		// when the connection dies between request and response.
		return "ECONNRESET"
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return "EHOSTUNREACH"
	case errors.Is(err, syscall.EPIPE):
		return "EPIPE"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return "ETIMEDOUT"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "ENOTFOUND"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}

	return ""
}
