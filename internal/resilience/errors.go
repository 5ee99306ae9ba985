package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// IsTransient reports whether err looks like a network hiccup: a timeout, a
// reset or refused connection, or a TLS handshake that timed out.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED, syscall.EPIPE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "tls handshake timeout")
}

// IsTransientStatus reports whether a response status is worth retrying.
func IsTransientStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}
