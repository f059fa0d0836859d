package apperr

import (
	"context"
	"errors"
	"net"
)

// Transport translates an error returned by http.Client.Do into a
// *NetworkError. Errors that are neither timeouts nor connection failures
// are returned unchanged.
func Transport(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Service: service, Timeout: true, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &NetworkError{Service: service, Timeout: true, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &NetworkError{Service: service, Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &NetworkError{Service: service, Err: err}
	}
	return err
}
