package upload

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"syscall"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Class is the outcome of classifying an upload error.
type Class int

const (
	// Fatal errors end the upload immediately.
	Fatal Class = iota
	// Retriable errors are retried with backoff.
	Retriable
)

func (c Class) String() string {
	if c == Retriable {
		return "retriable"
	}
	return "fatal"
}

// ErrNotFinalized is returned by a session whose bytes are all stored remotely
// but whose video has not been returned yet. It is retried like a server error.
var ErrNotFinalized = errors.New("upload stored but not finalized")

var retriableStatusCodes = map[int]bool{
	500: true,
	502: true,
	503: true,
	504: true,
}

// Classify decides whether err is worth retrying.
// Server-side 5xx gateway and availability errors and low-level transport
// faults are retriable. Every other remote status, credential and certificate
// failures, and cancellation are fatal.
func Classify(err error) Class {
	if err == nil {
		return Fatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if retriableStatusCodes[apiErr.Code] {
			return Retriable
		}
		return Fatal
	}

	// http.Client wraps everything in *url.Error, which is itself a net.Error,
	// so the causes that never heal on retry are ruled out first.
	var (
		tokenErr     *oauth2.RetrieveError
		hostErr      url.InvalidHostError
		certErr      *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &tokenErr),
		errors.As(err, &hostErr),
		errors.As(err, &certErr),
		errors.As(err, &authorityErr),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr):
		return Fatal
	}

	switch {
	case errors.Is(err, ErrNotFinalized),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return Retriable
	}

	var (
		opErr    *net.OpError
		dnsErr   *net.DNSError
		protoErr textproto.ProtocolError
		netErr   net.Error
	)
	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.As(err, &protoErr):
		return Retriable
	case errors.As(err, &netErr) && netErr.Timeout():
		return Retriable
	}
	return Fatal
}
