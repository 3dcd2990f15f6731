package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/Laisky/errors/v2"
)

// Kind names the class of a transport failure.
type Kind string

const (
	KindInvalidRequest Kind = "InvalidRequest"
	KindTimeout        Kind = "Timeout"
	KindCanceled       Kind = "Canceled"
	KindDNS            Kind = "DNSError"
	KindTLS            Kind = "TLSError"
	KindConnection     Kind = "ConnectionError"
	KindRead           Kind = "ReadError"
	KindRequest        Kind = "RequestError"
)

// TransportError is returned by Client.Send for every failure that prevented a
// complete response from being received.
type TransportError struct {
	Kind    Kind
	Elapsed time.Duration // zero when the request was never dispatched
	Err     error
}

func newTransportError(kind Kind, elapsed time.Duration, err error) *TransportError {
	return &TransportError{Kind: kind, Elapsed: elapsed, Err: err}
}

func (e *TransportError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsTransportError extracts a *TransportError from err's chain.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	if isTLSError(err) {
		return KindTLS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}
	return KindRequest
}

func isTLSError(err error) bool {
	var (
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}
