package processor

import (
	"context"
	"errors"
	"net"

	// Packages
	schema "github.com/mutablelogic/go-upload/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func Succeeded(message string) schema.ProcessingResult {
	return schema.ProcessingResult{Kind: schema.ProcessingSucceeded, Message: message}
}

func Timeout(message string) schema.ProcessingResult {
	return schema.ProcessingResult{Kind: schema.ProcessingTimeout, Message: message}
}

func ConnectionFailed(message string) schema.ProcessingResult {
	return schema.ProcessingResult{Kind: schema.ProcessingConnectionFailed, Message: message}
}

func Rejected(message string) schema.ProcessingResult {
	return schema.ProcessingResult{Kind: schema.ProcessingRejectedByService, Message: message}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// classify maps a failed call to a result. transportErr is the error seen on
// the wire, if any; err is the error returned by the client.
func classify(ctx context.Context, transportErr, err error) schema.ProcessingResult {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(transportErr), isTimeout(err):
		return Timeout(context.DeadlineExceeded.Error())
	case transportErr != nil:
		return ConnectionFailed(transportErr.Error())
	case isConnection(err):
		return ConnectionFailed(err.Error())
	default:
		return Rejected(err.Error())
	}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnection(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	return errors.As(err, &opErr) || errors.As(err, &dnsErr)
}
