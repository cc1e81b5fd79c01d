package rpc

import (
	"context"

	"github.com/cuemby/muster/internal/errs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// kindToCode maps the shared error taxonomy to the gRPC status codes this
// surface returns, mirroring internal/controlplane/httperr.go's HTTP status
// mapping so both transports agree on what each Kind means.
func kindToCode(k errs.Kind) codes.Code {
	switch k {
	case errs.Invalid, errs.BarrierMismatch:
		return codes.InvalidArgument
	case errs.AlreadyRegistered:
		return codes.AlreadyExists
	case errs.UnknownWorker, errs.UnknownDataset, errs.NotFound:
		return codes.NotFound
	case errs.RateLimited:
		return codes.ResourceExhausted
	case errs.NoWorkers, errs.Transient:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// statusInterceptor translates whatever error reaches it — from the
// handler itself or from any interceptor ahead of it in the chain, such as
// the rate limiter's RateLimited rejection — into a *status.Status carrying
// a stable numeric code derived from errs.Kind, instead of letting it reach
// the client as generic codes.Unknown. It is always installed outermost in
// NewServer's interceptor chain so it sees the final error every other
// interceptor and the handler produced.
func statusInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	return resp, status.Error(kindToCode(errs.KindOf(err)), err.Error())
}
