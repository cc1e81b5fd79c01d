package controlplane

import "github.com/cuemby/muster/internal/errs"

// httpStatus maps the shared error taxonomy to the HTTP status codes this
// package's routes return, mirroring the gRPC code mapping in internal/rpc
// so both transports agree on what each Kind means.
func httpStatus(k errs.Kind) int {
	switch k {
	case errs.Invalid, errs.BarrierMismatch:
		return 400
	case errs.AlreadyRegistered:
		return 409
	case errs.UnknownWorker, errs.UnknownDataset, errs.NotFound:
		return 404
	case errs.RateLimited:
		return 429
	case errs.NoWorkers, errs.Transient:
		return 503
	default:
		return 500
	}
}
