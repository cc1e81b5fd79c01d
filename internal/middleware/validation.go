package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/cuemby/muster/internal/errs"
	"github.com/cuemby/muster/internal/rpc"
	"google.golang.org/grpc"
)

// maxStringLen is the 1 KiB bound the spec places on any free-form string
// field (names, paths, reasons).
const maxStringLen = 1024

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidationInterceptor rejects malformed requests before any handler
// runs: malformed ids, path traversal or null bytes, oversized strings,
// and out-of-bounds numeric fields. It type-switches on the concrete
// message rather than using reflection, since the message set is small
// and fixed.
func ValidationInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := validate(req); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func validate(req any) error {
	switch m := req.(type) {
	case *rpc.RegisterWorkerRequest:
		if err := validateID("id", m.ID); err != nil {
			return err
		}
		if err := validateString("address", m.Address); err != nil {
			return err
		}
		if m.Capacity.GPUCount < 0 {
			return errs.New(errs.Invalid, "capacity.gpu_count must be non-negative")
		}
		if m.Capacity.MemoryBytes < 0 {
			return errs.New(errs.Invalid, "capacity.memory_bytes must be non-negative")
		}
	case *rpc.HeartbeatRequest:
		return validateID("worker_id", m.WorkerID)
	case *rpc.RegisterDatasetRequest:
		if err := validateID("id", m.ID); err != nil {
			return err
		}
		if err := validatePath("path", m.Path); err != nil {
			return err
		}
		if err := validateString("format", m.Format); err != nil {
			return err
		}
		if m.TotalSamples == 0 {
			return errs.New(errs.Invalid, "total_samples must be positive")
		}
		if m.ShardSize == 0 {
			return errs.New(errs.Invalid, "shard_size must be positive")
		}
	case *rpc.GetShardAssignmentRequest:
		if err := validateID("dataset_id", m.DatasetID); err != nil {
			return err
		}
		return validateID("worker_id", m.WorkerID)
	case *rpc.WaitBarrierRequest:
		if err := validateID("name", m.Name); err != nil {
			return err
		}
		if err := validateID("worker_id", m.WorkerID); err != nil {
			return err
		}
		if m.RequiredTotal <= 0 {
			return errs.New(errs.Invalid, "required_total must be positive")
		}
	case *rpc.NotifyCheckpointRequest:
		if err := validateID("namespace", m.Namespace); err != nil {
			return err
		}
		if err := validateID("worker_id", m.WorkerID); err != nil {
			return err
		}
		if err := validatePath("storage_path", m.StoragePath); err != nil {
			return err
		}
		if err := validateString("fail_reason", m.FailReason); err != nil {
			return err
		}
		if m.SizeBytes < 0 {
			return errs.New(errs.Invalid, "size_bytes must be non-negative")
		}
	case *rpc.GetLatestCheckpointRequest:
		return validateID("namespace", m.Namespace)
	}
	return nil
}

func validateID(field, value string) error {
	if !idPattern.MatchString(value) {
		return errs.Newf(errs.Invalid, "%s must match [A-Za-z0-9_-]{1,128}", field)
	}
	return nil
}

func validateString(field, value string) error {
	if len(value) > maxStringLen {
		return errs.Newf(errs.Invalid, "%s exceeds %d bytes", field, maxStringLen)
	}
	if strings.ContainsRune(value, 0) {
		return errs.Newf(errs.Invalid, "%s contains a null byte", field)
	}
	return nil
}

func validatePath(field, value string) error {
	if err := validateString(field, value); err != nil {
		return err
	}
	if strings.Contains(value, "..") {
		return errs.Newf(errs.Invalid, "%s must not contain '..'", field)
	}
	return nil
}
