package conv

import (
	"errors"

	"github.com/born-ml/blitz/internal/logger"
)

// Sentinel errors. Operations wrap them with context; match with errors.Is.
var (
	// ErrUnsupportedAlgorithm reports an algorithm outside the closed set.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrLayoutMismatch reports input, filter and output dimensions that are not
	// consistent with each other and the context's padding and stride.
	ErrLayoutMismatch = errors.New("layout mismatch")
	// ErrWorkspaceTooSmall reports a workspace below the size the selected
	// algorithm needs for the given geometry.
	ErrWorkspaceTooSmall = errors.New("workspace too small")
	// ErrWorkspaceBusy reports an operation started while another one still owns
	// the context's workspace.
	ErrWorkspaceBusy = errors.New("workspace in use by another operation")
	// ErrInvalidConfig reports a context configuration that cannot describe a
	// convolution.
	ErrInvalidConfig = errors.New("invalid convolution config")
)

// FatalSink receives the errors that abort a convolution operation.
//
// The operation never continues after reporting; what happens to the caller is the
// sink's policy.
type FatalSink interface {
	Fatal(op Operation, algo Algorithm, err error)
}

// LogSink logs the failure; the operation then returns the error to its caller.
type LogSink struct {
	Logger logger.Logger
}

// Fatal implements FatalSink.
func (s LogSink) Fatal(op Operation, algo Algorithm, err error) {
	if s.Logger == nil {
		return
	}
	s.Logger.Error("convolution aborted", "op", op.String(), "algorithm", algo.String(), "error", err)
}

// PanicSink logs the failure and then panics, for hosts that treat a broken
// convolution contract as a programmer error.
type PanicSink struct {
	Logger logger.Logger
}

// Fatal implements FatalSink.
func (s PanicSink) Fatal(op Operation, algo Algorithm, err error) {
	LogSink(s).Fatal(op, algo, err)
	panic(err.Error())
}
