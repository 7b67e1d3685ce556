package orchestration

import (
	"errors"
	"fmt"

	"github.com/imamik/stratus/internal/dispatch"
)

var (
	// ErrInvalidState is returned when the cluster status does not allow
	// the requested operation.
	ErrInvalidState = errors.New("cluster is not in a state that allows this operation")
	// ErrClusterBusy is returned while another operation holds the cluster.
	ErrClusterBusy = dispatch.ErrBusy
	// ErrImagesUnsupported is returned when no image registry is configured.
	ErrImagesUnsupported = errors.New("image registry not configured")
	// ErrConversionUnsupported is returned for engines that cannot convert
	// native configuration files.
	ErrConversionUnsupported = errors.New("plugin cannot convert configuration files")
)

// ValidationError reports a request rejected before any background work
// started. When the engine rejected it, ClusterID names the record that was
// kept (create) or restored (scale).
type ValidationError struct {
	ClusterID string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.ClusterID == "" {
		return fmt.Sprintf("validation failed: %v", e.Err)
	}
	return fmt.Sprintf("validation of cluster %s failed: %v", e.ClusterID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}
