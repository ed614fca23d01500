//go:build unix && !linux && !darwin

package smdbx

import "golang.org/x/sys/unix"

// Errno-domain codes as the engine reports them on this platform. Systems
// without ENODATA make the engine fall back to its own substitute code.
const (
	// ErrInvalidValue indicates an invalid parameter was passed (EINVAL)
	ErrInvalidValue = ErrorCode(unix.EINVAL)

	// ErrAccess indicates the operation is forbidden in this mode (EACCES)
	ErrAccess = ErrorCode(unix.EACCES)

	// ErrNoData indicates the cursor has no position to report
	ErrNoData ErrorCode = 9919
)
