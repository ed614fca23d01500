package smdbx

import "golang.org/x/sys/unix"

// Errno-domain codes as the engine reports them on this platform. These are
// plain system errno values, so they vary across operating systems.
const (
	// ErrInvalidValue indicates an invalid parameter was passed (EINVAL)
	ErrInvalidValue = ErrorCode(unix.EINVAL)

	// ErrAccess indicates the operation is forbidden in this mode (EACCES)
	ErrAccess = ErrorCode(unix.EACCES)

	// ErrNoData indicates the cursor has no position to report (ENODATA)
	ErrNoData = ErrorCode(unix.ENODATA)
)
