package smdbx

// Errno-domain codes as the engine reports them on this platform. The
// engine substitutes Windows system error codes for the POSIX errnos.
const (
	// ErrInvalidValue indicates an invalid parameter was passed
	// (ERROR_INVALID_PARAMETER)
	ErrInvalidValue ErrorCode = 87

	// ErrAccess indicates the operation is forbidden in this mode
	// (ERROR_ACCESS_DENIED)
	ErrAccess ErrorCode = 5

	// ErrNoData indicates the cursor has no position to report
	// (ERROR_HANDLE_EOF)
	ErrNoData ErrorCode = 38
)
