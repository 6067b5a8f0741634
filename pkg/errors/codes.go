package errors

// Error codes for categorizing errors.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeCancelled indicates the operation was cancelled.
	CodeCancelled = "CANCELLED"

	// CodeInvalidArgument indicates client specified an invalid argument.
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// CodeDeadlineExceeded indicates operation deadline was exceeded.
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound = "NOT_FOUND"

	// CodeFailedPrecondition indicates operation was rejected because the system
	// is not in a required state.
	CodeFailedPrecondition = "FAILED_PRECONDITION"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// CodeUnavailable indicates the service is currently unavailable.
	CodeUnavailable = "UNAVAILABLE"

	// Domain-specific error codes

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeTimeout indicates an operation timed out.
	CodeTimeout = "TIMEOUT"

	// CodeConnection indicates the directory could not be reached or answered
	// with a non-success status.
	CodeConnection = "CONNECTION_ERROR"

	// CodeProtocol indicates a well-formed directory response with the wrong
	// semantic content.
	CodeProtocol = "PROTOCOL_ERROR"

	// CodePartialData indicates one fetch inside an aggregate failed.
	CodePartialData = "PARTIAL_DATA"

	// CodeConfigError indicates a configuration error.
	CodeConfigError = "CONFIG_ERROR"

	// CodeSerializationError indicates serialization/deserialization failed.
	CodeSerializationError = "SERIALIZATION_ERROR"
)

// ErrorCategory represents a high-level error category.
type ErrorCategory string

const (
	// CategoryClient indicates a caller-side error.
	CategoryClient ErrorCategory = "CLIENT_ERROR"

	// CategoryServer indicates an internal error.
	CategoryServer ErrorCategory = "SERVER_ERROR"

	// CategoryNetwork indicates the directory could not be reached.
	CategoryNetwork ErrorCategory = "NETWORK_ERROR"

	// CategoryProtocol indicates the directory answered with unexpected content.
	CategoryProtocol ErrorCategory = "PROTOCOL_ERROR"

	// CategoryTimeout indicates a timeout error.
	CategoryTimeout ErrorCategory = "TIMEOUT_ERROR"

	// CategoryValidation indicates a validation error.
	CategoryValidation ErrorCategory = "VALIDATION_ERROR"
)

// GetCategory returns the category for an error code.
func GetCategory(code string) ErrorCategory {
	switch code {
	case CodeInvalidArgument, CodeNotFound, CodeFailedPrecondition:
		return CategoryClient

	case CodeValidation, CodeConfigError:
		return CategoryValidation

	case CodeTimeout, CodeDeadlineExceeded:
		return CategoryTimeout

	case CodeConnection, CodeUnavailable:
		return CategoryNetwork

	case CodeProtocol, CodePartialData, CodeSerializationError:
		return CategoryProtocol

	default:
		return CategoryServer
	}
}

// IsRetryable reports whether a caller may reasonably re-issue the whole flow.
// The core itself never retries.
func IsRetryable(code string) bool {
	switch code {
	case CodeTimeout, CodeDeadlineExceeded, CodeUnavailable, CodeConnection:
		return true
	default:
		return false
	}
}
