package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam sessions ─────────────────────────────────────────────────
	ErrSessionBusy     ErrCode = "SESSION_BUSY"
	ErrInvalidChannel  ErrCode = "INVALID_CHANNEL"
	ErrExamNotFound    ErrCode = "EXAM_NOT_FOUND"
	ErrNoActiveSession ErrCode = "NO_ACTIVE_SESSION"
	ErrQuitRejected    ErrCode = "QUIT_REJECTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam sessions ─────────────────────────────────────────────────
	case ErrSessionBusy:
		return "The channel or user already has an active exam."
	case ErrInvalidChannel:
		return "Exams are not allowed in this channel."
	case ErrExamNotFound:
		return "Exam not found."
	case ErrNoActiveSession:
		return "There is no active exam for this user."
	case ErrQuitRejected:
		return "The exam cannot be quit until the next question is shown."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "Unexpected error."
	}
}
