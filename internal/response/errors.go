package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation        ErrCode = "VALIDATION_ERROR"
	ErrInvalidID         ErrCode = "INVALID_ID"
	ErrInvalidPayload    ErrCode = "INVALID_PAYLOAD"
	ErrInvalidUploadLink ErrCode = "INVALID_UPLOAD_LINK"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam / attempt ────────────────────────────────────────────────
	ErrExamNotAvailable    ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamNotPublished    ErrCode = "EXAM_NOT_PUBLISHED"
	ErrAttemptNotActive    ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrAttemptCompleted    ErrCode = "ATTEMPT_ALREADY_COMPLETED"
	ErrAttemptInconsistent ErrCode = "ATTEMPT_INCONSISTENT"
	ErrGradingPending      ErrCode = "GRADING_PENDING"

	// ─── Uploads ───────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"
	ErrUploadFailed    ErrCode = "UPLOAD_FAILED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or passcode is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrInvalidUploadLink:
		return "This upload link is missing required parameters. Please scan the QR code again from the exam screen."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Exam / attempt ────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrExamNotPublished:
		return "This exam has not been published yet."
	case ErrAttemptNotActive:
		return "There is no active attempt for this exam."
	case ErrAttemptCompleted:
		return "This attempt has already been submitted."
	case ErrAttemptInconsistent:
		return "The attempt was recorded but its answers could not be saved. Please retry the submission."
	case ErrGradingPending:
		return "Grading for this response has not finished yet."

	// ─── Uploads ───────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type. Please upload a photo."
	case ErrFileTooLarge:
		return "The file exceeds the size limit."
	case ErrUploadFailed:
		return "Upload failed. Please try again."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
