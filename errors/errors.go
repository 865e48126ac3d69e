// Package errors provides unified error handling for the scribe services.
// It implements structured error types with error codes, HTTP status mapping,
// and retryable detection.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// SegmentationFailed creates an AppError for a failed audio segmentation.
// Segmentation failures are fatal to the session.
func SegmentationFailed(sessionID string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSegmentationFailed, Message: "Audio segmentation failed; the session cannot be processed.",
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false, Cause: cause,
		Details: map[string]any{"session_id": sessionID},
	}
}

// TranscriptionFailed creates an AppError for a segment whose transcription
// attempts are exhausted. Recoverable per-segment, not fatal to the session.
func TranscriptionFailed(index int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTranscriptionFailed, Message: fmt.Sprintf("Transcription failed for segment %d after all configuration tiers.", index),
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
		Details: map[string]any{"segment_index": index},
	}
}

// EmptyTranscript creates an AppError for an empty or sentinel-only model result.
func EmptyTranscript(index int) *AppError {
	return &AppError{
		Code: ErrCodeEmptyTranscript, Message: fmt.Sprintf("Model returned an empty or blank-only transcript for segment %d.", index),
		HTTPStatus: http.StatusInternalServerError, Retryable: true,
		Details: map[string]any{"segment_index": index},
	}
}

// TensorShapeMismatch creates an AppError for the recognized tensor-shape
// failure class. Remedied by re-normalizing the audio before the next tier.
func TensorShapeMismatch(index int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTensorShapeMismatch, Message: fmt.Sprintf("Model rejected segment %d with a tensor shape mismatch.", index),
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
		Details: map[string]any{"segment_index": index},
	}
}

// AudioInvalid creates an AppError for a missing or undersized audio artifact.
func AudioInvalid(path string) *AppError {
	return &AppError{
		Code: ErrCodeAudioInvalid, Message: "Audio artifact is missing or too small to transcribe.",
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: true,
		Details: map[string]any{"path": path},
	}
}

// StoreLocked creates an AppError for exhausted lock acquisition attempts.
func StoreLocked(sessionID string) *AppError {
	return &AppError{
		Code: ErrCodeStoreLocked, Message: "Session record is locked by another updater.",
		HTTPStatus: http.StatusConflict, Retryable: true,
		Details: map[string]any{"session_id": sessionID},
	}
}

// RecordCorrupt creates an AppError for an unreadable session record.
func RecordCorrupt(sessionID string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeRecordCorrupt, Message: "Session record could not be decoded.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
		Details: map[string]any{"session_id": sessionID},
	}
}

// QueueFull creates an AppError for an enqueue that timed out against a full queue.
func QueueFull() *AppError {
	return &AppError{
		Code: ErrCodeQueueFull, Message: "Dispatch queue is full; the job was not accepted.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// NotFound creates an AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates an AppError for an invalid request.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// Internal creates an AppError for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
