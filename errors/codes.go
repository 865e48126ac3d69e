package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline errors
const (
	// ErrCodeSegmentationFailed indicates the source audio could not be segmented.
	ErrCodeSegmentationFailed ErrorCode = "SEGMENTATION_FAILED"
	// ErrCodeTranscriptionFailed indicates a segment exhausted all configuration tiers.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeEmptyTranscript indicates the model returned an empty or blank-only result.
	ErrCodeEmptyTranscript ErrorCode = "EMPTY_TRANSCRIPT"
	// ErrCodeTensorShapeMismatch indicates the recognized tensor-shape failure class.
	ErrCodeTensorShapeMismatch ErrorCode = "TENSOR_SHAPE_MISMATCH"
	// ErrCodeAudioInvalid indicates a missing or undersized audio artifact.
	ErrCodeAudioInvalid ErrorCode = "AUDIO_INVALID"
)

// Store errors
const (
	// ErrCodeStoreLocked indicates lock acquisition on a session record failed.
	ErrCodeStoreLocked ErrorCode = "STORE_LOCKED"
	// ErrCodeRecordCorrupt indicates a session record could not be decoded.
	ErrCodeRecordCorrupt ErrorCode = "RECORD_CORRUPT"
	// ErrCodeQueueFull indicates the dispatch queue rejected a job.
	ErrCodeQueueFull ErrorCode = "QUEUE_FULL"
)

// Request errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeEmptyTranscript:     true,
	ErrCodeTensorShapeMismatch: true,
	ErrCodeAudioInvalid:        true,
	ErrCodeStoreLocked:         true,
	ErrCodeRecordCorrupt:       true,
	ErrCodeQueueFull:           true,
}

// IsRetryableCode reports whether an error code is considered retryable.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
