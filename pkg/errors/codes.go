package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "Analysis request exceeded the time limit",
		SuggestedAction: "Raise llm.timeout in ~/.mta/config.yaml or pass --timeout",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "LLM provider rate limit or quota exceeded",
		SuggestedAction: "Wait and rerun, or analyze fewer meetings per run with --limit",
	},
	ErrModelUnavailable: {
		Code:            ErrModelUnavailable,
		Retryable:       true,
		Description:     "LLM provider or model unavailable",
		SuggestedAction: "Check llm.base_url and llm.model, then rerun",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled",
		SuggestedAction: "Rerun the command; completed meetings were not lost unless --save was off",
	},
	ErrAuthFailed: {
		Code:            ErrAuthFailed,
		Retryable:       false,
		Description:     "LLM provider rejected the API key",
		SuggestedAction: "Set a valid key: mta auth set llm_api_key, or export GEMINI_API_KEY",
	},
	ErrEmptyTranscriptCode: {
		Code:            ErrEmptyTranscriptCode,
		Retryable:       false,
		Description:     "Meeting has no transcript text",
		SuggestedAction: "Inspect the source record: mta parse-test --id <meeting-id>",
	},
	ErrParseFailed: {
		Code:            ErrParseFailed,
		Retryable:       false,
		Description:     "Transcript produced no utterances",
		SuggestedAction: "Run mta parse-test to see the failure reason, then mta move-failed",
	},
	ErrTemplateNotFoundCode: {
		Code:            ErrTemplateNotFoundCode,
		Retryable:       false,
		Description:     "Prompt template or version does not exist",
		SuggestedAction: "List available templates: mta templates list",
	},
	ErrStorage: {
		Code:            ErrStorage,
		Retryable:       true,
		Description:     "Document store read or write failed",
		SuggestedAction: "Check MONGODB_URI / store settings and connectivity",
	},
	ErrProcessingError: {
		Code:            ErrProcessingError,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Rerun with --debug for details",
	},
}

// IsRetryable returns true if the given error code represents a transient failure.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Rerun with --debug for details"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
