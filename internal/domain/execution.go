package domain

// ExecutionOptions carries the per-call overrides spec.md §3 allows on
// an ExecutionRequest (`return_screenshots`, `screenshot_quality`,
// `timeout_seconds`). Zero values mean "use the configured default".
type ExecutionOptions struct {
	ReturnScreenshots *bool `json:"return_screenshots,omitempty"`
	ScreenshotQuality int   `json:"screenshot_quality,omitempty"`
	TimeoutSeconds    int   `json:"timeout_seconds,omitempty"`
}

// WantsScreenshots resolves the tri-state ReturnScreenshots flag
// against a component default.
func (o ExecutionOptions) WantsScreenshots(defaultValue bool) bool {
	if o.ReturnScreenshots == nil {
		return defaultValue
	}
	return *o.ReturnScreenshots
}

// ExecutionRequest is the input to execute_wizard (spec.md §3/§6).
type ExecutionRequest struct {
	WizardID string                 `json:"wizard_id"`
	UserData map[string]interface{} `json:"user_data"`
	Options  ExecutionOptions       `json:"options,omitempty"`
}

// ExecutionOutcome tags which arm of the ExecutionResult union is set.
type ExecutionOutcome string

const (
	OutcomeSuccess         ExecutionOutcome = "success"
	OutcomeValidationError ExecutionOutcome = "validation_error"
	OutcomeMissingData     ExecutionOutcome = "missing_data"
	OutcomeExecutionError  ExecutionOutcome = "execution_error"
)

// MissingField describes one gap reported by C6 (spec.md §4.6, §8 S3).
type MissingField struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label,omitempty"`
	Example string `json:"example,omitempty"`
}

// InvalidField describes one type/pattern/enum violation reported by C6.
type InvalidField struct {
	FieldID  string      `json:"field_id"`
	Value    interface{} `json:"value"`
	Message  string      `json:"message"`
}

// Screenshot is a typed content part (spec.md §4.1/§9): callers that
// support typed transport parts should surface this separately, never
// embedded as a base64 string inside a larger JSON blob.
type Screenshot struct {
	PageNumber int    `json:"page_number,omitempty"`
	Label      string `json:"label,omitempty"`
	JPEGBytes  []byte `json:"-"`
	ByteSize   int    `json:"byte_size"`
}

// PageResult captures what happened on one page during a replay.
type PageResult struct {
	PageNumber int    `json:"page_number"`
	Completed  bool   `json:"completed"`
	Warning    string `json:"warning,omitempty"`
}

// ExecutionResult is the tagged union returned by execute_wizard
// (spec.md §3, §7). Exactly one of the outcome-specific fields is
// meaningful, selected by Outcome.
type ExecutionResult struct {
	Outcome ExecutionOutcome `json:"outcome"`

	// Outcome == success
	PagesCompleted  int          `json:"pages_completed,omitempty"`
	Results         []PageResult `json:"results,omitempty"`
	ExecutionTimeMs int64        `json:"execution_time_ms,omitempty"`
	ExtractedData   map[string]interface{} `json:"extracted_data,omitempty"`
	Warnings        []string     `json:"warnings,omitempty"`

	// Outcome == validation_error
	Page     int      `json:"page,omitempty"`
	Messages []string `json:"messages,omitempty"`

	// Outcome == missing_data
	MissingFields []MissingField `json:"missing_fields,omitempty"`

	// Outcome == validation_error (C6 shape): schema-level type/pattern
	// violations. missing_data results leave this empty.
	InvalidFields []InvalidField `json:"invalid_fields,omitempty"`

	// Outcome == execution_error
	ErrorKind string `json:"error_kind,omitempty"`
	Detail    string `json:"detail,omitempty"`

	Screenshots []Screenshot `json:"-"`
}

// Success builds a success-outcome result.
func Success(pagesCompleted int, results []PageResult, elapsedMs int64, screenshots []Screenshot) *ExecutionResult {
	return &ExecutionResult{
		Outcome:         OutcomeSuccess,
		PagesCompleted:  pagesCompleted,
		Results:         results,
		ExecutionTimeMs: elapsedMs,
		Screenshots:     screenshots,
	}
}

// ValidationErrorResult builds a validation_error-outcome result.
func ValidationErrorResult(page int, messages []string, screenshots []Screenshot) *ExecutionResult {
	return &ExecutionResult{
		Outcome:     OutcomeValidationError,
		Page:        page,
		Messages:    messages,
		Screenshots: screenshots,
	}
}

// MissingDataResult builds a missing_data-outcome result.
func MissingDataResult(missing []MissingField) *ExecutionResult {
	return &ExecutionResult{
		Outcome:       OutcomeMissingData,
		MissingFields: missing,
	}
}

// SchemaValidationErrorResult builds a validation_error-outcome result
// for C6-reported type/pattern/enum violations, as opposed to a
// wizard-page validation_error which also carries a Page and
// Messages (spec.md §4.8 step 2).
func SchemaValidationErrorResult(invalid []InvalidField) *ExecutionResult {
	return &ExecutionResult{
		Outcome:       OutcomeValidationError,
		InvalidFields: invalid,
	}
}

// ExecutionErrorResult builds an execution_error-outcome result from
// one of the domain.Kind* taxonomy values.
func ExecutionErrorResult(kind, detail string) *ExecutionResult {
	return &ExecutionResult{
		Outcome:   OutcomeExecutionError,
		ErrorKind: kind,
		Detail:    detail,
	}
}
