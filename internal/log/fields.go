package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldScanID      = "scan_id"
	FieldBackend     = "backend"
	FieldQuery       = "query"
	FieldMessageID   = "message_id"
	FieldMerchant    = "merchant"
	FieldAmountCents = "amount_cents"
	FieldFrequency   = "frequency"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldExchange    = "exchange"
	FieldRoutingKey  = "routing_key"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentScanner   = "scanner"
	ComponentGmail     = "gmail"
	ComponentAMQP      = "amqp"
	ComponentBackend   = "backend"
	ComponentOAuthInit = "oauth_init"
)

// Operations defines standard operation names
const (
	OpSearch  = "search"
	OpFetch   = "fetch"
	OpExtract = "extract"
	OpPublish = "publish"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeNetwork    = "network_error"
	ErrorTypeFetch      = "fetch_error"
	ErrorTypeExtraction = "extraction_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithScanID adds the scan identifier
func (f LogFields) WithScanID(id string) LogFields {
	f[FieldScanID] = id
	return f
}

// WithMessageID adds the mailbox message id
func (f LogFields) WithMessageID(id string) LogFields {
	f[FieldMessageID] = id
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds an error category
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCharge adds the fields of an extracted charge
func (f LogFields) WithCharge(merchant string, amountCents int64, frequency string) LogFields {
	f[FieldMerchant] = merchant
	f[FieldAmountCents] = amountCents
	f[FieldFrequency] = frequency
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
