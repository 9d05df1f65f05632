package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldExpenseID   = "expense_id"
	FieldImageID     = "image_id"
	FieldMimeType    = "mime_type"
	FieldImageBytes  = "image_bytes"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldCount       = "count"
	FieldSkipped     = "skipped"
	FieldOnline      = "online"
	FieldKey         = "key"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentLedger       = "ledger"
	ComponentStorage      = "storage"
	ComponentQueue        = "queue"
	ComponentReplay       = "replay"
	ComponentCapture      = "capture"
	ComponentGateway      = "gateway"
	ComponentConnectivity = "connectivity"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentAuth         = "auth"
)

// Operations defines standard operation names
const (
	OpAdd      = "add"
	OpAddMany  = "add_many"
	OpUpdate   = "update"
	OpRemove   = "remove"
	OpEnqueue  = "enqueue"
	OpDiscard  = "discard"
	OpReplay   = "replay"
	OpAnalyze  = "analyze"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithImage adds queued image fields
func (f LogFields) WithImage(id, mimeType string, size int) LogFields {
	f[FieldImageID] = id
	f[FieldMimeType] = mimeType
	f[FieldImageBytes] = size
	return f
}

// WithHTTP adds HTTP request/response fields
func (f LogFields) WithHTTP(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
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
