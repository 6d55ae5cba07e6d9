package headers

// Correlation and Trace ID Headers
const (
	// HeaderXCorrelationID carries the correlation id of a unit of work across
	// the HTTP trigger API, the gRPC client and the gRPC server, so the log lines
	// of all three can be joined
	HeaderXCorrelationID = "x-correlation-id"

	// HeaderXTraceID is used for distributed tracing to track requests across
	// multiple services and create a complete trace of the request journey.
	// Used with Datadog APM
	HeaderXTraceID = "x-trace-id"

	// HeaderXSpanID is the id of the span that served the request
	HeaderXSpanID = "x-span-id"
)

// Client Identification Headers
const (
	// HeaderClientTaggingHeader is used to identify and tag requests from specific
	// clients or applications
	HeaderClientTaggingHeader = "x-client-id"
)
