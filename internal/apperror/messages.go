package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Upstream price source
	CodeUpstreamUnavailable:      "Market data source unavailable",
	CodeMalformedUpstreamPayload: "Market data source returned malformed data",
	CodeUpstreamStatus:           "Market data source returned an error status",

	// Query validation
	CodeInvalidItemID:      "Invalid item identifier",
	CodeTooManyItems:       "Too many items requested",
	CodeInvalidLocation:    "Unsupported market location",
	CodeInvalidQueryFilter: "Invalid query filter",

	// Catalog
	CodeCatalogLoadFailed: "Failed to load item catalog",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
