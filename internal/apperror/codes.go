package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Market-specific error codes
const (
	// Upstream price source
	CodeUpstreamUnavailable      Code = "UPSTREAM_UNAVAILABLE"
	CodeMalformedUpstreamPayload Code = "MALFORMED_UPSTREAM_PAYLOAD"
	CodeUpstreamStatus           Code = "UPSTREAM_STATUS_ERROR"

	// Query validation
	CodeInvalidItemID      Code = "INVALID_ITEM_ID"
	CodeTooManyItems       Code = "TOO_MANY_ITEMS"
	CodeInvalidLocation    Code = "INVALID_LOCATION"
	CodeInvalidQueryFilter Code = "INVALID_QUERY_FILTER"

	// Catalog
	CodeCatalogLoadFailed Code = "CATALOG_LOAD_FAILED"

	// Cache errors
	CodeCacheMiss    Code = "CACHE_MISS"
	CodeCacheExpired Code = "CACHE_EXPIRED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
