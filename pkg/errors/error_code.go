package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown  ErrorCode = 1
	ErrCodeInternal ErrorCode = 2

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeInvalidTimeframe     ErrorCode = 103
	ErrCodeInvalidProvider      ErrorCode = 104

	// Transient I/O errors (200-299): retryable with bounded backoff, never fatal
	ErrCodeTransientIO    ErrorCode = 200
	ErrCodeRequestTimeout ErrorCode = 201
	ErrCodeRateLimited    ErrorCode = 202

	// Data format errors (300-399): skip the unit, log, continue
	ErrCodeDataFormat       ErrorCode = 300
	ErrCodeMalformedCandle  ErrorCode = 301
	ErrCodeMalformedArticle ErrorCode = 302

	// Market clock errors (400-499): callers fail safe to closed-market
	ErrCodeClockUnavailable ErrorCode = 400

	// Event bus errors (500-599): terminal, triggers orderly shutdown
	ErrCodeBusClosed ErrorCode = 500

	// Market data errors (600-699)
	ErrCodeMarketDataFetchFailed ErrorCode = 600
	ErrCodeMarketDataParseFailed ErrorCode = 601
	ErrCodeStreamDisconnected    ErrorCode = 602

	// News errors (700-799)
	ErrCodeNewsFetchFailed ErrorCode = 700

	// Notification errors (800-899)
	ErrCodeNotificationFailed ErrorCode = 800
)
