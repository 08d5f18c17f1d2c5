package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 103
	ErrCodeUnknownSignalColumn  ErrorCode = 104
	ErrCodeInvalidSizing        ErrorCode = 105
	ErrCodeInvalidOrderIntent   ErrorCode = 106
	ErrCodeInvalidRule          ErrorCode = 107

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeDataUnavailable       ErrorCode = 203

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeInsufficientHistory    ErrorCode = 302

	// Signal errors (400-499)
	ErrCodeSignalAlreadyExists ErrorCode = 400
	ErrCodeInvalidRelation     ErrorCode = 401
	ErrCodeInvalidFormula      ErrorCode = 402

	// Execution errors (500-599)
	ErrCodeNoNextBar   ErrorCode = 500
	ErrCodeFillFailed  ErrorCode = 501
	ErrCodeNoPosition  ErrorCode = 502
	ErrCodeLedgerWrite ErrorCode = 503

	// Backtest errors (600-699)
	ErrCodeBacktestStateNil     ErrorCode = 600
	ErrCodeBacktestInitFailed   ErrorCode = 601
	ErrCodeBacktestConfigError  ErrorCode = 602
	ErrCodeBacktestNoDatasource ErrorCode = 603
	ErrCodeBacktestNoStrategy   ErrorCode = 604
	ErrCodeBacktestNoResultsDir ErrorCode = 605

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidProvider       ErrorCode = 703
)
