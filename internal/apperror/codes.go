package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
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

// Executor-specific error codes
const (
	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeNoHealthyEndpoint        Code = "NO_HEALTHY_ENDPOINT"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"

	// Pricing / simulation
	CodeQuoteFailed      Code = "QUOTE_FAILED"
	CodePairNotFound     Code = "PAIR_NOT_FOUND"
	CodeSimulationFailed Code = "SIMULATION_FAILED"
	CodeInvalidTradeSize Code = "INVALID_TRADE_SIZE"

	// Bundle lifecycle
	CodeBundleEncodingFailed  Code = "BUNDLE_ENCODING_FAILED"
	CodeSigningFailed         Code = "SIGNING_FAILED"
	CodeRelaySubmissionFailed Code = "RELAY_SUBMISSION_FAILED"
	CodeBundleRejected        Code = "BUNDLE_REJECTED"
	CodeBundleTimeout         Code = "BUNDLE_TIMEOUT"

	// Accounting
	CodeDuplicateRecord   Code = "DUPLICATE_RECORD"
	CodeUnconfirmedRecord Code = "UNCONFIRMED_RECORD"

	// Telemetry
	CodeJournalWriteFailed Code = "JOURNAL_WRITE_FAILED"
	CodeNotifyFailed       Code = "NOTIFY_FAILED"

	// Loop
	CodeUnhandledFault Code = "UNHANDLED_FAULT"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
