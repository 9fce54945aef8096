package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeNoHealthyEndpoint:        "No RPC endpoint answered",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Contract call failed",

	// Pricing / simulation
	CodeQuoteFailed:      "Router quote failed",
	CodePairNotFound:     "Liquidity pair not found",
	CodeSimulationFailed: "On-chain simulation failed",
	CodeInvalidTradeSize: "Invalid trade size",

	// Bundle lifecycle
	CodeBundleEncodingFailed:  "Failed to encode bundle call",
	CodeSigningFailed:         "Failed to sign transaction",
	CodeRelaySubmissionFailed: "Relay submission failed",
	CodeBundleRejected:        "Bundle rejected",
	CodeBundleTimeout:         "Bundle inclusion not observed",

	// Accounting
	CodeDuplicateRecord:   "Receipt already recorded",
	CodeUnconfirmedRecord: "Receipt is not confirmed",

	// Telemetry
	CodeJournalWriteFailed: "Failed to write journal record",
	CodeNotifyFailed:       "Failed to deliver notification",

	CodeUnhandledFault: "Unhandled fault escaped the tick",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
