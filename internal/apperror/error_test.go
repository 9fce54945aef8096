package apperror

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew_DefaultMessage(t *testing.T) {
	err := New(CodeBundleRejected)
	if err.Message != messages[CodeBundleRejected] {
		t.Errorf("Message = %q", err.Message)
	}

	custom := New(Code("SOMETHING_ELSE"))
	if custom.Message != "SOMETHING_ELSE" {
		t.Errorf("unmapped code message = %q", custom.Message)
	}
}

func TestError_IncludesContextAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(CodeRelaySubmissionFailed, WithContext("eth_sendBundle"), WithCause(cause))

	msg := err.Error()
	for _, want := range []string{"RELAY_SUBMISSION_FAILED", "eth_sendBundle", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable with errors.Is")
	}
}

func TestHasCode_WalksChain(t *testing.T) {
	inner := New(CodeSigningFailed)
	outer := New(CodeRelaySubmissionFailed, WithCause(inner))
	wrapped := fmt.Errorf("submit: %w", outer)

	if !HasCode(wrapped, CodeRelaySubmissionFailed) || !HasCode(wrapped, CodeSigningFailed) {
		t.Error("HasCode should find both codes")
	}
	if HasCode(wrapped, CodeBundleTimeout) {
		t.Error("HasCode matched an absent code")
	}
	if GetCode(wrapped) != CodeRelaySubmissionFailed {
		t.Errorf("GetCode = %s", GetCode(wrapped))
	}
	if GetCode(errors.New("plain")) != CodeUnknownError {
		t.Error("plain errors should map to CodeUnknownError")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, CodeInternalError, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	existing := New(CodeBundleRejected)
	if got := Wrap(existing, CodeInternalError, "await"); got != existing || got.Context != "await" {
		t.Errorf("Wrap should keep the AppError and fill context, got %+v", got)
	}

	plain := errors.New("boom")
	got := Wrap(plain, CodeInternalError, "ledger")
	if got.Code != CodeInternalError || !errors.Is(got, plain) {
		t.Errorf("Wrap(plain) = %+v", got)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(CodeNoHealthyEndpoint), true},
		{New(CodeQuoteFailed, WithCause(New(CodeEthereumRPCError))), true},
		{New(CodeCircuitOpen), true},
		{New(CodeBundleRejected), false},
		{New(CodeConfigurationError), false},
		{errors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestLogArgs(t *testing.T) {
	args := LogArgs(New(CodeBundleTimeout, WithContext("target 101")))
	if len(args) != 6 || args[1] != "BUNDLE_TIMEOUT" || args[3] != "target 101" {
		t.Errorf("LogArgs = %v", args)
	}

	plain := LogArgs(errors.New("x"))
	if plain[1] != string(CodeUnknownError) {
		t.Errorf("LogArgs(plain) = %v", plain)
	}
}
