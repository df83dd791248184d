package errors

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewError(t *testing.T) {
	err := New(ErrResourceExhausted, SeverityError, "lattice allocation failed")

	if err.Code != ErrResourceExhausted {
		t.Errorf("Expected code %s, got %s", ErrResourceExhausted, err.Code)
	}
	if err.Severity != SeverityError {
		t.Errorf("Expected severity %s, got %s", SeverityError, err.Severity)
	}
	if err.Message != "lattice allocation failed" {
		t.Errorf("Unexpected message: %s", err.Message)
	}
	if err.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if len(err.StackTrace) == 0 {
		t.Error("Stack trace should be captured")
	}
}

func TestWrapError(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrConfig, SeverityError, "failed to read property file", cause)

	if err.Cause != cause {
		t.Error("Cause should be set")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return cause")
	}
}

func TestErrorWithMetadata(t *testing.T) {
	err := New(ErrConfig, SeverityError, "invalid property value").
		WithMetadata("line", 42).
		WithMetadata("key", "tumor.maxStepCount")

	if len(err.Metadata) != 2 {
		t.Errorf("Expected 2 metadata entries, got %d", len(err.Metadata))
	}

	line, ok := err.Metadata["line"].(int)
	if !ok || line != 42 {
		t.Error("Metadata 'line' not set correctly")
	}
}

func TestRecoverable(t *testing.T) {
	err := New(ErrCapacityOverrun, SeverityWarning, "transient over-capacity during reconciliation")
	if !err.Recoverable {
		t.Error("Warning errors should be recoverable by default")
	}

	err2 := New(ErrInvariant, SeverityCritical, "site over capacity outside reconciliation")
	if err2.Recoverable {
		t.Error("Critical errors should not be recoverable by default")
	}

	err3 := New(ErrTimeout, SeverityError, "report flush timed out").WithRecoverable(true)
	if !err3.Recoverable {
		t.Error("Should be able to mark error as recoverable")
	}
}

func TestErrorHandler(t *testing.T) {
	logger := &SimpleLogger{}
	handler := NewErrorHandler(logger)

	recoveryAttempted := false
	handler.RegisterHandler(ErrResourceExhausted, func(err *EngineError) error {
		recoveryAttempted = true
		return nil // Successfully recovered
	})

	err := New(ErrResourceExhausted, SeverityWarning, "lattice allocation failed")
	result := handler.Handle(err)

	if result != nil {
		t.Errorf("Expected successful recovery, got error: %v", result)
	}
	if !recoveryAttempted {
		t.Error("Recovery handler should have been called")
	}
}

func TestErrorHandlerNonRecoverable(t *testing.T) {
	logger := &SimpleLogger{}
	handler := NewErrorHandler(logger)

	err := New(ErrInvariant, SeverityCritical, "component has negative cell count")
	result := handler.Handle(err)

	if result == nil {
		t.Error("Critical errors should not be recovered automatically")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	strategy := &RecoveryStrategy{}

	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("failure %d", attempts)
		}
		return nil
	}

	err := strategy.RetryWithBackoff(operation, 5, 1*time.Millisecond)
	if err != nil {
		t.Errorf("Expected successful retry, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoffExhausted(t *testing.T) {
	strategy := &RecoveryStrategy{}

	operation := func() error {
		return fmt.Errorf("always fails")
	}

	err := strategy.RetryWithBackoff(operation, 3, 1*time.Millisecond)
	if err == nil {
		t.Error("Expected error after max retries")
	}
}

func TestFallbackValue(t *testing.T) {
	strategy := &RecoveryStrategy{}

	result := strategy.FallbackValue(func() (interface{}, error) {
		return 42, nil
	}, 0)

	if result != 42 {
		t.Errorf("Expected 42, got %v", result)
	}

	result2 := strategy.FallbackValue(func() (interface{}, error) {
		return nil, fmt.Errorf("failure")
	}, "fallback")

	if result2 != "fallback" {
		t.Errorf("Expected fallback value, got %v", result2)
	}
}

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error {
			return fmt.Errorf("failure %d", i)
		})
		if err == nil {
			t.Error("Expected error")
		}
	}

	err := cb.Call(func() error {
		return nil
	})

	if err == nil {
		t.Error("Circuit breaker should be open")
	}

	time.Sleep(150 * time.Millisecond)

	err = cb.Call(func() error {
		return nil
	})

	if err != nil {
		t.Errorf("Circuit breaker should have reset, got error: %v", err)
	}
}

func TestErrorAggregator(t *testing.T) {
	agg := NewErrorAggregator()

	if agg.HasErrors() {
		t.Error("Should not have errors initially")
	}

	agg.Add(New(ErrResourceExhausted, SeverityWarning, "Warning 1"))
	agg.Add(New(ErrConfig, SeverityError, "Error 1"))
	agg.Add(New(ErrInvariant, SeverityCritical, "Critical 1"))

	if !agg.HasErrors() {
		t.Error("Should have errors after adding")
	}

	if len(agg.GetErrors()) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(agg.GetErrors()))
	}

	severity := agg.HighestSeverity()
	if severity != SeverityCritical {
		t.Errorf("Expected CRITICAL severity, got %s", severity)
	}
}

func TestErrorAggregatorEmpty(t *testing.T) {
	agg := NewErrorAggregator()

	if agg.Error() != "no errors" {
		t.Errorf("Expected 'no errors', got %s", agg.Error())
	}

	if agg.HighestSeverity() != SeverityInfo {
		t.Error("Empty aggregator should return INFO severity")
	}
}

func TestErrorString(t *testing.T) {
	err := New(ErrResourceExhausted, SeverityError, "Test error")
	str := err.Error()

	if str == "" {
		t.Error("Error string should not be empty")
	}

	if !strings.Contains(str, string(ErrResourceExhausted)) {
		t.Error("Error string should contain error code")
	}
}

func BenchmarkNewError(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = New(ErrResourceExhausted, SeverityError, "Test error")
	}
}

func BenchmarkWrapError(b *testing.B) {
	cause := fmt.Errorf("underlying")
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = Wrap(ErrConfig, SeverityError, "Test error", cause)
	}
}

func BenchmarkCircuitBreaker(b *testing.B) {
	cb := NewCircuitBreaker(3, 100*time.Millisecond)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cb.Call(func() error {
			return nil
		})
	}
}
