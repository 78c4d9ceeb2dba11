package service

import (
	"errors"
	"fmt"
	"strings"

	"juristBack/internal/payments/repo"
)

// Error codes surfaced to callers.
const (
	CodeInvalidPayableType    = "invalid_payable_type"
	CodeInvalidPayableID      = "invalid_payable_id"
	CodePayableNotFound       = "payable_not_found"
	CodeMissingCustomerFields = "missing_customer_fields"
	CodeNothingDue            = "nothing_due"
	CodeInitFailed            = "init_failed"
)

var (
	// ErrNotFound is returned when no payment matches the lookup.
	ErrNotFound = repo.ErrNotFound
	// ErrAmountMismatch is returned when a message restates a different amount.
	ErrAmountMismatch = errors.New("amount mismatch")
	// ErrInitiationInProgress is returned while another initiation for the payable has no session yet.
	ErrInitiationInProgress = errors.New("payment initiation in progress")
	// ErrConflict is returned when the payment changed under an initiation.
	ErrConflict = errors.New("payment changed concurrently")
)

// ValidationError rejects an initiation before any record is written.
type ValidationError struct {
	Code   string
	Fields []string
	Detail string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed: ")
	b.WriteString(e.Code)
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// GatewayError reports a failed initiation. The payment is already FAILED.
type GatewayError struct {
	Reference    string
	ResponseCode string
	Message      string
	Err          error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway initiation failed for %s", e.Reference)
	if e.ResponseCode != "" {
		msg += " (code " + e.ResponseCode + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Code returns the caller-facing error code.
func (e *GatewayError) Code() string { return CodeInitFailed }
