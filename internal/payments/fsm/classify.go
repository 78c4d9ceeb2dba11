package fsm

import (
	"fmt"
	"strings"
)

// Codes lists the processor response codes the classifier recognises.
type Codes struct {
	Success    string
	Rejected   []string
	Cancelled  string
	Expired    string
	Processing []string
}

// DefaultCodes returns the sentinel set documented by the processor.
func DefaultCodes() Codes {
	return Codes{
		Success:    "0",
		Rejected:   []string{"REFUSED", "DECLINED", "INSUFFICIENT_FUNDS", "ERROR"},
		Cancelled:  "CANCEL",
		Expired:    "EXPIRED",
		Processing: []string{"PENDING", "PROCESSING"},
	}
}

// Outcome is the result of classifying one response code.
type Outcome struct {
	// Status is the target status. Empty when the code carries no outcome yet.
	Status Status
	// Message replaces the processor message when the code was not recognised.
	Message string
	// Recognized is false when the fail-closed default was applied.
	Recognized bool
}

// Classify maps a processor response code to a target status.
// An empty code yields an empty Outcome. Unrecognised codes map to FAILED.
func (c Codes) Classify(code, message string) Outcome {
	code = strings.TrimSpace(code)
	if code == "" {
		return Outcome{Message: message, Recognized: true}
	}
	switch {
	case strings.EqualFold(code, c.Success):
		return Outcome{Status: StatusSucceeded, Message: message, Recognized: true}
	case c.Cancelled != "" && strings.EqualFold(code, c.Cancelled):
		return Outcome{Status: StatusCancelled, Message: message, Recognized: true}
	case c.Expired != "" && strings.EqualFold(code, c.Expired):
		return Outcome{Status: StatusExpired, Message: message, Recognized: true}
	case containsFold(c.Rejected, code):
		return Outcome{Status: StatusFailed, Message: message, Recognized: true}
	case containsFold(c.Processing, code):
		return Outcome{Status: StatusProcessing, Message: message, Recognized: true}
	}
	msg := fmt.Sprintf("unrecognized response code: %s", code)
	if strings.TrimSpace(message) != "" {
		msg += " (" + strings.TrimSpace(message) + ")"
	}
	return Outcome{Status: StatusFailed, Message: msg, Recognized: false}
}

func containsFold(list []string, code string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), code) {
			return true
		}
	}
	return false
}
