package paymentshttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"juristBack/internal/payments/service"
)

const maxInboundBody = 64 << 10

// inbound holds the raw fields of a notification or redirect.
type inbound struct {
	Reference string
	SessionID string
	Code      string
	Message   string
	Amount    string
}

type inboundJSON struct {
	Reference       string          `json:"reference"`
	Ref             string          `json:"ref"`
	SessionID       string          `json:"session_id"`
	SessionIDCamel  string          `json:"sessionId"`
	Code            json.RawMessage `json:"code"`
	ResponseCode    json.RawMessage `json:"response_code"`
	Message         string          `json:"message"`
	ResponseMessage string          `json:"response_message"`
	Amount          json.RawMessage `json:"amount"`
}

// readInbound reads the body once and decodes JSON or form fields from it.
// Query parameters fill whatever the body left empty.
func readInbound(r *http.Request) (inbound, []byte, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBody))
		if err != nil {
			return inbound{}, nil, fmt.Errorf("read body: %w", err)
		}
		body = b
	}

	var in inbound
	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) == 0:
	case strings.Contains(r.Header.Get("Content-Type"), "json") || trimmed[0] == '{':
		var raw inboundJSON
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return inbound{}, body, fmt.Errorf("decode json: %w", err)
		}
		in = inbound{
			Reference: first(raw.Reference, raw.Ref),
			SessionID: first(raw.SessionID, raw.SessionIDCamel),
			Code:      first(rawString(raw.Code), rawString(raw.ResponseCode)),
			Message:   first(raw.Message, raw.ResponseMessage),
			Amount:    rawString(raw.Amount),
		}
	default:
		form, err := url.ParseQuery(string(trimmed))
		if err != nil {
			return inbound{}, body, fmt.Errorf("decode form: %w", err)
		}
		in = fromValues(form)
	}

	q := fromValues(r.URL.Query())
	in.Reference = first(in.Reference, q.Reference)
	in.SessionID = first(in.SessionID, q.SessionID)
	in.Code = first(in.Code, q.Code)
	in.Message = first(in.Message, q.Message)
	in.Amount = first(in.Amount, q.Amount)
	return in, body, nil
}

func fromValues(v url.Values) inbound {
	return inbound{
		Reference: first(v.Get("reference"), v.Get("ref")),
		SessionID: first(v.Get("session_id"), v.Get("sessionId"), v.Get("token")),
		Code:      first(v.Get("code"), v.Get("response_code")),
		Message:   first(v.Get("message"), v.Get("response_message")),
		Amount:    v.Get("amount"),
	}
}

// message passes the amount through as received; it is checked against the
// stored payment once the payment is known not to be final.
func (in inbound) message() service.Message {
	return service.Message{
		Reference: in.Reference,
		SessionID: in.SessionID,
		Code:      in.Code,
		Message:   in.Message,
		Amount:    in.Amount,
	}
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
