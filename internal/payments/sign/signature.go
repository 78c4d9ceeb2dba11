package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Version1 is the field order agreed with the processor. Changing it invalidates every signature.
const Version1 = "v1"

// Fields are the signed parts of an initiation request.
type Fields struct {
	MerchantID        string
	Reference         string
	Amount            string
	CustomerEmail     string
	CustomerFirstName string
	CustomerLastName  string
	CustomerPhone     string
	NotifyURL         string
	ReturnURL         string
	Channel           string
	Description       string
	ReturnContext     string
}

// Canonical returns the fields in contract order.
func (f Fields) Canonical() []string {
	return []string{
		f.MerchantID,
		f.Reference,
		f.Amount,
		f.CustomerEmail,
		f.CustomerFirstName,
		f.CustomerLastName,
		f.CustomerPhone,
		f.NotifyURL,
		f.ReturnURL,
		f.Channel,
		f.Description,
		f.ReturnContext,
	}
}

// Signer computes request signatures.
type Signer struct {
	secret  string
	version string
}

// NewSigner returns a v1 signer.
func NewSigner(secret string) *Signer {
	return &Signer{secret: secret, version: Version1}
}

// Version returns the contract version the signer implements.
func (s *Signer) Version() string { return s.version }

// Sign returns hex(HMAC-SHA256(secret, version|f1|f2|...)).
func (s *Signer) Sign(f Fields) string {
	return hex.EncodeToString(s.mac([]byte(s.version + "|" + strings.Join(f.Canonical(), "|"))))
}

// Verify reports whether signature is the hex HMAC-SHA256 of a notification body.
// Notification bodies are signed as received, without the version prefix.
func (s *Signer) Verify(body []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(s.mac(body), got)
}

func (s *Signer) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, []byte(s.secret))
	m.Write(payload)
	return m.Sum(nil)
}
