package sign

import (
	"strings"
	"testing"
)

func sampleFields() Fields {
	return Fields{
		MerchantID:        "M-001",
		Reference:         "REQUEST-20240105-000042",
		Amount:            "150000",
		CustomerEmail:     "awa@example.com",
		CustomerFirstName: "Awa",
		CustomerLastName:  "Diop",
		CustomerPhone:     "+221770000000",
		NotifyURL:         "https://api.example.com/payments/notify",
		ReturnURL:         "https://app.example.com/payments/return",
		Channel:           "MOBILE_MONEY",
		Description:       "Consultation juridique",
		ReturnContext:     "req-42",
	}
}

func TestSignKnownVector(t *testing.T) {
	got := NewSigner("topsecret").Sign(sampleFields())
	want := "4111b7b753d5f247beafb94d2c75277aaade1135172ba0d30c5fc98765d5ad13"
	if got != want {
		t.Fatalf("signature mismatch: got %s want %s", got, want)
	}
}

func TestSignDeterministic(t *testing.T) {
	s := NewSigner("topsecret")
	if s.Sign(sampleFields()) != s.Sign(sampleFields()) {
		t.Fatal("signature must be deterministic")
	}
}

func TestSignDependsOnEveryField(t *testing.T) {
	s := NewSigner("topsecret")
	base := s.Sign(sampleFields())

	mutations := []func(*Fields){
		func(f *Fields) { f.MerchantID = "M-002" },
		func(f *Fields) { f.Reference += "-A01" },
		func(f *Fields) { f.Amount = "150001" },
		func(f *Fields) { f.CustomerEmail = "x@example.com" },
		func(f *Fields) { f.CustomerFirstName = "Fatou" },
		func(f *Fields) { f.CustomerLastName = "Ndiaye" },
		func(f *Fields) { f.CustomerPhone = "+221780000000" },
		func(f *Fields) { f.NotifyURL = "https://other/notify" },
		func(f *Fields) { f.ReturnURL = "https://other/return" },
		func(f *Fields) { f.Channel = "CARD" },
		func(f *Fields) { f.Description = "Autre" },
		func(f *Fields) { f.ReturnContext = "req-43" },
	}
	for i, mutate := range mutations {
		f := sampleFields()
		mutate(&f)
		if s.Sign(f) == base {
			t.Fatalf("mutation %d did not change the signature", i)
		}
	}
}

func TestSignFieldOrderMatters(t *testing.T) {
	s := NewSigner("topsecret")
	a := sampleFields()
	b := a
	b.CustomerFirstName, b.CustomerLastName = a.CustomerLastName, a.CustomerFirstName
	if s.Sign(a) == s.Sign(b) {
		t.Fatal("swapping fields must change the signature")
	}
}

func TestVerifyNotificationBody(t *testing.T) {
	s := NewSigner("notify-secret")
	body := []byte(`{"reference":"REQUEST-20240105-000042","code":"0"}`)
	valid := "57e9868ed45ce249eeace4663f5560c49f4b64f698a74d9e3a197a80ede7ecc1"

	if !s.Verify(body, valid) {
		t.Fatal("expected signature to be valid")
	}
	if !s.Verify(body, " "+strings.ToUpper(valid)+"\n") {
		t.Fatal("hex case and surrounding space must not matter")
	}
	cases := map[string]string{
		"short":         "deadbeef",
		"not hex":       "not-hex",
		"empty":         "",
		"other secret":  NewSigner("other").Sign(sampleFields()),
		"versioned sig": s.Sign(sampleFields()),
	}
	for name, sig := range cases {
		if s.Verify(body, sig) {
			t.Fatalf("%s: unexpected valid signature", name)
		}
	}
	if s.Verify(append(body, ' '), valid) {
		t.Fatal("a modified body must not verify")
	}
}
