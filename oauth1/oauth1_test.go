package oauth1

import (
	"strings"
	"testing"
	"time"

	"postscheduler/pkg/scheduler"
)

// Known-good fixture from the platform's published signing walkthrough.
// If this test breaks, the platform will reject every request we sign.
const (
	fixtureConsumerKey    = "xvz1evFS4wEEPTGEFPHBog"
	fixtureConsumerSecret = "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw"
	fixtureToken          = "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb"
	fixtureTokenSecret    = "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE"
	fixtureNonce          = "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg"
	fixtureTimestamp      = "1318622958"
	fixtureSignature      = "tnnArxj06cWHq44gCs1OSKk/jLY="
)

func fixtureParams() map[string]string {
	return map[string]string{
		"status":                 "Hello Ladies + Gentlemen, a signed OAuth request!",
		"include_entities":       "true",
		"oauth_consumer_key":     fixtureConsumerKey,
		"oauth_nonce":            fixtureNonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fixtureTimestamp,
		"oauth_token":            fixtureToken,
		"oauth_version":          "1.0",
	}
}

func TestSignReferenceVector(t *testing.T) {
	s := &Signer{
		ConsumerKey:    fixtureConsumerKey,
		ConsumerSecret: fixtureConsumerSecret,
		Token:          fixtureToken,
		TokenSecret:    fixtureTokenSecret,
	}

	got := s.Sign("POST", "https://api.twitter.com/1.1/statuses/update.json", fixtureParams())
	if got != fixtureSignature {
		t.Errorf("Sign() = %q, want %q", got, fixtureSignature)
	}
}

func TestSignDeterministic(t *testing.T) {
	s := &Signer{
		ConsumerKey:    fixtureConsumerKey,
		ConsumerSecret: fixtureConsumerSecret,
		Token:          fixtureToken,
		TokenSecret:    fixtureTokenSecret,
	}

	first := s.Sign("POST", "https://api.twitter.com/1.1/statuses/update.json", fixtureParams())
	second := s.Sign("POST", "https://api.twitter.com/1.1/statuses/update.json", fixtureParams())
	if first != second {
		t.Errorf("Sign() not deterministic: %q vs %q", first, second)
	}
}

func TestSignatureBaseDoubleEncodes(t *testing.T) {
	base := SignatureBase("post", "https://api.twitter.com/1.1/statuses/update.json", fixtureParams())

	if !strings.HasPrefix(base, "POST&https%3A%2F%2Fapi.twitter.com%2F1.1%2Fstatuses%2Fupdate.json&") {
		t.Errorf("base string prefix wrong: %q", base[:80])
	}
	// "Hello Ladies + ..." has its space encoded to %20 in the parameter
	// string, then the percent sign itself encoded to %25 when the parameter
	// string is embedded in the base string.
	if !strings.Contains(base, "status%3DHello%2520Ladies%2520%252B%2520Gentlemen") {
		t.Errorf("status parameter not double-encoded in base string: %q", base)
	}
}

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ladies + Gentlemen", "Ladies%20%2B%20Gentlemen"},
		{"An encoded string!", "An%20encoded%20string%21"},
		{"Dogs, Cats & Mice", "Dogs%2C%20Cats%20%26%20Mice"},
		{"☃", "%E2%98%83"},
		{"abcABC123-._~", "abcABC123-._~"},
	}

	for _, tt := range tests {
		if got := PercentEncode(tt.in); got != tt.want {
			t.Errorf("PercentEncode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAuthHeader(t *testing.T) {
	s := &Signer{
		ConsumerKey:    fixtureConsumerKey,
		ConsumerSecret: fixtureConsumerSecret,
		Token:          fixtureToken,
		TokenSecret:    fixtureTokenSecret,
		Nonce:          func() (string, error) { return fixtureNonce, nil },
		Now:            func() time.Time { return time.Unix(1318622958, 0) },
	}

	header, err := s.AuthHeader("POST", "https://api.twitter.com/2/tweets")
	if err != nil {
		t.Fatalf("AuthHeader() error: %v", err)
	}

	if !strings.HasPrefix(header, "OAuth ") {
		t.Errorf("header missing OAuth prefix: %q", header)
	}
	for _, want := range []string{
		`oauth_consumer_key="` + fixtureConsumerKey + `"`,
		`oauth_nonce="` + fixtureNonce + `"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_timestamp="1318622958"`,
		`oauth_version="1.0"`,
		`oauth_signature="`,
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q: %q", want, header)
		}
	}

	// Parameters must appear sorted lexicographically by key.
	idxKey := strings.Index(header, "oauth_consumer_key")
	idxNonce := strings.Index(header, "oauth_nonce")
	idxSig := strings.Index(header, "oauth_signature=")
	idxVersion := strings.Index(header, "oauth_version")
	if !(idxKey < idxNonce && idxNonce < idxSig && idxSig < idxVersion) {
		t.Errorf("header parameters not sorted: %q", header)
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	s := &Signer{ConsumerKey: "k", Token: "t"}

	err := s.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want configuration error")
	}
	if !scheduler.IsConfigError(err) {
		t.Errorf("Validate() error type = %T, want *scheduler.ConfigError", err)
	}
	if !strings.Contains(err.Error(), "consumer secret") || !strings.Contains(err.Error(), "access token secret") {
		t.Errorf("error should name the missing credentials: %v", err)
	}

	if _, err := s.AuthHeader("POST", "https://api.twitter.com/2/tweets"); err == nil {
		t.Error("AuthHeader() should fail fast on missing credentials")
	}
}
