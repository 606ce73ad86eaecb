package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingHeaders means one or more of the id/timestamp/signature
	// headers was absent. Kept distinct from ErrInvalidSignature so the two
	// failure modes are observable separately in logs.
	ErrMissingHeaders = errors.New("missing webhook signature headers")
	// ErrInvalidTimestamp means the timestamp header was garbled or outside
	// the accepted tolerance window.
	ErrInvalidTimestamp = errors.New("webhook timestamp invalid or outside tolerance")
	// ErrInvalidSignature means no signature in the header matched the MAC
	// computed over the raw payload.
	ErrInvalidSignature = errors.New("webhook signature mismatch")
)

const secretPrefix = "whsec_"

// Verifier authenticates inbound webhook payloads using the provider's
// signing scheme: base64(HMAC-SHA256(secret, "{id}.{timestamp}.{body}"))
// computed over the exact raw body bytes, never a re-serialized form.
type Verifier struct {
	key       []byte
	tolerance time.Duration

	// now is injectable for tests
	now func() time.Time
}

// NewVerifier builds a Verifier from the shared signing secret
// ("whsec_<base64>"). A secret that is empty or not decodable is a
// configuration error.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	raw := strings.TrimPrefix(secret, secretPrefix)
	if raw == "" {
		return nil, fmt.Errorf("webhook signing secret is empty")
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("webhook signing secret is not valid base64: %w", err)
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify checks the signature header against the MAC of the raw payload
// combined with the message id and timestamp. The signature header may carry
// several space-separated "v1,<sig>" entries (key rotation); any constant-time
// match passes.
func (v *Verifier) Verify(payload []byte, msgID, timestamp, signature string) error {
	if msgID == "" || timestamp == "" || signature == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.tolerance || age < -v.tolerance {
		return ErrInvalidTimestamp
	}

	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, part := range strings.Split(signature, " ") {
		version, sig, found := strings.Cut(part, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign computes the signature header value for the given message. Used by
// tests and local tooling to produce valid deliveries.
func (v *Verifier) Sign(payload []byte, msgID, timestamp string) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
