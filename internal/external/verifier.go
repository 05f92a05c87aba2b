package external

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"craftfolio/internal/types"
)

// CallbackVerifier authenticates a payment callback against the shared
// provider secret. Implementations must be pure: same inputs, same answer.
type CallbackVerifier interface {
	// Verify reports whether the signature was genuinely issued by the
	// provider for the given order and payment. A mismatch is a normal
	// false, never an error; callers treat failure as "reject the
	// request", not as a retryable condition.
	Verify(orderID, paymentID, signature string) bool
}

// HMACVerifier implements CallbackVerifier using the provider's signing
// scheme: hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
type HMACVerifier struct {
	secret types.SecretString
}

// NewHMACVerifier creates a verifier bound to the provider key secret.
func NewHMACVerifier(secret types.SecretString) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

// Verify recomputes the expected signature and compares it to the supplied
// one in constant time. hmac.Equal is used rather than string equality so
// the comparison does not leak timing information about the expected value.
func (v *HMACVerifier) Verify(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(v.secret.Unmask()))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Compile-time assertion that HMACVerifier satisfies CallbackVerifier.
var _ CallbackVerifier = (*HMACVerifier)(nil)
