package toolcall

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// IDMode selects the identifier format for generated tool-call IDs.
type IDMode string

const (
	// IDModeChatCompletion produces call_<22 base62 chars>.
	IDModeChatCompletion IDMode = "chat_completion"
	// IDModeResponse produces fc_<48 hex chars>.
	IDModeResponse IDMode = "response"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateID returns a fresh random tool-call identifier. Randomness comes
// from crypto/rand; uniqueness is probabilistic, IDs are never checked
// against each other.
func GenerateID(mode IDMode) (string, error) {
	switch mode {
	case IDModeChatCompletion:
		suffix := make([]byte, 22)
		for i := range suffix {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
			if err != nil {
				return "", fmt.Errorf("generate tool call id: %w", err)
			}
			suffix[i] = idAlphabet[n.Int64()]
		}
		return "call_" + string(suffix), nil
	case IDModeResponse:
		raw := make([]byte, 24)
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("generate tool call id: %w", err)
		}
		return "fc_" + hex.EncodeToString(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown id mode %q", ErrInvalidArgument, mode)
	}
}
