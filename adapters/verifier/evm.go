package verifier

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// EVMRecoverer recovers the signer address of an EIP-191 personal_sign
// signature (secp256k1) as produced by eth_sign / personal_sign in wallets.
type EVMRecoverer struct{}

// NewEVMRecoverer creates an EVMRecoverer.
func NewEVMRecoverer() *EVMRecoverer {
	return &EVMRecoverer{}
}

// RecoverAddress recovers the checksummed signer address from a message and
// a 0x-prefixed 65-byte signature.
func (r *EVMRecoverer) RecoverAddress(message string, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d: %w", len(sig), core.ErrInvalidSignature)
	}

	// Wallets return V as 27/28; go-ethereum expects 0/1.
	v := sig[64]
	if v == 27 || v == 28 {
		sig = append([]byte(nil), sig...)
		sig[64] = v - 27
	} else if v > 1 {
		return "", fmt.Errorf("invalid recovery id %d: %w", v, core.ErrInvalidSignature)
	}

	digest := personalSignHash([]byte(message))

	pubKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", core.ErrInvalidSignature)
	}

	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// personalSignHash applies the EIP-191 prefix before hashing, matching what
// personal_sign does client-side.
func personalSignHash(data []byte) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256([]byte(prefixed))
}
