package verifier

import (
	"fmt"
	"strings"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// Registry dispatches signature verification to the recoverer registered for
// a chain family. New chains are added with Register without touching callers.
type Registry struct {
	recoverers map[ports.ChainFamily]ports.AddressRecoverer
}

// NewRegistry creates a registry with the EVM recoverer pre-registered.
func NewRegistry() *Registry {
	r := &Registry{recoverers: make(map[ports.ChainFamily]ports.AddressRecoverer)}
	r.Register(ports.ChainFamilyEVM, NewEVMRecoverer())
	return r
}

// Register adds or replaces the recoverer for a chain family.
func (r *Registry) Register(family ports.ChainFamily, recoverer ports.AddressRecoverer) {
	r.recoverers[family] = recoverer
}

// Verify recovers the signer of (message, signature) under the family's
// scheme and compares it case-insensitively to address.
func (r *Registry) Verify(address, message, signature string, family ports.ChainFamily) error {
	recoverer, ok := r.recoverers[family]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnsupportedChain, family)
	}

	recovered, err := recoverer.RecoverAddress(message, signature)
	if err != nil {
		return err
	}

	if !strings.EqualFold(recovered, address) {
		return core.ErrInvalidSignature
	}

	return nil
}
