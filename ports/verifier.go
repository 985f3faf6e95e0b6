package ports

// ChainFamily identifies the signature scheme of a blockchain family.
type ChainFamily string

// ChainFamilyEVM covers secp256k1 personal-sign recovery (Ethereum and
// EVM-compatible chains).
const ChainFamilyEVM ChainFamily = "evm"

// AddressRecoverer recovers the signer address from a message and signature.
// Implementations are pure: no side effects, no external I/O.
type AddressRecoverer interface {
	RecoverAddress(message string, signature string) (address string, err error)
}
