package ports

import (
	"context"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// UserDirectory is the external collaborator that owns Identity and
// WalletAddress records. This subsystem reads and writes it during
// authentication only.
type UserDirectory interface {
	// FindIdentityByAddress returns the identity owning a normalized address;
	// ok is false when the address is unseen.
	FindIdentityByAddress(ctx context.Context, address string) (core.Identity, bool, error)

	// CreateIdentity creates a new identity owning the address.
	CreateIdentity(ctx context.Context, address string) (core.Identity, error)

	// TouchIdentity updates the identity's last-seen timestamp.
	TouchIdentity(ctx context.Context, identityID string) error
}
