package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// MemoryDirectory is an in-memory UserDirectory. The real directory is an
// external collaborator; this implementation covers single-instance
// deployments and tests.
type MemoryDirectory struct {
	mu         sync.Mutex
	byAddress  map[string]string // normalized address -> identity id
	identities map[string]core.Identity
	now        func() time.Time
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byAddress:  make(map[string]string),
		identities: make(map[string]core.Identity),
		now:        time.Now,
	}
}

// FindIdentityByAddress returns the identity owning an address.
func (d *MemoryDirectory) FindIdentityByAddress(ctx context.Context, address string) (core.Identity, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byAddress[core.NormalizeAddress(address)]
	if !ok {
		return core.Identity{}, false, nil
	}

	return d.identities[id], true, nil
}

// CreateIdentity creates a new identity owning the address.
func (d *MemoryDirectory) CreateIdentity(ctx context.Context, address string) (core.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	normalized := core.NormalizeAddress(address)
	now := d.now()

	identity := core.Identity{
		ID:         uuid.New().String(),
		Addresses:  []string{normalized},
		CreatedAt:  now,
		LastSeenAt: now,
	}

	d.byAddress[normalized] = identity.ID
	d.identities[identity.ID] = identity

	return identity, nil
}

// TouchIdentity updates the identity's last-seen timestamp.
func (d *MemoryDirectory) TouchIdentity(ctx context.Context, identityID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	identity, ok := d.identities[identityID]
	if !ok {
		return core.ErrIdentityNotFound
	}

	identity.LastSeenAt = d.now()
	d.identities[identityID] = identity

	return nil
}
