package blob

import (
	"context"
	"fmt"

	"docshelf/internal/service"
	"docshelf/internal/storage"
)

// InlineThreshold is the largest raw size, in bytes, stored directly on the
// relational row. Larger content goes to the object store so rows stay small
// while the common case keeps its single-hop read path.
const InlineThreshold = 10 << 20 // 10 MiB

// Placement describes where a file's bytes ended up.
type Placement struct {
	Kind storage.StorageKind
	// Ref is the object-store reference; set only for external placements.
	Ref string
	// Inline holds the bytes destined for the relational row; set only for
	// inline placements.
	Inline []byte
}

// Policy decides, at file-creation time, whether raw bytes are stored inline
// or deferred to the object store.
type Policy struct {
	store ObjectStore
}

// NewPolicy creates a Policy writing oversized content to store.
func NewPolicy(store ObjectStore) *Policy {
	return &Policy{store: store}
}

// Place applies the placement rules for a single file:
//
//   - raw absent, externalRef given: the content already lives externally
//     (e.g. a pre-signed upload); record the reference as-is.
//   - raw present and at most InlineThreshold: inline.
//   - raw present and larger: written to the object store under
//     owner/fileID. A store failure is fatal for this file only.
func (p *Policy) Place(ctx context.Context, owner, fileID string, raw []byte, externalRef string) (Placement, error) {
	if raw == nil {
		if externalRef == "" {
			return Placement{}, &service.ValidationError{
				Field:   "content",
				Message: "either raw content or an external reference is required",
			}
		}
		return Placement{Kind: storage.StorageExternal, Ref: externalRef}, nil
	}

	if len(raw) <= InlineThreshold {
		return Placement{Kind: storage.StorageInline, Inline: raw}, nil
	}

	ref, err := p.store.Put(ctx, fmt.Sprintf("%s/%s", owner, fileID), raw)
	if err != nil {
		return Placement{}, fmt.Errorf("%w: %v", service.ErrStorageBackend, err)
	}
	return Placement{Kind: storage.StorageExternal, Ref: ref}, nil
}
