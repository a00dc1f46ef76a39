// Package forwarder hands processed batches to durable storage.
package forwarder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/aggregate"
	"github.com/dharsanguruparan/StreetPass/internal/model"
)

// ContactStore keeps one aggregate document of contact summaries per
// uploader identity.
type ContactStore interface {
	// UpdateContacts applies fn to the stored summaries of identity and saves
	// the result. Concurrent updates for one identity are serialized.
	UpdateContacts(ctx context.Context, identity string, fn func(prior []model.ContactSummary) ([]model.ContactSummary, error)) error
}

// Document merges each batch into the uploader's contact document.
type Document struct {
	store  ContactStore
	policy aggregate.MergePolicy
	logger *zap.Logger
}

// NewDocument constructs a Document forwarder.
func NewDocument(store ContactStore, policy aggregate.MergePolicy, logger *zap.Logger) (*Document, error) {
	if store == nil {
		return nil, errors.New("contact store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Document{store: store, policy: policy, logger: logger}, nil
}

// Forward merges batch.Summaries into the document of batch.Identity.
func (d *Document) Forward(ctx context.Context, batch model.Batch) error {
	if batch.Identity == "" {
		return errors.New("batch has no identity")
	}
	var before, after int
	err := d.store.UpdateContacts(ctx, batch.Identity, func(prior []model.ContactSummary) ([]model.ContactSummary, error) {
		before = len(prior)
		merged := aggregate.Merge(d.policy, batch.Summaries, prior)
		after = len(merged)
		return merged, nil
	})
	if err != nil {
		return fmt.Errorf("update contacts for %s: %w", batch.Identity, err)
	}
	d.logger.Debug("contact document updated",
		zap.String("id", batch.Identity),
		zap.String("policy", string(d.policy)),
		zap.Int("before", before),
		zap.Int("after", after))
	return nil
}
