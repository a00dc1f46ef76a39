package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/StreetPass/internal/model"
)

// ContactRepository stores one JSONB document of contact summaries per
// uploader identity.
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository constructs a repository.
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

// UpdateContacts locks the identity's row for the duration of one
// transaction, hands the stored summaries to fn and writes back its result.
// A missing document is created empty first so that there is a row to lock.
func (r *ContactRepository) UpdateContacts(ctx context.Context, identity string, fn func([]model.ContactSummary) ([]model.ContactSummary, error)) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO contact_documents (identity) VALUES ($1)
			ON CONFLICT (identity) DO NOTHING
		`, identity); err != nil {
			return fmt.Errorf("ensure contact document: %w", err)
		}

		var raw []byte
		if err := tx.QueryRow(ctx, `
			SELECT records FROM contact_documents WHERE identity=$1 FOR UPDATE
		`, identity).Scan(&raw); err != nil {
			return fmt.Errorf("lock contact document: %w", err)
		}
		var prior []model.ContactSummary
		if err := json.Unmarshal(raw, &prior); err != nil {
			return fmt.Errorf("decode contact document: %w", err)
		}

		next, err := fn(prior)
		if err != nil {
			return err
		}
		if next == nil {
			next = []model.ContactSummary{}
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode contact document: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE contact_documents SET records=$2, updated_at=now() WHERE identity=$1
		`, identity, encoded); err != nil {
			return fmt.Errorf("update contact document: %w", err)
		}
		return nil
	})
}

// Contacts returns the document stored for identity.
func (r *ContactRepository) Contacts(ctx context.Context, identity string) ([]model.ContactSummary, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT records FROM contact_documents WHERE identity=$1`, identity).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("contacts of %s: %w", identity, ErrNotFound)
		}
		return nil, fmt.Errorf("select contact document: %w", err)
	}
	var out []model.ContactSummary
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode contact document: %w", err)
	}
	return out, nil
}

// FindByContact returns every stored summary whose contactId is contactID,
// across all documents.
func (r *ContactRepository) FindByContact(ctx context.Context, contactID string) ([]model.ContactSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT elem FROM contact_documents, jsonb_array_elements(records) AS elem
		WHERE records @> jsonb_build_array(jsonb_build_object('contactId', $1::text))
			AND elem->>'contactId' = $1
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []model.ContactSummary
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		var s model.ContactSummary
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode contact: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}
