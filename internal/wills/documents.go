package wills

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"willvault/internal/event"
	"willvault/internal/identity"
)

// AddDocument attaches document metadata to the will. Content stays in
// external storage; only the hash and descriptors are journaled.
func (e *Engine) AddDocument(ctx context.Context, testator common.Address, hash, name, category string) error {
	if strings.TrimSpace(hash) == "" {
		return fmt.Errorf("%w: document hash required", ErrInvalidInput)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: document name required", ErrInvalidInput)
	}

	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	if st.will.Executed {
		return ErrWillExecuted
	}
	if _, ok := st.docs[hash]; ok {
		return ErrDuplicateDocument
	}

	now := e.now().UTC()
	hex := identity.Hex(testator)
	ev, err := event.New(event.KindDocumentAdded, hex, e.newID(), now, event.DocumentAddedPayload{
		Testator:   hex,
		Hash:       hash,
		Name:       name,
		Category:   category,
		UploadedAt: now,
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}

// RemoveDocument detaches a document by hash
func (e *Engine) RemoveDocument(ctx context.Context, testator common.Address, hash string) error {
	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	if st.will.Executed {
		return ErrWillExecuted
	}
	if _, ok := st.docs[hash]; !ok {
		return ErrDocumentNotFound
	}

	hex := identity.Hex(testator)
	ev, err := event.New(event.KindDocumentRemoved, hex, e.newID(), e.now().UTC(), event.DocumentRemovedPayload{
		Testator: hex,
		Hash:     hash,
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}
