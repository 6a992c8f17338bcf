// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lsp

import (
	"fmt"
	"sort"
	"sync"

	"go.lsp.dev/protocol"
)

// DocumentStore holds the text of open documents.
//
// The host advertises full synchronization, so every change event carries
// the complete new text.
//
// Thread Safety: Safe for concurrent use.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[protocol.DocumentURI]Document)}
}

// Open records a newly opened document.
func (s *DocumentStore) Open(item protocol.TextDocumentItem) Document {
	doc := Document{
		URI:        item.URI,
		Path:       PathFromURI(item.URI),
		LanguageID: string(item.LanguageID),
		Version:    item.Version,
		Text:       item.Text,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[item.URI] = doc
	return doc
}

// Change applies content changes. The last change wins.
func (s *DocumentStore) Change(u protocol.DocumentURI, version int32, changes []protocol.TextDocumentContentChangeEvent) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[u]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrDocumentNotOpen, u)
	}
	if len(changes) > 0 {
		doc.Text = changes[len(changes)-1].Text
	}
	doc.Version = version
	s.docs[u] = doc
	return doc, nil
}

// Save updates the text if the client included it.
func (s *DocumentStore) Save(u protocol.DocumentURI, text string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[u]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrDocumentNotOpen, u)
	}
	if text != "" {
		doc.Text = text
		s.docs[u] = doc
	}
	return doc, nil
}

// Close forgets a document and returns its last state.
func (s *DocumentStore) Close(u protocol.DocumentURI) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[u]
	delete(s.docs, u)
	return doc, ok
}

// Get returns an open document.
func (s *DocumentStore) Get(u protocol.DocumentURI) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[u]
	return doc, ok
}

// All returns every open document ordered by URI.
func (s *DocumentStore) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}
