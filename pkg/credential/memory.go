// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package credential

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in a map owned by a single client instance.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*Token),
	}
}

// Get returns a copy of the stored token.
func (m *MemoryStore) Get(ctx context.Context, key Key) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[key.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneToken(tok), nil
}

// Set stores a copy of token.
func (m *MemoryStore) Set(ctx context.Context, key Key, token *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[key.String()] = cloneToken(token)
	return nil
}

// Len returns the number of stored credentials.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
