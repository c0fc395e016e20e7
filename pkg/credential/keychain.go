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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeychainService is the service name used for keychain entries.
const KeychainService = "dingtalk"

// ErrKeychainUnavailable is returned when the OS keychain cannot be reached.
var ErrKeychainUnavailable = errors.New("keychain service unavailable")

// KeychainStore keeps credentials in the system keychain:
//   - macOS: Keychain Access
//   - Linux: Secret Service API (GNOME Keyring, KWallet)
//   - Windows: Credential Manager
type KeychainStore struct {
	service string
}

var _ Store = (*KeychainStore)(nil)

// NewKeychainStore creates a keychain store and checks the keychain responds.
func NewKeychainStore() (*KeychainStore, error) {
	_, err := keyring.Get(KeychainService, "__dingtalk_availability_test__")
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrKeychainUnavailable, err)
	}
	return &KeychainStore{service: KeychainService}, nil
}

// Get loads a credential.
func (k *KeychainStore) Get(ctx context.Context, key Key) (*Token, error) {
	raw, err := keyring.Get(k.service, key.String())
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, keychainError(err)
	}

	var tok Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &tok, nil
}

// Set stores a credential.
func (k *KeychainStore) Set(ctx context.Context, key Key, token *Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := keyring.Set(k.service, key.String(), string(data)); err != nil {
		return keychainError(err)
	}
	return nil
}

// GetSecret reads a plain secret (such as the app secret) from the keychain.
func GetSecret(name string) (string, error) {
	v, err := keyring.Get(KeychainService, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", keychainError(err)
	}
	return v, nil
}

// SetSecret writes a plain secret to the keychain.
func SetSecret(name, value string) error {
	if err := keyring.Set(KeychainService, name, value); err != nil {
		return keychainError(err)
	}
	return nil
}

func keychainError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"locked", "dbus", "secret service", "not available", "no such interface"} {
		if strings.Contains(msg, s) {
			return fmt.Errorf("%w: %v", ErrKeychainUnavailable, err)
		}
	}
	return fmt.Errorf("keychain operation failed: %w", err)
}
