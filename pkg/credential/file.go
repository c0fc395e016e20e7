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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/argon2"
)

const (
	argon2Time        = 3
	argon2Memory      = 64 * 1024 // 64MB in KB
	argon2Parallelism = 4
	argon2KeyLength   = 32 // AES-256

	gcmNonceSize = 12
)

// MasterKeyEnv names the environment variable holding the file store key.
const MasterKeyEnv = "DINGTALK_MASTER_KEY"

type encryptedFile struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Data    []byte `json:"data"`
}

// FileStore keeps credentials in an encrypted file. Get serves a decrypted
// in-memory snapshot, which Watch drops whenever the file changes on disk.
// Set always merges into the file as it is on disk, under an exclusive lock
// on path+".lock", so handles sharing the file never drop each other's writes.
type FileStore struct {
	path      string
	masterKey []byte
	logger    *slog.Logger

	mu       sync.Mutex
	snapshot map[string]*Token

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ Store = (*FileStore)(nil)

// FileConfig configures a FileStore.
type FileConfig struct {
	Path string

	// MasterKey encrypts the file. Falls back to $DINGTALK_MASTER_KEY.
	MasterKey string

	// Watch enables fsnotify invalidation of the in-memory snapshot.
	Watch bool

	Logger *slog.Logger
}

// NewFileStore creates a file store. The file is created on first Set.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("file path is required")
	}
	key := cfg.MasterKey
	if key == "" {
		key = os.Getenv(MasterKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("master key not available (set %s)", MasterKeyEnv)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &FileStore{
		path:      cfg.Path,
		masterKey: []byte(key),
		logger:    logger,
		done:      make(chan struct{}),
	}

	if err := f.ensureParentDir(); err != nil {
		return nil, err
	}

	if cfg.Watch {
		if err := f.startWatcher(); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Get loads a credential.
func (f *FileStore) Get(ctx context.Context, key Key) (*Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.loadLocked()
	if err != nil {
		return nil, err
	}
	tok, ok := tokens[key.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneToken(tok), nil
}

// Set stores a credential and rewrites the file.
func (f *FileStore) Set(ctx context.Context, key Key, token *Token) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	unlock, err := lockFile(f.path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()

	f.snapshot = nil
	tokens, err := f.loadLocked()
	if err != nil {
		return err
	}
	next := make(map[string]*Token, len(tokens)+1)
	for k, v := range tokens {
		next[k] = v
	}
	next[key.String()] = cloneToken(token)

	if err := f.save(next); err != nil {
		return err
	}
	f.snapshot = next
	return nil
}

// Invalidate drops the in-memory snapshot.
func (f *FileStore) Invalidate() {
	f.mu.Lock()
	f.snapshot = nil
	f.mu.Unlock()
}

// Close stops the watcher, if any.
func (f *FileStore) Close() error {
	if f.watcher == nil {
		return nil
	}
	close(f.done)
	err := f.watcher.Close()
	f.wg.Wait()
	return err
}

func (f *FileStore) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// The file may not exist yet and is replaced by rename, so watch the directory.
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(f.path), err)
	}
	f.watcher = w

	f.wg.Add(1)
	go f.processEvents()
	return nil
}

func (f *FileStore) processEvents() {
	defer f.wg.Done()

	target := filepath.Clean(f.path)
	for {
		select {
		case <-f.done:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			f.logger.Debug("credential file changed, dropping cache",
				slog.String("path", f.path),
				slog.String("op", event.Op.String()))
			f.Invalidate()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("credential file watcher error", slog.Any("error", err))
		}
	}
}

func (f *FileStore) loadLocked() (map[string]*Token, error) {
	if f.snapshot != nil {
		return f.snapshot, nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.snapshot = make(map[string]*Token)
			return f.snapshot, nil
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var data encryptedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}

	key := argon2.IDKey(f.masterKey, data.Salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLength)
	defer zeroBytes(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, data.Nonce, data.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential file (wrong master key?): %w", err)
	}
	defer zeroBytes(plaintext)

	tokens := make(map[string]*Token)
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	f.snapshot = tokens
	return tokens, nil
}

func (f *FileStore) save(tokens map[string]*Token) error {
	plaintext, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	defer zeroBytes(plaintext)

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey(f.masterKey, salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLength)
	defer zeroBytes(key)

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	encData, err := json.Marshal(encryptedFile{
		Version: 1,
		Salt:    salt,
		Nonce:   nonce,
		Data:    gcm.Seal(nil, nonce, plaintext, nil),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal encrypted data: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, encData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (f *FileStore) ensureParentDir() error {
	dir := filepath.Dir(f.path)
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("parent path exists but is not a directory: %s", dir)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
