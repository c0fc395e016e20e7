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
	"fmt"
	"io"
	"log/slog"
)

// Type selects a store backend.
type Type string

const (
	TypeMemory   Type = "memory"
	TypeFile     Type = "file"
	TypeSQLite   Type = "sqlite"
	TypeRedis    Type = "redis"
	TypeKeychain Type = "keychain"
)

// Config selects and configures a backend.
type Config struct {
	Type Type

	// Path is used by the file and sqlite backends.
	Path string

	// MasterKey is used by the file backend.
	MasterKey string

	// Watch enables change notification for the file backend.
	Watch bool

	Redis *RedisConfig

	Logger *slog.Logger
}

// New creates the store described by cfg. The returned closer releases
// backend resources and is never nil.
func New(cfg Config) (Store, io.Closer, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nopCloser{}, nil

	case TypeFile:
		s, err := NewFileStore(FileConfig{
			Path:      cfg.Path,
			MasterKey: cfg.MasterKey,
			Watch:     cfg.Watch,
			Logger:    cfg.Logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case TypeSQLite:
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case TypeRedis:
		s, err := NewRedisStore(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case TypeKeychain:
		s, err := NewKeychainStore()
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported credential store type: %q", cfg.Type)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
