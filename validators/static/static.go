// Package static validates bearer tokens against a table loaded from a YAML
// file. The file can be watched and is reloaded whenever it changes.
//
// File format:
//
//	tokens:
//	  - token: abc
//	    credentials:
//	      email: test@test.com
//	  - token_hash: $2a$10$...
//	    credentials:
//	      email: ops@test.com
//
// Entries with token_hash hold a bcrypt hash instead of the token and are
// checked one by one after the plain table misses, so keep them few.
package static

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"tokengate/common/flux"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var ErrDuplicateToken = errors.New("static: duplicate token")

// Entry is a single token in the file.
type Entry struct {
	Token       string           `yaml:"token"`
	TokenHash   string           `yaml:"token_hash"`
	Credentials flux.Credentials `yaml:"credentials"`
}

type hashedEntry struct {
	hash  string
	creds flux.Credentials
}

type file struct {
	Tokens []Entry `yaml:"tokens"`
}

// Validator is a bearer.Validator backed by a static token table.
// Tokens are indexed by their SHA-256 digest.
type Validator struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	tokens map[[sha256.Size]byte]flux.Credentials
	hashed []hashedEntry
}

// New returns a validator for the given entries.
func New(entries []Entry) (*Validator, error) {
	v := &Validator{logger: slog.Default()}
	if err := v.set(entries); err != nil {
		return nil, err
	}
	return v, nil
}

// Load reads the token file at path.
func Load(path string, logger *slog.Logger) (*Validator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{path: path, logger: logger}
	if err := v.Reload(); err != nil {
		return nil, err
	}
	return v, nil
}

// Reload re-reads the token file. On error the previous table is kept.
func (v *Validator) Reload() error {
	if v.path == "" {
		return errors.New("static: validator has no file")
	}
	b, err := os.ReadFile(v.path)
	if err != nil {
		return fmt.Errorf("static: read %s: %w", v.path, err)
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("static: parse %s: %w", v.path, err)
	}
	return v.set(f.Tokens)
}

func (v *Validator) set(entries []Entry) error {
	tokens := make(map[[sha256.Size]byte]flux.Credentials, len(entries))
	var hashed []hashedEntry
	for i, e := range entries {
		creds := e.Credentials
		if creds == nil {
			creds = flux.Credentials{}
		}
		switch {
		case e.Token != "" && e.TokenHash != "":
			return fmt.Errorf("static: entry %d sets both token and token_hash", i)
		case e.TokenHash != "":
			if _, err := bcrypt.Cost([]byte(e.TokenHash)); err != nil {
				return fmt.Errorf("static: entry %d: %w", i, err)
			}
			hashed = append(hashed, hashedEntry{hash: e.TokenHash, creds: creds})
		case e.Token != "":
			key := sha256.Sum256([]byte(e.Token))
			if _, ok := tokens[key]; ok {
				return fmt.Errorf("%w at entry %d", ErrDuplicateToken, i)
			}
			tokens[key] = creds
		default:
			return fmt.Errorf("static: entry %d has no token", i)
		}
	}

	v.mu.Lock()
	v.tokens = tokens
	v.hashed = hashed
	v.mu.Unlock()
	return nil
}

// Len returns the number of tokens loaded.
func (v *Validator) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.tokens) + len(v.hashed)
}

// Validate implements bearer.Validator.
func (v *Validator) Validate(ctx context.Context, token string) (flux.Credentials, bool, error) {
	key := sha256.Sum256([]byte(token))
	v.mu.RLock()
	creds, ok := v.tokens[key]
	hashed := v.hashed
	v.mu.RUnlock()
	if ok {
		return maps.Clone(creds), true, nil
	}

	for _, h := range hashed {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		match, err := compareToken(h.hash, token)
		if err != nil {
			return nil, false, err
		}
		if match {
			return maps.Clone(h.creds), true, nil
		}
	}
	return nil, false, nil
}

// Watch reloads the file whenever it changes until ctx is done. The parent
// directory is watched so editors that replace the file are handled.
func (v *Validator) Watch(ctx context.Context) error {
	if v.path == "" {
		return errors.New("static: validator has no file")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("static: watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(v.path)); err != nil {
		w.Close()
		return fmt.Errorf("static: watch %s: %w", v.path, err)
	}

	go func() {
		defer w.Close()
		target := filepath.Clean(v.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := v.Reload(); err != nil {
					v.logger.Error("Failed to reload token file.", slog.String("path", v.path), slog.String("error", err.Error()))
					continue
				}
				v.logger.Info("Reloaded token file.", slog.String("path", v.path), slog.Int("tokens", v.Len()))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				v.logger.Error("Token file watcher failed.", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}
