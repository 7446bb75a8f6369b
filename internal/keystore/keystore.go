// Package keystore stores API credentials encrypted at rest. All key values
// live in a single XChaCha20-Poly1305 blob; metadata sits in a plaintext JSON
// file with restrictive permissions; every operation is recorded in an
// append-only JSONL audit log.
//
// The encryption key comes from a passphrase via scrypt, or — when no
// passphrase is configured — from a master key file generated once on first
// use. See crypto.go for the exact bootstrap procedure.
package keystore

import (
	"context"
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	blobFile     = "keys.blob"
	metadataFile = "metadata.json"
	auditFile    = "audit.jsonl"

	cacheTTL = 5 * time.Minute
)

// Options configures a Manager.
type Options struct {
	Dir            string // storage directory, created 0700 if missing
	Passphrase     string // optional; empty means master-key-file bootstrap
	AutoRotateDays int    // drives the NeedsRotation flag; 0 disables
}

type cacheEntry struct {
	value   string
	expires time.Time
}

// Manager is the secure key store. All mutable state is mutex-guarded; the
// plaintext of the blob is materialized only transiently during operations,
// plus a short-TTL per-key cache.
type Manager struct {
	mu         sync.Mutex
	dir        string
	aead       cipher.AEAD
	meta       map[string]*Metadata
	cache      map[string]cacheEntry
	audit      *auditLogger
	autoRotate time.Duration

	now func() time.Time // swappable for tests
}

// Open initializes the store under opts.Dir, bootstrapping the encryption key
// and loading existing metadata.
func Open(opts Options) (*Manager, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("keystore: storage directory required")
	}
	if err := os.MkdirAll(opts.Dir, 0700); err != nil {
		return nil, fmt.Errorf("keystore: create dir: %w", err)
	}

	blobExists := fileExists(filepath.Join(opts.Dir, blobFile))
	var key []byte
	var err error
	if opts.Passphrase != "" {
		key, err = deriveKey(opts.Passphrase, opts.Dir)
	} else {
		key, err = loadOrCreateMasterKey(opts.Dir, blobExists)
	}
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	audit, err := newAuditLogger(filepath.Join(opts.Dir, auditFile))
	if err != nil {
		return nil, err
	}

	m := &Manager{
		dir:        opts.Dir,
		aead:       aead,
		meta:       make(map[string]*Metadata),
		cache:      make(map[string]cacheEntry),
		audit:      audit,
		autoRotate: time.Duration(opts.AutoRotateDays) * 24 * time.Hour,
		now:        time.Now,
	}
	if err := m.loadMetadata(); err != nil {
		audit.Close()
		return nil, err
	}
	return m, nil
}

// Store encrypts and persists a key value. expiresInDays <= 0 means no expiry
// except for negative values, which make the key immediately expired (useful
// for revocation without deletion).
func (m *Manager) Store(ctx context.Context, id, value, keyType, description string, expiresInDays int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.mutateValues(func(values map[string]string) {
		values[id] = value
	})
	m.logOp(id, "", "store", err == nil, errDetail(err))
	if err != nil {
		return err
	}

	now := m.now()
	md := &Metadata{
		KeyID:       id,
		KeyType:     keyType,
		CreatedAt:   now,
		Description: description,
	}
	if expiresInDays != 0 {
		exp := now.Add(time.Duration(expiresInDays) * 24 * time.Hour)
		md.ExpiresAt = &exp
	}
	m.meta[id] = md
	delete(m.cache, id)
	return m.saveMetadata()
}

// Get returns the decrypted value for id. The in-memory cache is consulted
// first; expired keys return ErrExpired without touching the blob.
func (m *Manager) Get(ctx context.Context, id, accessor string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.meta[id]
	if !ok {
		m.logOp(id, accessor, "retrieve", false, "not found")
		return "", ErrNotFound
	}
	now := m.now()
	if md.ExpiresAt != nil && md.ExpiresAt.Before(now) {
		m.logOp(id, accessor, "retrieve", false, "expired")
		return "", ErrExpired
	}

	if entry, ok := m.cache[id]; ok && entry.expires.After(now) {
		md.LastAccessed = now
		md.AccessCount++
		m.logOp(id, accessor, "retrieve", true, "cache")
		return entry.value, nil
	}

	values, err := m.decryptValues()
	if err != nil {
		m.logOp(id, accessor, "retrieve", false, errDetail(err))
		return "", err
	}
	value, ok := values[id]
	if !ok {
		m.logOp(id, accessor, "retrieve", false, "metadata present but value missing")
		return "", ErrNotFound
	}

	md.LastAccessed = now
	md.AccessCount++
	m.cache[id] = cacheEntry{value: value, expires: now.Add(cacheTTL)}
	m.logOp(id, accessor, "retrieve", true, "")
	if err := m.saveMetadata(); err != nil {
		return "", err
	}
	return value, nil
}

// Rotate replaces the value under a fresh ciphertext and invalidates the
// cache entry; the old value is unrecoverable afterwards.
func (m *Manager) Rotate(ctx context.Context, id, newValue string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.meta[id]
	if !ok {
		m.logOp(id, "", "rotate", false, "not found")
		return ErrNotFound
	}
	err := m.mutateValues(func(values map[string]string) {
		values[id] = newValue
	})
	m.logOp(id, "", "rotate", err == nil, errDetail(err))
	if err != nil {
		return err
	}
	now := m.now()
	md.LastRotated = &now
	delete(m.cache, id)
	return m.saveMetadata()
}

// Delete removes the key value and its metadata.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.meta[id]; !ok {
		m.logOp(id, "", "delete", false, "not found")
		return ErrNotFound
	}
	err := m.mutateValues(func(values map[string]string) {
		delete(values, id)
	})
	m.logOp(id, "", "delete", err == nil, errDetail(err))
	if err != nil {
		return err
	}
	delete(m.meta, id)
	delete(m.cache, id)
	return m.saveMetadata()
}

// List returns metadata copies sorted by key id.
func (m *Manager) List() []Metadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Metadata, 0, len(m.meta))
	for _, md := range m.meta {
		out = append(out, *md)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KeyID < out[j].KeyID })
	return out
}

// RotationDue counts keys whose NeedsRotation flag is set.
func (m *Manager) RotationDue() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := m.now()
	for _, md := range m.meta {
		if md.NeedsRotation(m.autoRotate, now) {
			n++
		}
	}
	return n
}

// AuditLog returns up to limit audit entries, optionally filtered by key id.
func (m *Manager) AuditLog(keyID string, limit int) ([]AuditEntry, error) {
	return m.audit.Read(keyID, limit)
}

// PurgeCache drops every cached plaintext immediately. Called by the
// emergency security response.
func (m *Manager) PurgeCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]cacheEntry)
}

// Close releases the audit log handle.
func (m *Manager) Close() error {
	return m.audit.Close()
}

// --- persistence -----------------------------------------------------------

// decryptValues loads and opens the blob. Callers hold m.mu.
func (m *Manager) decryptValues() (map[string]string, error) {
	path := filepath.Join(m.dir, blobFile)
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: read blob: %w", err)
	}
	plaintext, err := open(m.aead, blob)
	if err != nil {
		return nil, fmt.Errorf("keystore: decrypt blob: %w", err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("keystore: parse blob: %w", err)
	}
	return values, nil
}

// mutateValues decrypts, applies fn, re-encrypts under a fresh nonce, and
// writes the blob back. Callers hold m.mu.
func (m *Manager) mutateValues(fn func(map[string]string)) error {
	values, err := m.decryptValues()
	if err != nil {
		return err
	}
	fn(values)
	plaintext, err := json.Marshal(values)
	if err != nil {
		return err
	}
	blob, err := seal(m.aead, plaintext)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.dir, blobFile), blob, 0600)
}

func (m *Manager) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(m.dir, metadataFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("keystore: read metadata: %w", err)
	}
	return json.Unmarshal(data, &m.meta)
}

func (m *Manager) saveMetadata() error {
	data, err := json.MarshalIndent(m.meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.dir, metadataFile), data, 0600)
}

func (m *Manager) logOp(keyID, accessor, action string, success bool, detail string) {
	_ = m.audit.Append(AuditEntry{
		ID:         uuid.NewString(),
		KeyID:      keyID,
		AccessedAt: m.now(),
		Accessor:   accessor,
		Action:     action,
		Success:    success,
		Detail:     detail,
	})
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
