// Package session reads and writes the authenticated user from a key-value storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"billed/internal/model"
)

// UserKey is the key the current user is stored under, JSON-encoded.
const UserKey = "user"

// DraftKey holds the bill being assembled on the New Bill page between requests.
const DraftKey = "draft"

var ErrNoSession = errors.New("no user in session")

// KeyValue is a string key-value storage such as a browser-like local storage
// or a server side session.
type KeyValue interface {
	Get(key string) string
	Set(key, value string)
	Delete(key string)
}

// Accessor reads and writes session values through a KeyValue.
type Accessor struct {
	kv KeyValue
}

// NewAccessor creates an Accessor over kv.
func NewAccessor(kv KeyValue) *Accessor {
	return &Accessor{kv: kv}
}

// Current returns the user stored under UserKey.
func (a *Accessor) Current() (model.Session, error) {
	raw := a.kv.Get(UserKey)
	if raw == "" {
		return model.Session{}, ErrNoSession
	}
	var s model.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return model.Session{}, fmt.Errorf("decode session user: %w", err)
	}
	return s, nil
}

// Save stores s under UserKey.
func (a *Accessor) Save(s model.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	a.kv.Set(UserKey, string(b))
	return nil
}

// Clear removes the user and any draft.
func (a *Accessor) Clear() {
	a.kv.Delete(UserKey)
	a.kv.Delete(DraftKey)
}

// Draft returns the in-progress bill, or the zero Draft when there is none.
func (a *Accessor) Draft() Draft {
	var d Draft
	if raw := a.kv.Get(DraftKey); raw != "" {
		// a corrupt draft is treated as no draft
		_ = json.Unmarshal([]byte(raw), &d)
	}
	return d
}

// SaveDraft stores d under DraftKey.
func (a *Accessor) SaveDraft(d Draft) {
	b, _ := json.Marshal(d)
	a.kv.Set(DraftKey, string(b))
}

// ClearDraft removes the in-progress bill.
func (a *Accessor) ClearDraft() {
	a.kv.Delete(DraftKey)
}

// Draft is what survives between selecting a receipt and submitting the form.
type Draft struct {
	BillID   string `json:"billId"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
}

// MemoryStorage is an in-memory KeyValue. It is safe for concurrent use.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MemoryStorage) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Save is a no-op; MemoryStorage writes through.
func (m *MemoryStorage) Save() error {
	return nil
}
