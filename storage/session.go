// Package storage mirrors the positions of a synopsis session into NATS KV so
// that external observers can follow it.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semsynopsis/alignment"
)

// BucketPrefix is the prefix of session bucket names.
const BucketPrefix = "SEMSYNOPSIS_SESSION_"

// Keys inside a session bucket.
const (
	KeyPosition   = "position"
	viewKeyPrefix = "views."
)

// SessionPosition is the last broadcast synopsis position.
type SessionPosition struct {
	alignment.Position
	UpdatedAt time.Time `json:"updated_at"`
}

// ViewPosition is the scroll position of one view.
type ViewPosition struct {
	ViewID         string    `json:"view_id"`
	TextID         string    `json:"text_id,omitempty"`
	ScrollPosition string    `json:"scroll_position,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewSessionID generates a new session id usable in bucket names.
func NewSessionID() string {
	return uuid.New().String()
}

// BucketName returns the KV bucket of a session.
func BucketName(sessionID string) string {
	return BucketPrefix + sanitize(sessionID)
}

// Store is the KV mirror of one session.
type Store struct {
	js      jetstream.JetStream
	bucket  string
	session jetstream.KeyValue
}

// NewStore opens or creates the memory-backed bucket of a session.
func NewStore(ctx context.Context, js jetstream.JetStream, sessionID string) (*Store, error) {
	name := BucketName(sessionID)
	kv, err := getOrCreateBucket(ctx, js, name)
	if err != nil {
		return nil, fmt.Errorf("create session bucket: %w", err)
	}
	return &Store{js: js, bucket: name, session: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Semsynopsis session positions",
		History:     1,
		Storage:     jetstream.MemoryStorage,
	})
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// PutPosition stores the synopsis position.
func (s *Store) PutPosition(ctx context.Context, pos alignment.Position) error {
	data, err := json.Marshal(SessionPosition{Position: pos, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	if _, err := s.session.Put(ctx, KeyPosition, data); err != nil {
		return fmt.Errorf("store position: %w", err)
	}
	return nil
}

// GetPosition retrieves the synopsis position.
func (s *Store) GetPosition(ctx context.Context) (*SessionPosition, error) {
	entry, err := s.session.Get(ctx, KeyPosition)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}

	var p SessionPosition
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal position: %w", err)
	}
	return &p, nil
}

// PutView stores the position of a view.
func (s *Store) PutView(ctx context.Context, v ViewPosition) error {
	v.UpdatedAt = time.Now()
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal view position: %w", err)
	}
	if _, err := s.session.Put(ctx, viewKey(v.ViewID), data); err != nil {
		return fmt.Errorf("store view position: %w", err)
	}
	return nil
}

// GetView retrieves the position of a view.
func (s *Store) GetView(ctx context.Context, viewID string) (*ViewPosition, error) {
	entry, err := s.session.Get(ctx, viewKey(viewID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get view position: %w", err)
	}

	var v ViewPosition
	if err := json.Unmarshal(entry.Value(), &v); err != nil {
		return nil, fmt.Errorf("unmarshal view position: %w", err)
	}
	return &v, nil
}

// DeleteView removes the position of an unmounted view.
func (s *Store) DeleteView(ctx context.Context, viewID string) error {
	if err := s.session.Delete(ctx, viewKey(viewID)); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete view position: %w", err)
	}
	return nil
}

// ListViews returns the positions of all views.
func (s *Store) ListViews(ctx context.Context) ([]*ViewPosition, error) {
	keys, err := s.session.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list view keys: %w", err)
	}

	views := make([]*ViewPosition, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, viewKeyPrefix) {
			continue
		}
		entry, err := s.session.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var v ViewPosition
		if err := json.Unmarshal(entry.Value(), &v); err != nil {
			continue
		}
		views = append(views, &v)
	}
	return views, nil
}

// Destroy deletes the session bucket.
func (s *Store) Destroy(ctx context.Context) error {
	if err := s.js.DeleteKeyValue(ctx, s.bucket); err != nil {
		return fmt.Errorf("delete session bucket: %w", err)
	}
	return nil
}

func viewKey(viewID string) string {
	return viewKeyPrefix + sanitize(viewID)
}

// sanitize maps a string onto the characters allowed in bucket names and keys.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
