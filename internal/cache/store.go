package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	valkey "github.com/valkey-io/valkey-go"
	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/config"
)

var ErrMiss = errors.New("cache miss")

// KVStore is the key/value surface used for rendered report bytes and
// delivery claims.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open connects to valkey when a URL is configured and falls back to an
// in-process store otherwise.
func Open(cfg config.CacheConfig, log *zap.Logger) (KVStore, error) {
	if cfg.ValkeyURL == "" {
		log.Info("no valkey url configured, using in-memory cache")
		return NewMemoryStore(), nil
	}
	store, err := NewValkeyStore(cfg.ValkeyURL)
	if err != nil {
		return nil, err
	}
	log.Info("connected to valkey", zap.String("url", redact(cfg.ValkeyURL)))
	return store, nil
}

type valkeyStore struct {
	client valkey.Client
}

// NewValkeyStore accepts redis:// and valkey:// URLs or a bare host:port.
func NewValkeyStore(rawURL string) (KVStore, error) {
	var opt valkey.ClientOption
	if strings.Contains(rawURL, "://") {
		parsed, err := valkey.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse valkey url: %w", err)
		}
		opt = parsed
	} else {
		opt = valkey.ClientOption{InitAddress: []string{rawURL}}
	}

	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}
	return &valkeyStore{client: client}, nil
}

func (s *valkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("valkey GET for key '%s' failed: %w", key, err)
	}
	b, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read valkey reply for key '%s': %w", key, err)
	}
	return b, nil
}

func (s *valkeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.client.B().Set().Key(key).Value(string(value)).ExSeconds(ttlSeconds(ttl)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey SET for key '%s' failed: %w", key, err)
	}
	return nil
}

func (s *valkeyStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	cmd := s.client.B().Set().Key(key).Value(string(value)).Nx().ExSeconds(ttlSeconds(ttl)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, fmt.Errorf("valkey SET NX for key '%s' failed: %w", key, err)
	}
	return true, nil
}

func (s *valkeyStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("valkey DEL for key '%s' failed: %w", key, err)
	}
	return nil
}

func (s *valkeyStore) Close() error {
	s.client.Close()
	return nil
}

func ttlSeconds(ttl time.Duration) int64 {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func redact(rawURL string) string {
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return rawURL
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}

type entry struct {
	value   []byte
	expires time.Time
}

// sweepEvery is how many writes pass between full expiry sweeps.
const sweepEvery = 64

// MemoryStore is a process-local KVStore. Expired keys are dropped on read
// and by a periodic sweep on write.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string]entry
	writes int
	clock  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]entry), clock: time.Now}
}

func (m *MemoryStore) live(key string) (entry, bool) {
	e, ok := m.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !m.clock().Before(e.expires) {
		delete(m.data, key)
		return entry{}, false
	}
	return e, true
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, value, ttl)
	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.put(key, value, ttl)
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len counts live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.data)
}

func (m *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.clock().Add(ttl)
	}
	m.data[key] = e

	m.writes++
	if m.writes >= sweepEvery {
		m.writes = 0
		m.sweep()
	}
}

func (m *MemoryStore) sweep() {
	now := m.clock()
	for k, e := range m.data {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.data, k)
		}
	}
}

func (m *MemoryStore) Close() error { return nil }
