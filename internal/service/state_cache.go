package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateSnapshot es lo minimo necesario para reanudar una sesion: los
// identificadores y el blob opaco tal cual lo dejo el ultimo turno.
type StateSnapshot struct {
	UserID     string          `json:"user_id"`
	SessionID  string          `json:"session_id"`
	Blob       json.RawMessage `json:"blob,omitempty"`
	Terminated bool            `json:"terminated"`
}

// StateCache guarda snapshots por sesion para sobrevivir reinicios del gateway.
type StateCache interface {
	Save(sessionID string, snap StateSnapshot, ttl time.Duration) error
	Load(sessionID string) (StateSnapshot, bool, error)
}

type memoryStateCache struct {
	mu    sync.Mutex
	items map[string]memoryStateEntry
}

type memoryStateEntry struct {
	snap      StateSnapshot
	expiresAt time.Time
}

func NewMemoryStateCache() StateCache {
	return &memoryStateCache{items: make(map[string]memoryStateEntry)}
}

func (c *memoryStateCache) Save(sessionID string, snap StateSnapshot, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[sessionID] = memoryStateEntry{
		snap:      snap,
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

func (c *memoryStateCache) Load(sessionID string) (StateSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[sessionID]
	if !ok {
		return StateSnapshot{}, false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(c.items, sessionID)
		return StateSnapshot{}, false, nil
	}
	return entry.snap, true, nil
}

type redisStateCache struct {
	client *redis.Client
	prefix string
}

// NewRedisStateCache guarda snapshots en Redis bajo chat:state:<session_id>.
func NewRedisStateCache(client *redis.Client) StateCache {
	if client == nil {
		return nil
	}
	return &redisStateCache{
		client: client,
		prefix: "chat:state:",
	}
}

func (c *redisStateCache) Save(sessionID string, snap StateSnapshot, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return c.client.Set(ctx, c.prefix+sessionID, payload, ttl).Err()
}

func (c *redisStateCache) Load(sessionID string) (StateSnapshot, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return StateSnapshot{}, false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	payload, err := c.client.Get(ctx, c.prefix+sessionID).Bytes()
	if err == redis.Nil {
		return StateSnapshot{}, false, nil
	}
	if err != nil {
		return StateSnapshot{}, false, err
	}
	var snap StateSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return StateSnapshot{}, false, err
	}
	return snap, true, nil
}
