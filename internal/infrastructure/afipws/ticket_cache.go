package afipws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TicketCache guarda tickets WSAA hasta su vencimiento. AFIP rechaza un nuevo
// LoginCms mientras el ticket anterior siga vigente, por eso se reutiliza.
type TicketCache interface {
	Get(ctx context.Context, cuit, service string) (*Ticket, error)
	Put(ctx context.Context, cuit, service string, t *Ticket) error
}

func ticketKey(cuit, service string) string {
	return fmt.Sprintf("afip:wsaa:%s:%s", cuit, service)
}

// RedisTicketCache implementación sobre Redis (JSON con TTL al vencimiento).
type RedisTicketCache struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisTicketCache(rdb *redis.Client) *RedisTicketCache {
	return &RedisTicketCache{rdb: rdb, now: time.Now}
}

// Get devuelve nil, nil si no hay ticket guardado.
func (c *RedisTicketCache) Get(ctx context.Context, cuit, service string) (*Ticket, error) {
	raw, err := c.rdb.Get(ctx, ticketKey(cuit, service)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("ticket cache: get: %w", err)
	}
	var t Ticket
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("ticket cache: decode: %w", err)
	}
	return &t, nil
}

func (c *RedisTicketCache) Put(ctx context.Context, cuit, service string, t *Ticket) error {
	ttl := t.Expiration.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("ticket cache: encode: %w", err)
	}
	if err := c.rdb.Set(ctx, ticketKey(cuit, service), raw, ttl).Err(); err != nil {
		return fmt.Errorf("ticket cache: set: %w", err)
	}
	return nil
}

// MemoryTicketCache cache en proceso, para la CLI sin Redis y para tests.
type MemoryTicketCache struct {
	mu      sync.Mutex
	tickets map[string]*Ticket
}

func NewMemoryTicketCache() *MemoryTicketCache {
	return &MemoryTicketCache{tickets: make(map[string]*Ticket)}
}

func (c *MemoryTicketCache) Get(_ context.Context, cuit, service string) (*Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickets[ticketKey(cuit, service)], nil
}

func (c *MemoryTicketCache) Put(_ context.Context, cuit, service string, t *Ticket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickets[ticketKey(cuit, service)] = t
	return nil
}
