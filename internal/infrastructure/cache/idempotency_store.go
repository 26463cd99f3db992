// Package cache guarda las claves Idempotency-Key de creación de solicitudes en Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/spm-api/pkg/config"
)

const (
	defaultPrefix = "spm:idempotency:"
	pendingValue  = "pending"
)

// IdempotencyStore reserva claves con SETNX + TTL. Mientras la petición original está en curso la clave vale
// "pending"; al terminar guarda el id del recurso creado para informarlo en los reintentos.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient crea el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar a Redis: %w", err)
	}
	return client, nil
}

// NewIdempotencyStore construye el store sobre un cliente existente.
func NewIdempotencyStore(client *redis.Client, prefix string) *IdempotencyStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &IdempotencyStore{client: client, prefix: prefix}
}

// Reserve marca la clave como en curso. false si ya existía.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, pendingValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reservar clave de idempotencia: %w", err)
	}
	return ok, nil
}

// Complete asocia la clave al recurso creado conservando el TTL original.
func (s *IdempotencyStore) Complete(ctx context.Context, key, resourceID string) error {
	if err := s.client.SetArgs(ctx, s.prefix+key, resourceID, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil &&
		!errors.Is(err, redis.Nil) {
		return fmt.Errorf("completar clave de idempotencia: %w", err)
	}
	return nil
}

// Lookup devuelve el id del recurso asociado; "" si la petición original sigue en curso o la clave expiró.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("leer clave de idempotencia: %w", err)
	}
	if v == pendingValue {
		return "", nil
	}
	return v, nil
}

// Release libera la clave para que el cliente pueda reintentar tras un error.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("liberar clave de idempotencia: %w", err)
	}
	return nil
}
