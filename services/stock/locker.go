package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// VariantLocker serializa o read-modify-write do estoque de uma variante.
// Lock bloqueia até obter o lock ou o ctx terminar; a função devolvida libera.
type VariantLocker interface {
	Lock(ctx context.Context, variantID string) (unlock func(), err error)
}

// MemoryLocker é um lock por variante dentro do processo
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryLockEntry
}

type memoryLockEntry struct {
	sem  chan struct{}
	refs int
}

// NewMemoryLocker cria uma nova instância de MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*memoryLockEntry)}
}

func (l *MemoryLocker) Lock(ctx context.Context, variantID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[variantID]
	if !ok {
		entry = &memoryLockEntry{sem: make(chan struct{}, 1)}
		l.entries[variantID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.sem
				l.release(variantID, entry)
			})
		}, nil
	case <-ctx.Done():
		l.release(variantID, entry)
		return nil, fmt.Errorf("failed to lock variant %s: %w", variantID, ctx.Err())
	}
}

// release remove a entrada quando ninguém mais segura ou espera o lock
func (l *MemoryLocker) release(variantID string, entry *memoryLockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, variantID)
	}
}

// size é usado pelos testes para verificar que as entradas são liberadas
func (l *MemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// releaseLockScript só apaga a chave se o token ainda for o nosso
var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewLockScript estende o PX só enquanto o token for o nosso
var renewLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializa variantes entre réplicas usando SET NX PX.
// Enquanto o lock está seguro o lease é renovado a cada ttl/3.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	renewInterval time.Duration
}

// NewRedisLocker cria uma nova instância de RedisLocker
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: 50 * time.Millisecond,
		renewInterval: ttl / 3,
	}
}

func redisLockKey(variantID string) string {
	return fmt.Sprintf("variant-stock:lock:{%s}", variantID)
}

func (l *RedisLocker) Lock(ctx context.Context, variantID string) (func(), error) {
	key := redisLockKey(variantID)
	token := uuid.New().String()

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to lock variant %s: %w", variantID, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to lock variant %s: %w", variantID, ctx.Err())
		case <-time.After(l.retryInterval):
		}
	}

	logger := zerolog.Ctx(ctx).With().Str("variant_id", variantID).Logger()

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go l.renew(key, token, &logger, stop, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed

			// libera mesmo se o ctx da requisição já foi cancelado
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseLockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				logger.Warn().Err(err).Msg("⚠️ [LOCK] failed to release variant lock")
			}
		})
	}, nil
}

// renew estende o lease até stop ser fechado ou o lock ser perdido
func (l *RedisLocker) renew(key, token string, logger *zerolog.Logger, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
		ok, err := renewLockScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()

		if err != nil {
			logger.Warn().Err(err).Msg("⚠️ [LOCK] failed to renew variant lock")
			continue
		}
		if ok == 0 {
			logger.Error().Msg("❌ [LOCK] variant lock lost before release")
			return
		}
	}
}
