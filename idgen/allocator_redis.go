package idgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/connector"
	"github.com/ceyewan/sinteflake/xerrors"
)

// allocateScript 从 offset 开始环形遍历，原子地 SET NX EX 第一个空闲槽位
const allocateScript = `
local prefix = KEYS[1]
local value = ARGV[1]
local ttl = tonumber(ARGV[2])
local max_id = tonumber(ARGV[3])
local offset = tonumber(ARGV[4])

for i = 0, max_id - 1 do
	local id = (offset + i) % max_id
	local key = prefix .. ":" .. id
	if redis.call("SET", key, value, "NX", "EX", ttl) then
		return id
	end
end
return -1
`

// renewScript 仅当值仍属于自己时续期，避免续上别人的租约
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// releaseScript 仅当值仍属于自己时删除
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type redisAllocator struct {
	redis  connector.RedisConnector
	cfg    *AllocatorConfig
	logger clog.Logger

	mu       sync.Mutex
	nodeID   uint64
	redisKey string
	value    string
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Allocate 随机起点遍历，减少并发启动时的冲突
func (a *redisAllocator) Allocate(ctx context.Context) (uint64, error) {
	client := a.redis.GetClient()
	if client == nil {
		return 0, xerrors.WithCode(ErrConnectorNil, "redis_client_nil")
	}

	value := holderValue()
	id, err := withRetry(ctx, a.cfg.MaxRetries, func(ctx context.Context) (uint64, error) {
		offset := rand.Uint64N(a.cfg.MaxID())
		result, err := client.Eval(ctx, allocateScript, []string{a.cfg.KeyPrefix},
			value, a.cfg.TTL, a.cfg.MaxID(), offset).Int64()
		if err != nil {
			a.logger.Warn("redis eval failed", clog.Error(err), clog.String("key_prefix", a.cfg.KeyPrefix))
			return 0, xerrors.Wrap(err, "redis eval")
		}
		if result < 0 {
			return 0, xerrors.WithCode(ErrNodeIDExhausted, "no_available_node_id")
		}
		return uint64(result), nil
	})
	if err != nil {
		a.logger.Error("allocate node id failed", clog.Error(err))
		return 0, err
	}

	a.mu.Lock()
	a.nodeID = id
	a.redisKey = fmt.Sprintf("%s:%d", a.cfg.KeyPrefix, id)
	a.value = value
	a.mu.Unlock()

	a.logger.Info("node id allocated", clog.Uint64("node_id", id), clog.String("key", a.redisKey))
	return id, nil
}

func (a *redisAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	go func() {
		interval := time.Duration(a.cfg.TTL) * time.Second / 3
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		client := a.redis.GetClient()

		a.mu.Lock()
		key, value := a.redisKey, a.value
		a.mu.Unlock()

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				renewed, err := client.Eval(ctx, renewScript, []string{key}, value, a.cfg.TTL).Int64()
				if err == nil && renewed == 0 {
					err = xerrors.WithCode(ErrLeaseExpired, "node_id_taken_over")
				}
				if err != nil {
					a.logger.Error("keep alive failed", clog.Error(err), clog.String("key", key))
					errCh <- xerrors.Wrap(err, "keep alive")
					return
				}
			}
		}
	}()

	return errCh
}

func (a *redisAllocator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		a.mu.Lock()
		key, value, id := a.redisKey, a.value, a.nodeID
		a.mu.Unlock()
		if key == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.redis.GetClient().Eval(ctx, releaseScript, []string{key}, value).Err(); err != nil {
			a.logger.Warn("release node id failed", clog.Error(err), clog.String("key", key))
			return
		}
		a.logger.Info("node id released", clog.Uint64("node_id", id), clog.String("key", key))
	})
}
