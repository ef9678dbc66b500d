package idgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

type etcdAllocator struct {
	client *clientv3.Client
	cfg    *AllocatorConfig
	logger clog.Logger

	mu       sync.Mutex
	leaseID  clientv3.LeaseID
	nodeID   uint64
	etcdKey  string
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (a *etcdAllocator) Allocate(ctx context.Context) (uint64, error) {
	if a.client == nil {
		return 0, xerrors.WithCode(ErrConnectorNil, "etcd_client_nil")
	}
	id, err := withRetry(ctx, a.cfg.MaxRetries, a.allocateOnce)
	if err != nil {
		a.logger.Error("allocate node id failed", clog.Error(err))
		return 0, err
	}
	return id, nil
}

// allocateOnce 创建 Lease 后用事务 CAS 抢占第一个空闲槽位，失败时撤销 Lease
func (a *etcdAllocator) allocateOnce(ctx context.Context) (uint64, error) {
	lease, err := a.client.Grant(ctx, int64(a.cfg.TTL))
	if err != nil {
		a.logger.Warn("etcd grant lease failed", clog.Error(err))
		return 0, xerrors.Wrap(err, "etcd grant")
	}

	value := holderValue()
	maxID := a.cfg.MaxID()
	offset := rand.Uint64N(maxID)

	for i := uint64(0); i < maxID; i++ {
		id := (offset + i) % maxID
		key := fmt.Sprintf("%s:%d", a.cfg.KeyPrefix, id)

		// key 不存在时 CreateRevision 为 0
		resp, err := a.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, value, clientv3.WithLease(lease.ID))).
			Commit()
		if err != nil {
			a.revoke(lease.ID)
			a.logger.Warn("etcd txn failed", clog.Error(err), clog.String("key", key))
			return 0, xerrors.Wrap(err, "etcd txn")
		}

		if resp.Succeeded {
			a.mu.Lock()
			a.leaseID = lease.ID
			a.nodeID = id
			a.etcdKey = key
			a.mu.Unlock()

			a.logger.Info("node id allocated",
				clog.Uint64("node_id", id),
				clog.String("key", key),
				clog.Int64("lease_id", int64(lease.ID)),
			)
			return id, nil
		}
	}

	a.revoke(lease.ID)
	return 0, xerrors.WithCode(ErrNodeIDExhausted, "no_available_node_id")
}

func (a *etcdAllocator) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := a.client.Revoke(ctx, id); err != nil {
		a.logger.Warn("etcd revoke lease failed", clog.Error(err), clog.Int64("lease_id", int64(id)))
	}
}

func (a *etcdAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	go func() {
		a.mu.Lock()
		leaseID := a.leaseID
		a.mu.Unlock()

		kaCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		kaCh, err := a.client.KeepAlive(kaCtx, leaseID)
		if err != nil {
			a.logger.Error("etcd keep alive failed", clog.Error(err), clog.Int64("lease_id", int64(leaseID)))
			errCh <- xerrors.Wrap(err, "keep alive")
			return
		}

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case ka, ok := <-kaCh:
				if !ok || ka == nil {
					a.logger.Error("lease expired", clog.Int64("lease_id", int64(leaseID)))
					errCh <- xerrors.WithCode(ErrLeaseExpired, "lease_expired")
					return
				}
			}
		}
	}()

	return errCh
}

func (a *etcdAllocator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		a.mu.Lock()
		leaseID, key, id := a.leaseID, a.etcdKey, a.nodeID
		a.mu.Unlock()
		if leaseID == 0 {
			return
		}

		// 撤销 Lease 后关联的 key 自动删除
		a.revoke(leaseID)
		a.logger.Info("node id released",
			clog.Uint64("node_id", id),
			clog.String("key", key),
			clog.Int64("lease_id", int64(leaseID)),
		)
	})
}
