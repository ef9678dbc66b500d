package main

import (
	"context"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/connector"
	"github.com/ceyewan/sinteflake/idgen"
	"github.com/ceyewan/sinteflake/metrics"
	"github.com/ceyewan/sinteflake/trace"
	"github.com/ceyewan/sinteflake/xerrors"
)

// node 持有一个已分配 NodeID 的生成器及其依赖的连接
type node struct {
	gen       *idgen.Generator
	allocator idgen.NodeAllocator
	redis     connector.RedisConnector
	etcd      connector.EtcdConnector
	logger    clog.Logger
}

// openNode 按配置建立连接、分配 NodeID 并创建生成器，失败时释放已获得的资源
func openNode(ctx context.Context, cfg *appConfig, logger clog.Logger, meter metrics.Meter) (*node, error) {
	n := &node{logger: logger}
	if err := n.open(ctx, cfg, meter); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func (n *node) open(ctx context.Context, cfg *appConfig, meter metrics.Meter) (err error) {
	logger := n.logger
	connOpts := []connector.Option{connector.WithLogger(logger), connector.WithMeter(meter)}
	allocOpts := []idgen.Option{idgen.WithLogger(logger)}

	if cfg.needsRedis() {
		if n.redis, err = connector.NewRedis(&cfg.Redis, connOpts...); err != nil {
			return err
		}
		if err = n.redis.Connect(ctx); err != nil {
			return err
		}
		allocOpts = append(allocOpts, idgen.WithRedisConnector(n.redis))
	}
	if cfg.needsEtcd() {
		if n.etcd, err = connector.NewEtcd(&cfg.Etcd, connOpts...); err != nil {
			return err
		}
		if err = n.etcd.Connect(ctx); err != nil {
			return err
		}
		allocOpts = append(allocOpts, idgen.WithEtcdConnector(n.etcd))
	}

	// 分配范围与生成器的节点位宽保持一致
	if cfg.Allocator.NodeBits == 0 {
		cfg.Allocator.NodeBits = cfg.IDGen.NodeBits
	}
	if cfg.Allocator.Driver == "" || cfg.Allocator.Driver == "static" {
		cfg.Allocator.NodeID = cfg.IDGen.NodeID
	}
	if n.allocator, err = idgen.NewNodeAllocator(&cfg.Allocator, allocOpts...); err != nil {
		return err
	}
	var nodeID uint64
	nodeID, err = n.allocator.Allocate(ctx)
	if err != nil {
		return xerrors.Wrap(err, "allocate node id")
	}

	genCfg := cfg.IDGen
	genCfg.NodeID = nodeID
	n.gen, err = idgen.New(&genCfg,
		idgen.WithLogger(logger),
		idgen.WithMeter(meter),
		idgen.WithTracer(trace.Tracer()),
	)
	if err != nil {
		return err
	}
	logger.Info("node ready", clog.Uint64("node_id", nodeID), clog.String("driver", cfg.Allocator.Driver))
	return nil
}

// connectors 返回已建立的连接，供健康检查使用
func (n *node) connectors() []connector.Connector {
	var conns []connector.Connector
	if n.redis != nil {
		conns = append(conns, n.redis)
	}
	if n.etcd != nil {
		conns = append(conns, n.etcd)
	}
	return conns
}

// Close 释放 NodeID 后再关闭连接
func (n *node) Close() {
	if n.allocator != nil {
		n.allocator.Stop()
	}
	for _, conn := range n.connectors() {
		if err := conn.Close(); err != nil {
			n.logger.Warn("close connector failed", clog.String("name", conn.Name()), clog.Error(err))
		}
	}
}
