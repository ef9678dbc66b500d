package config

import (
	"context"
	"reflect"
	"slices"
	"time"

	"github.com/ceyewan/sinteflake/clog"
	"github.com/ceyewan/sinteflake/xerrors"
)

const watchBuffer = 10

type subscription struct {
	key  string
	ch   chan Event
	last any
}

// Watch 订阅 key 的变化，ctx 结束后通道关闭
func (l *viperLoader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "watch key is empty")
	}

	s := &subscription{key: key, ch: make(chan Event, watchBuffer), last: l.v.Get(key)}
	l.mu.Lock()
	l.subs = append(l.subs, s)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.unsubscribe(s)
	}()
	return s.ch, nil
}

func (l *viperLoader) unsubscribe(s *subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = slices.DeleteFunc(l.subs, func(x *subscription) bool { return x == s })
	close(s.ch)
}

// publish 把值发生变化的 key 推给订阅者，通道满时丢弃
func (l *viperLoader) publish(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.subs {
		cur := l.v.Get(s.key)
		if reflect.DeepEqual(cur, s.last) {
			continue
		}
		ev := Event{Key: s.key, Value: cur, OldValue: s.last, Source: "file", Timestamp: now}
		s.last = cur

		select {
		case s.ch <- ev:
		default:
			l.logger.Warn("config watcher is slow, event dropped", clog.String("key", s.key))
		}
	}
}
