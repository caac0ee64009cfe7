// Package redis carries evcache events across processes over Redis pub/sub.
//
// Event names map to channels as Prefix+name and a subscription's event type is
// PSUBSCRIBEd as Prefix+eventType, so Redis does the glob filtering. Payloads
// are encoded with a codec.Codec[any] (msgpack by default); every process on
// the same prefix must agree on it.
//
// Delivery is at-most-once and asynchronous: an entry in another process is
// invalidated shortly after Publish, not before it returns.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/evcache"
	"github.com/unkn0wn-root/evcache/codec"
)

const DefaultPrefix = "evcache:"

type Config struct {
	Client redis.UniversalClient
	Prefix string           // "" => DefaultPrefix
	Codec  codec.Codec[any] // nil => msgpack
	Logger evcache.Logger   // payload decode failures are logged at Warn
}

type Bus struct {
	rdb    redis.UniversalClient
	prefix string
	codec  codec.Codec[any]
	log    evcache.Logger
}

var _ evcache.EventBus = (*Bus)(nil)

func New(cfg Config) (*Bus, error) {
	if cfg.Client == nil {
		return nil, errors.New("eventbus/redis: nil client")
	}
	b := &Bus{rdb: cfg.Client, prefix: cfg.Prefix, codec: cfg.Codec, log: cfg.Logger}
	if b.prefix == "" {
		b.prefix = DefaultPrefix
	}
	if b.codec == nil {
		b.codec = codec.Msgpack[any]{}
	}
	if b.log == nil {
		b.log = evcache.NopLogger{}
	}
	return b, nil
}

// Publish sends the event. A nil data is sent as an empty payload.
func (b *Bus) Publish(ctx context.Context, name string, data any) error {
	var payload []byte
	if data != nil {
		var err error
		if payload, err = b.codec.Encode(data); err != nil {
			return fmt.Errorf("eventbus/redis: encode %q: %w", name, err)
		}
	}
	return b.rdb.Publish(ctx, b.prefix+name, payload).Err()
}

// Subscribe returns once Redis has confirmed the pattern subscription.
// Handlers run on one goroutine per subscription, in channel order.
func (b *Bus) Subscribe(eventType string, h evcache.EventHandler) (evcache.Subscription, error) {
	if eventType == "" {
		eventType = evcache.DefaultEventType
	}
	ctx := context.Background()
	ps := b.rdb.PSubscribe(ctx, b.prefix+eventType)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("eventbus/redis: psubscribe %q: %w", eventType, err)
	}

	ch := ps.Channel()
	s := &subscription{ps: ps, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		for msg := range ch {
			ev, err := b.toEvent(msg.Channel, msg.Payload)
			if err != nil {
				b.log.Warn("event dropped (undecodable payload)", evcache.Fields{"channel": msg.Channel, "err": err})
				continue
			}
			h(ev)
		}
	}()
	return s, nil
}

func (b *Bus) toEvent(channel, payload string) (evcache.Event, error) {
	ev := evcache.Event{Name: strings.TrimPrefix(channel, b.prefix)}
	if payload == "" {
		return ev, nil
	}
	data, err := b.codec.Decode([]byte(payload))
	if err != nil {
		return evcache.Event{}, err
	}
	ev.Data = data
	return ev, nil
}

type subscription struct {
	ps   *redis.PubSub
	done chan struct{}
	once sync.Once
	err  error
}

// Unsubscribe closes the pub/sub connection and waits for the handler
// goroutine to exit. It must not be called from the handler.
func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
		<-s.done
	})
	return s.err
}
