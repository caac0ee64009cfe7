// Package service hosts the shared adhoc cache behind a request/response
// protocol. Transports are out of scope: they hand Handle one framed request
// (see internal/wire) and write back the framed response.
//
// Requests and responses are msgpack bodies; cached values are opaque bytes.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/evcache"
	"github.com/unkn0wn-root/evcache/adhoc"
	"github.com/unkn0wn-root/evcache/codec"
	"github.com/unkn0wn-root/evcache/internal/wire"
)

var (
	ErrUnknownOp = errors.New("service: unknown op")
	ErrNilCache  = errors.New("service: nil cache")
)

type Options struct {
	Logger       evcache.Logger
	MaxBodyBytes int // request bodies above this get an OpError reply; 0 => DefaultMaxBodyBytes
}

type Service struct {
	cache   *adhoc.Cache[[]byte]
	log     evcache.Logger
	maxBody int
}

// New serves cache, which is usually the process-wide instance from NewCache.
func New(cache *adhoc.Cache[[]byte], opts Options) (*Service, error) {
	if cache == nil {
		return nil, ErrNilCache
	}
	s := &Service{cache: cache, log: opts.Logger, maxBody: opts.MaxBodyBytes}
	if s.log == nil {
		s.log = evcache.NopLogger{}
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	return s, nil
}

func (s *Service) GetItem(req GetItemRequest) GetItemResponse {
	v, ok := s.cache.Get(req.LibraryURI, req.LibraryVersion, req.Hash)
	return GetItemResponse{Found: ok, Value: v}
}

func (s *Service) SetItem(req SetItemRequest) {
	var expires time.Time
	if req.Expires != nil {
		expires = *req.Expires
	}
	s.cache.Set(req.LibraryURI, req.LibraryVersion, req.Hash, expires, req.EventMasks, req.Value)
}

func (s *Service) ClearCache() { s.cache.Clear() }

func (s *Service) GetStats() StatsResponse {
	st := s.cache.Stats()
	return StatsResponse{CacheSize: st.CacheSize, Hits: st.Hits, Requests: st.Requests}
}

// Handle answers one framed request. Request-level failures such as an
// unknown op or an oversized body come back as an OpError frame; an error is
// returned only when no response can be framed at all.
func (s *Service) Handle(ctx context.Context, frame []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := wire.Decode(frame)
	if err != nil {
		return nil, err
	}

	body, err := s.dispatch(req.Op, req.Body)
	if err != nil {
		s.log.Warn("request failed", evcache.Fields{"op": req.Op, "id": req.ID, "err": err})
		return s.respond(req.ID, OpError, ErrorResponse{Message: err.Error()})
	}
	return s.respond(req.ID, req.Op, body)
}

func (s *Service) dispatch(op byte, body []byte) (any, error) {
	switch op {
	case OpGetItem:
		req, err := decode[GetItemRequest](s, body)
		if err != nil {
			return nil, err
		}
		return s.GetItem(req), nil
	case OpSetItem:
		req, err := decode[SetItemRequest](s, body)
		if err != nil {
			return nil, err
		}
		s.SetItem(req)
		return nil, nil
	case OpClearCache:
		s.ClearCache()
		return nil, nil
	case OpGetStats:
		return s.GetStats(), nil
	default:
		return nil, fmt.Errorf("%w %d", ErrUnknownOp, op)
	}
}

func (s *Service) respond(id uint64, op byte, v any) ([]byte, error) {
	var body []byte
	if v != nil {
		var err error
		if body, err = (codec.Msgpack[any]{}).Encode(v); err != nil {
			return nil, fmt.Errorf("service: encode response: %w", err)
		}
	}
	return wire.Encode(wire.Frame{Op: op, ID: id, Body: body}), nil
}

func decode[T any](s *Service, body []byte) (T, error) {
	c := codec.Limit[T]{Inner: codec.Msgpack[T]{}, MaxDecode: s.maxBody}
	v, err := c.Decode(body)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("service: decode request: %w", err)
	}
	return v, nil
}
