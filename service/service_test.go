package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/unkn0wn-root/evcache/eventbus/local"
	"github.com/unkn0wn-root/evcache/internal/wire"
)

const lib = "mod::webhare/lib/report.whlib"

func newService(t *testing.T, cfg Config) (*Service, *local.Bus) {
	t.Helper()
	bus := local.New()
	cache, err := NewCache(cfg, bus, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	s, err := New(cache, Options{MaxBodyBytes: cfg.MaxBodyBytes})
	require.NoError(t, err)
	return s, bus
}

func call(t *testing.T, s *Service, id uint64, op byte, req any) wire.Frame {
	t.Helper()
	var body []byte
	if req != nil {
		var err error
		body, err = msgpack.Marshal(req)
		require.NoError(t, err)
	}
	out, err := s.Handle(context.Background(), wire.Encode(wire.Frame{Op: op, ID: id, Body: body}))
	require.NoError(t, err)
	resp, err := wire.Decode(out)
	require.NoError(t, err)
	require.Equal(t, id, resp.ID, "response must echo the request id")
	return resp
}

func getItem(t *testing.T, s *Service, version int64, hash string) GetItemResponse {
	t.Helper()
	resp := call(t, s, 1, OpGetItem, GetItemRequest{LibraryURI: lib, LibraryVersion: version, Hash: hash})
	require.Equal(t, OpGetItem, resp.Op)
	var out GetItemResponse
	require.NoError(t, msgpack.Unmarshal(resp.Body, &out))
	return out
}

func setItem(t *testing.T, s *Service, version int64, hash string, value string, masks ...string) {
	t.Helper()
	resp := call(t, s, 2, OpSetItem, SetItemRequest{
		LibraryURI: lib, LibraryVersion: version, Hash: hash, EventMasks: masks, Value: []byte(value),
	})
	require.Equal(t, OpSetItem, resp.Op)
	assert.Empty(t, resp.Body)
}

func stats(t *testing.T, s *Service) StatsResponse {
	t.Helper()
	resp := call(t, s, 3, OpGetStats, nil)
	require.Equal(t, OpGetStats, resp.Op)
	var out StatsResponse
	require.NoError(t, msgpack.Unmarshal(resp.Body, &out))
	return out
}

func TestHandleVersionedItems(t *testing.T) {
	s, _ := newService(t, DefaultConfig())

	setItem(t, s, 5, "h", "A")
	setItem(t, s, 3, "h", "old")
	setItem(t, s, 5, "h", "B")

	got := getItem(t, s, 5, "h")
	assert.True(t, got.Found)
	assert.Equal(t, []byte("B"), got.Value)
	assert.False(t, getItem(t, s, 3, "h").Found)

	assert.Equal(t, StatsResponse{CacheSize: 1, Hits: 1, Requests: 2}, stats(t, s))

	resp := call(t, s, 4, OpClearCache, nil)
	require.Equal(t, OpClearCache, resp.Op)
	assert.Equal(t, StatsResponse{}, stats(t, s))
}

func TestHandleEventMasksAndReset(t *testing.T) {
	s, bus := newService(t, DefaultConfig())
	setItem(t, s, 1, "a", "x", "wrd:type.5.*")
	setItem(t, s, 1, "b", "y")

	bus.Publish("wrd:type.5.change", nil)
	assert.False(t, getItem(t, s, 1, "a").Found)
	assert.True(t, getItem(t, s, 1, "b").Found)

	bus.Publish("system:cachereset", nil)
	assert.Equal(t, StatsResponse{}, stats(t, s))
}

func TestSetItemExpires(t *testing.T) {
	s, _ := newService(t, DefaultConfig())
	past := time.Now().Add(-time.Minute)
	resp := call(t, s, 9, OpSetItem, SetItemRequest{LibraryURI: lib, LibraryVersion: 1, Hash: "h", Expires: &past, Value: []byte("x")})
	require.Equal(t, OpSetItem, resp.Op)
	assert.False(t, getItem(t, s, 1, "h").Found, "an already expired item must miss")
}

func TestHandleErrors(t *testing.T) {
	s, _ := newService(t, Config{MaxBodyBytes: 64})

	resp := call(t, s, 7, 0x42, nil)
	require.Equal(t, OpError, resp.Op)
	var e ErrorResponse
	require.NoError(t, msgpack.Unmarshal(resp.Body, &e))
	assert.Contains(t, e.Message, ErrUnknownOp.Error())

	resp = call(t, s, 8, OpSetItem, SetItemRequest{LibraryURI: lib, Hash: "h", Value: make([]byte, 128)})
	require.Equal(t, OpError, resp.Op)
	require.NoError(t, msgpack.Unmarshal(resp.Body, &e))
	assert.Contains(t, e.Message, "too large")

	out, err := s.Handle(context.Background(), wire.Encode(wire.Frame{Op: OpGetItem, Body: []byte{0xc1}}))
	require.NoError(t, err)
	resp, err = wire.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, OpError, resp.Op)

	_, err = s.Handle(context.Background(), []byte("garbage"))
	assert.ErrorIs(t, err, wire.ErrCorrupt)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Handle(ctx, wire.Encode(wire.Frame{Op: OpGetStats}))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMethodsMatchHandle(t *testing.T) {
	s, _ := newService(t, DefaultConfig())
	s.SetItem(SetItemRequest{LibraryURI: lib, LibraryVersion: 2, Hash: "h", Value: []byte("v")})
	assert.Equal(t, GetItemResponse{Found: true, Value: []byte("v")}, s.GetItem(GetItemRequest{LibraryURI: lib, LibraryVersion: 2, Hash: "h"}))
	s.ClearCache()
	assert.Equal(t, StatsResponse{}, s.GetStats())
}

func TestNewRequiresCache(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrNilCache)
}
