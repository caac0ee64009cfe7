package service

import "time"

// Frame ops. A response carries the request's op, or OpError.
const (
	OpGetItem    byte = 1
	OpSetItem    byte = 2
	OpClearCache byte = 3
	OpGetStats   byte = 4
	OpError      byte = 0xFF
)

type GetItemRequest struct {
	LibraryURI     string `msgpack:"library_uri"`
	LibraryVersion int64  `msgpack:"library_version"`
	Hash           string `msgpack:"hash"`
}

type GetItemResponse struct {
	Found bool   `msgpack:"found"`
	Value []byte `msgpack:"value"`
}

type SetItemRequest struct {
	LibraryURI     string     `msgpack:"library_uri"`
	LibraryVersion int64      `msgpack:"library_version"`
	Hash           string     `msgpack:"hash"`
	Expires        *time.Time `msgpack:"expires"` // nil => never
	EventMasks     []string   `msgpack:"event_masks"`
	Value          []byte     `msgpack:"value"`
}

type StatsResponse struct {
	CacheSize int    `msgpack:"cache_size"`
	Hits      uint64 `msgpack:"hits"`
	Requests  uint64 `msgpack:"requests"`
}

type ErrorResponse struct {
	Message string `msgpack:"message"`
}
