package jsonrpc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// idCounter backs NextNumberID/NextStringID, a process-wide monotonic
// sequence mirroring the original's RequestIdGenerator/next_id. Unlike
// NewGeneratedID's UUIDs, callers that want compact, ordered, numeric-or-
// string correlation ids draw from this counter instead.
var idCounter int64

// RequestID is a JSON-RPC 2.0 request identifier: either a string or a
// number, never both, never an object or array. The zero value is not a
// valid ID; use NewStringID or NewNumberID to construct one.
type RequestID struct {
	str    string
	num    int64
	isStr  bool
	isNum  bool
}

// NewStringID builds a string-variant RequestID.
func NewStringID(s string) RequestID {
	return RequestID{str: s, isStr: true}
}

// NewNumberID builds a number-variant RequestID.
func NewNumberID(n int64) RequestID {
	return RequestID{num: n, isNum: true}
}

// NewGeneratedID returns a fresh string-variant RequestID backed by a v4
// UUID, the generator spec.md's C2 calls for when a caller doesn't supply
// its own correlation ID.
func NewGeneratedID() RequestID {
	return NewStringID(uuid.NewString())
}

// NextNumberID returns a fresh number-variant RequestID drawn from a
// process-wide monotonic counter. Safe for concurrent use.
func NextNumberID() RequestID {
	return NewNumberID(atomic.AddInt64(&idCounter, 1))
}

// NextStringID returns a fresh string-variant RequestID formatted from the
// same monotonic counter NextNumberID draws from, for callers that need a
// compact ordered id in string form rather than a UUID.
func NextStringID() RequestID {
	return NewStringID(strconv.FormatInt(atomic.AddInt64(&idCounter, 1), 10))
}

// IsZero reports whether this RequestID was never assigned a variant.
func (id RequestID) IsZero() bool {
	return !id.isStr && !id.isNum
}

// IsString reports whether the ID is the string variant.
func (id RequestID) IsString() bool {
	return id.isStr
}

// IsNumber reports whether the ID is the number variant.
func (id RequestID) IsNumber() bool {
	return id.isNum
}

// String returns a display form of the ID regardless of variant, suitable
// for logging and map keys.
func (id RequestID) String() string {
	switch {
	case id.isStr:
		return id.str
	case id.isNum:
		return strconv.FormatInt(id.num, 10)
	default:
		return ""
	}
}

// Equal reports whether two RequestIDs have the same variant and value.
func (id RequestID) Equal(other RequestID) bool {
	if id.isStr != other.isStr || id.isNum != other.isNum {
		return false
	}
	if id.isStr {
		return id.str == other.str
	}
	if id.isNum {
		return id.num == other.num
	}
	return true
}

func (id RequestID) MarshalJSON() ([]byte, error) {
	switch {
	case id.isStr:
		return json.Marshal(id.str)
	case id.isNum:
		return json.Marshal(id.num)
	default:
		return nil, fmt.Errorf("jsonrpc: cannot marshal zero-value RequestID")
	}
}

func (id *RequestID) UnmarshalJSON(data []byte) error {
	var asNum int64
	if err := json.Unmarshal(data, &asNum); err == nil {
		*id = NewNumberID(asNum)
		return nil
	}
	var asStr string
	if err := json.Unmarshal(data, &asStr); err == nil {
		*id = NewStringID(asStr)
		return nil
	}
	return fmt.Errorf("jsonrpc: request id must be a string or number, got %q", string(data))
}
