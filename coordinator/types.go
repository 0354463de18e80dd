package coordinator

import jsoniter "github.com/json-iterator/go"

// counterMark is value used for counter keys. If a key's value equals to counterMark,
// it means the key is counter and its value would be its version.
const counterMark = "__counter"

// EventType is the type of the events from watching keys.
type EventType int

const (
	PutEvent EventType = iota
	DeleteEvent
	CounterEvent
)

func (e EventType) String() string {
	switch e {
	case PutEvent:
		return "put"
	case DeleteEvent:
		return "delete"
	case CounterEvent:
		return "counter"
	}
	return "unknown"
}

type WatchEvent struct {
	Type EventType
	Item RawItem

	// Counter is a new value of the counter when the event is CounterEvent.
	Counter int64
}

// RawItem is a data of item which isn't unmarshalled yet.
type RawItem struct {
	Key   string
	Value []byte
}

func (r RawItem) Unmarshal(value interface{}) error {
	return jsoniter.Unmarshal(r.Value, value)
}

type BatchOp struct {
	Type  EventType
	Key   string
	Value interface{}
}

// TxnResult is a result of each operation in a committed Txn.
type TxnResult struct {
	Type    EventType
	Counter int64
	Deleted int64
}
