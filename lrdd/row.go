package lrdd

import (
	"fmt"

	"github.com/pkg/errors"
)

// Row is a keyed record flowing between stages.
type Row struct {
	Key   string
	Value MarshalUnmarshaler
}

// KeyValue creates a row with given key and value.
func KeyValue(key string, value MarshalUnmarshaler) *Row {
	return &Row{Key: key, Value: value}
}

// MarshalUnmarshaler is a value which can be carried by a Row.
// MarshalMsg appends the encoded value to given buffer and returns the extended buffer.
type MarshalUnmarshaler interface {
	MarshalMsg([]byte) ([]byte, error)
	UnmarshalMsg([]byte) ([]byte, error)
	ID() RowID
	String() string
}

// RowID identifies the value type of a row on the wire.
type RowID int32

// RawRow is an encoded form of Row.
type RawRow struct {
	Key   string
	ID    RowID
	Value []byte
}

// Marshal encodes the row into RawRow.
func (r *Row) Marshal() (RawRow, error) {
	if r.Value == nil {
		return RawRow{}, errors.Errorf("row %q has no value", r.Key)
	}
	v, err := r.Value.MarshalMsg(nil)
	if err != nil {
		return RawRow{}, errors.Wrapf(err, "marshal value of row %q", r.Key)
	}
	return RawRow{Key: r.Key, ID: r.Value.ID(), Value: v}, nil
}

// Unmarshal decodes RawRow using the value type registered under its RowID.
func (rr RawRow) Unmarshal() (*Row, error) {
	v, err := GetValue(rr.ID)
	if err != nil {
		return nil, err
	}
	if _, err := v.UnmarshalMsg(rr.Value); err != nil {
		return nil, errors.Wrapf(err, "unmarshal value of row %q", rr.Key)
	}
	return &Row{Key: rr.Key, Value: v}, nil
}

// GetValue returns an empty value of the type registered with given RowID.
func GetValue(rowID RowID) (MarshalUnmarshaler, error) {
	newFunc, ok := rowTypes[rowID]
	if !ok {
		return nil, errors.Errorf("unknown row type %d", rowID)
	}
	return newFunc(), nil
}

// RegisterValue registers a value type. It is intended to be called from init.
func RegisterValue(rowID RowID, newFunc func() MarshalUnmarshaler) {
	if _, ok := rowTypes[rowID]; ok {
		panic(fmt.Sprintf("row type %v already registered", rowID))
	}
	rowTypes[rowID] = newFunc
}

var rowTypes = map[RowID]func() MarshalUnmarshaler{}
