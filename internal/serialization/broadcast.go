package serialization

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// ErrNoBroadcast is returned when a broadcast key is not found.
var ErrNoBroadcast = errors.New("broadcast not found")

// Broadcast is side data shared with every worker of a job.
type Broadcast map[string]interface{}

// SerializedBroadcast is a Broadcast in its shipped form. Each worker decodes its own copy.
type SerializedBroadcast map[string][]byte

func SerializeBroadcast(b Broadcast) (s SerializedBroadcast, err error) {
	s = make(SerializedBroadcast, len(b))
	for k, v := range b {
		s[k], err = jsoniter.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "serialize broadcast %s", k)
		}
	}
	return s, nil
}

// Unmarshal decodes the broadcast value of given key into valuePtr.
func (s SerializedBroadcast) Unmarshal(key string, valuePtr interface{}) error {
	raw, ok := s[key]
	if !ok {
		return errors.Wrap(ErrNoBroadcast, key)
	}
	if err := jsoniter.Unmarshal(raw, valuePtr); err != nil {
		return errors.Wrapf(err, "deserialize broadcast %s", key)
	}
	return nil
}
