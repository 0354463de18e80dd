package executor

import (
	"reflect"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

// Instantiate returns a private copy of the prototype, so that each worker or key
// gets its own transformation instance. Non-pointer prototypes are already copied by value.
func Instantiate[T any](prototype T) (T, error) {
	v := reflect.ValueOf(prototype)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return prototype, nil
	}
	clone := reflect.New(v.Elem().Type())
	if err := copier.Copy(clone.Interface(), prototype); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "instantiate %s", v.Elem().Type().Name())
	}
	return clone.Interface().(T), nil
}
