package util

import (
	"reflect"
)

// NameOfType returns the name of the type of v, dereferencing pointers.
// Unnamed types are described by their literal form.
func NameOfType(v interface{}) string {
	if v == nil {
		return ""
	}
	typ := reflect.TypeOf(v)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Name() == "" {
		return typ.String()
	}
	return typ.Name()
}
