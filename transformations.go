package merchantagg

import (
	"github.com/ab180/merchantagg/transformation"
)

type (
	Context = transformation.Context
	Mapper  = transformation.Mapper
	Reducer = transformation.Reducer
)

// Skip marks err as a record-level error. The record is dropped and reported in the result.
func Skip(err error) error {
	return transformation.Skip(err)
}
