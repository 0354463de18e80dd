package output

import (
	"github.com/ab180/merchantagg/lrdd"
	"github.com/hashicorp/go-multierror"
)

// Composed writes every row to all of its outputs in order.
type Composed struct {
	outputs []Output
}

func NewComposed(outputs ...Output) *Composed {
	return &Composed{outputs}
}

func (c *Composed) Write(rows ...*lrdd.Row) error {
	for _, o := range c.outputs {
		if err := o.Write(rows...); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all outputs, even if some of them fail.
func (c *Composed) Close() error {
	var errs error
	for _, o := range c.outputs {
		if err := o.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
