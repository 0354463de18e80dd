package partitions

// Context tells a Partitioner where the rows being routed were produced.
type Context interface {
	// PartitionID is the ID of the split which produced the rows.
	PartitionID() string
}

type splitContext string

func NewContext(splitID string) Context {
	return splitContext(splitID)
}

func (s splitContext) PartitionID() string { return string(s) }
