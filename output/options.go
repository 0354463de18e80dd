package output

// Options configures buffering of shuffle writers.
type Options struct {
	// BufferLength is the number of rows buffered per partition before flushing to its shard.
	BufferLength int `default:"1000"`
}

func DefaultOptions() Options {
	return Options{
		BufferLength: 1000,
	}
}
