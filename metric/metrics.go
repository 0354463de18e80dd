package metric

import (
	"fmt"
	"sort"

	"github.com/thoas/go-funk"
)

// Metrics is a set of named counters collected from tasks.
type Metrics map[string]uint64

// Add merges two metrics. When a key collides, it sums two key.
func (m Metrics) Add(o Metrics) {
	for k, v := range o {
		m[k] += v
	}
}

// Sum returns a new metric holding the sum of m and o.
func (m Metrics) Sum(o Metrics) (merged Metrics) {
	merged = make(Metrics, len(m))
	merged.Add(m)
	merged.Add(o)
	return
}

// AddPrefix returns new metric where all keys prefixed with given prefix.
func (m Metrics) AddPrefix(p string) (prefixed Metrics) {
	prefixed = make(Metrics, len(m))
	for k, v := range m {
		prefixed[p+k] = v
	}
	return
}

func (m Metrics) String() string {
	keys := funk.Keys(m).([]string)
	sort.Strings(keys)

	metricLogs := ""
	for _, key := range keys {
		metricLogs += fmt.Sprintf(" - %s: %d\n", key, m[key])
	}
	return metricLogs
}
