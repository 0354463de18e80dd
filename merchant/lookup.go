// Package merchant resolves merchant names from the merchant side input and builds
// the (merchant, day) grouping keys.
package merchant

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ab180/merchantagg/input"
	"github.com/ab180/merchantagg/metric"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	colMerchantID   = 0
	colMerchantName = 2
	minColumns      = 3
)

// LoadError is returned when the lookup source cannot be read.
type LoadError struct {
	Source string
	Err    error
}

func (l *LoadError) Error() string {
	return fmt.Sprintf("load merchant lookup from %s: %v", l.Source, l.Err)
}

func (l *LoadError) Unwrap() error {
	return l.Err
}

// Lookup maps merchant IDs to merchant names. It is never modified after loading,
// so it can be shared by any number of workers.
type Lookup struct {
	names map[string]string

	// Skipped is the number of malformed lines ignored while loading.
	Skipped int
}

// NewLookup creates a lookup from given id-to-name entries.
func NewLookup(names map[string]string) *Lookup {
	l := &Lookup{names: make(map[string]string, len(names))}
	for id, name := range names {
		l.names[id] = name
	}
	return l
}

// Load reads lookup lines from r. Quotes are stripped and each line is split on commas;
// column 0 is the merchant ID and column 2 is its name. Lines with fewer than three
// columns are skipped.
func Load(r io.Reader) (*Lookup, error) {
	l := &Lookup{names: make(map[string]string)}
	if err := l.read("reader", r); err != nil {
		return nil, err
	}
	l.report()
	return l, nil
}

// LoadFiles reads the lookup from the given files or directories. Directories are walked
// recursively, skipping names beginning with "_" or "." as input listing does.
// Any unreadable source fails the whole load with *LoadError.
func LoadFiles(paths ...string) (*Lookup, error) {
	l := &Lookup{names: make(map[string]string)}
	for _, root := range paths {
		files, err := input.ListFiles(root)
		if err != nil {
			return nil, &LoadError{Source: root, Err: err}
		}
		for _, path := range files {
			if err := l.readFile(path); err != nil {
				return nil, err
			}
		}
	}
	l.report()
	return l, nil
}

func (l *Lookup) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	log.Debug().
		Str("path", path).
		Msg("loading merchant lookup")
	return l.read(path, f)
}

func (l *Lookup) read(source string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		cols := strings.Split(strings.ReplaceAll(scanner.Text(), `"`, ""), ",")
		if len(cols) < minColumns {
			l.Skipped++
			metric.LookupSkippedLinesCounter.Inc()
			log.Warn().
				Str("source", source).
				Int("line", lineNo).
				Int("columns", len(cols)).
				Msg("skipping malformed merchant line")
			continue
		}
		l.names[strings.TrimSpace(cols[colMerchantID])] = strings.TrimSpace(cols[colMerchantName])
	}
	if err := scanner.Err(); err != nil {
		return &LoadError{Source: source, Err: err}
	}
	return nil
}

func (l *Lookup) report() {
	metric.LookupEntriesGauge.Set(float64(len(l.names)))
	if len(l.names) == 0 {
		metric.LookupEmptyCounter.Inc()
		log.Warn().
			Int("skipped", l.Skipped).
			Msg("merchant lookup is empty; every transaction will be keyed as " + UnknownMerchant)
	}
}

// Resolve returns the name of the merchant.
func (l *Lookup) Resolve(merchantID string) (name string, ok bool) {
	name, ok = l.names[merchantID]
	return
}

// Len returns the number of merchants.
func (l *Lookup) Len() int {
	return len(l.names)
}

func (l *Lookup) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(l.names)
}

func (l *Lookup) UnmarshalJSON(data []byte) error {
	names := make(map[string]string)
	if err := jsoniter.Unmarshal(data, &names); err != nil {
		return errors.Wrap(err, "unmarshal merchant lookup")
	}
	l.names = names
	return nil
}
