package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/pkg/encoding/lz4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/therne/errorist"
)

// SuccessMarker is created in the output directory after every partition has been written.
const SuccessMarker = "_SUCCESS"

// FileSinkOptions configures FileSink.
type FileSinkOptions struct {
	// FormatKey converts a row key into its printed form. Defaults to the key itself.
	FormatKey func(key string) string

	// Compress writes lz4-framed part files.
	Compress bool
}

// FileSink writes one part file per partition into a directory. Lines are
// "<key>\t<value>" sorted by the printed key.
type FileSink struct {
	Dir string

	opt     FileSinkOptions
	mu      sync.Mutex
	written map[string]struct{}
}

// NewFileSink creates the output directory. It fails if the directory already exists,
// so an earlier run is never overwritten.
func NewFileSink(dir string, opt FileSinkOptions) (*FileSink, error) {
	if opt.FormatKey == nil {
		opt.FormatKey = func(key string) string { return key }
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create parent of %s", dir)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", dir)
	}
	return &FileSink{Dir: dir, opt: opt, written: make(map[string]struct{})}, nil
}

// PartFileName returns the part file name of a partition.
func PartFileName(partitionID string) string {
	if idx, err := strconv.Atoi(partitionID); err == nil {
		return fmt.Sprintf("part-r-%05d", idx)
	}
	return "part-r-" + partitionID
}

func (f *FileSink) Open(partitionID string) (Output, error) {
	name := PartFileName(partitionID)
	if f.opt.Compress {
		name += lz4.Extension
	}
	return &partFile{sink: f, path: filepath.Join(f.Dir, name)}, nil
}

// Files returns paths of part files written so far.
func (f *FileSink) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	files := lo.Keys(f.written)
	sort.Strings(files)
	return files
}

func (f *FileSink) Commit() error {
	marker := filepath.Join(f.Dir, SuccessMarker)
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return errors.Wrap(err, "write success marker")
	}
	log.Debug().Str("dir", f.Dir).Int("files", len(f.Files())).Msg("output committed")
	return nil
}

type line struct {
	key   string
	value string
}

// partFile buffers a partition's rows and writes the file on Close. Closing again
// after a retry replaces the file.
type partFile struct {
	sink  *FileSink
	path  string
	lines []line
}

func (p *partFile) Write(rows ...*lrdd.Row) error {
	for _, r := range rows {
		p.lines = append(p.lines, line{
			key:   p.sink.opt.FormatKey(r.Key),
			value: r.Value.String(),
		})
	}
	return nil
}

// Close writes lines into a hidden temporary file and renames it into place.
func (p *partFile) Close() error {
	sort.SliceStable(p.lines, func(i, j int) bool {
		return p.lines[i].key < p.lines[j].key
	})

	tmpPath := filepath.Join(filepath.Dir(p.path), "."+filepath.Base(p.path)+".tmp")
	if err := p.writeTo(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrapf(err, "write %s", p.path)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return errors.Wrapf(err, "rename %s", tmpPath)
	}

	p.sink.mu.Lock()
	p.sink.written[p.path] = struct{}{}
	p.sink.mu.Unlock()
	return nil
}

// Abort drops the buffered rows without touching the file.
func (p *partFile) Abort() {
	p.lines = nil
}

func (p *partFile) writeTo(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer errorist.CloseWithErrCapture(file, &err)

	var w io.Writer = file
	if p.sink.opt.Compress {
		zw := lz4.NewWriter(file)
		defer errorist.CloseWithErrCapture(zw, &err)
		w = zw
	}
	bw := bufio.NewWriter(w)
	for _, l := range p.lines {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", l.key, l.value); err != nil {
			return err
		}
	}
	return bw.Flush()
}
