package input

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ab180/merchantagg/pkg/encoding/lz4"
	"github.com/pkg/errors"
	"github.com/therne/errorist"
)

// Split is a unit of map work: a named source of lines.
type Split interface {
	ID() string
	Open() (io.ReadCloser, error)
}

// Feeder pushes splits to the reader. The reader is closed by the caller.
type Feeder interface {
	FeedInput(ctx context.Context, r *Reader) error
}

// LocalFiles feeds one split per regular file found under given paths.
// Directories are walked recursively; names beginning with "_" or "." are skipped.
func LocalFiles(paths ...string) Feeder {
	return localFiles(paths)
}

type localFiles []string

func (l localFiles) FeedInput(ctx context.Context, r *Reader) error {
	files, err := ListFiles(l...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Errorf("no input files found in %s", strings.Join(l, ", "))
	}
	for _, path := range files {
		if err := r.Send(ctx, fileSplit(path)); err != nil {
			return err
		}
	}
	return nil
}

// ListFiles expands given paths into a sorted list of regular files.
func ListFiles(paths ...string) ([]string, error) {
	var files []string
	for _, root := range paths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if path != root && isHidden(info.Name()) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if info.IsDir() {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", root)
		}
	}
	sort.Strings(files)
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

type fileSplit string

func (f fileSplit) ID() string {
	return string(f)
}

func (f fileSplit) Open() (io.ReadCloser, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return nil, err
	}
	if !lz4.IsCompressed(string(f)) {
		return file, nil
	}
	return &compressedFile{ReadCloser: lz4.NewReader(file), file: file}, nil
}

type compressedFile struct {
	io.ReadCloser
	file *os.File
}

func (c *compressedFile) Close() (err error) {
	defer errorist.CloseWithErrCapture(c.file, &err)
	return c.ReadCloser.Close()
}

// Lines returns an in-memory split.
func Lines(id string, lines ...string) Split {
	return lineSplit{id: id, lines: lines}
}

type lineSplit struct {
	id    string
	lines []string
}

func (l lineSplit) ID() string {
	return l.id
}

func (l lineSplit) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(strings.Join(l.lines, "\n"))), nil
}

// Splits feeds given splits in order.
func Splits(splits ...Split) Feeder {
	return splitFeeder(splits)
}

type splitFeeder []Split

func (s splitFeeder) FeedInput(ctx context.Context, r *Reader) error {
	for _, split := range s {
		if err := r.Send(ctx, split); err != nil {
			return err
		}
	}
	return nil
}
