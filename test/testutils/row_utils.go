package testutils

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ab180/merchantagg/aggregate"
	"github.com/ab180/merchantagg/lrdd"
	"github.com/ab180/merchantagg/merchant"
	"github.com/ab180/merchantagg/pkg/encoding/lz4"
)

// BucketsByKey returns reduced buckets by the printed form of their keys.
func BucketsByKey(rows []*lrdd.Row) map[string]aggregate.Bucket {
	buckets := make(map[string]aggregate.Bucket, len(rows))
	for _, row := range rows {
		key, err := merchant.ParseCanonical(row.Key)
		if err != nil {
			panic(err)
		}
		buckets[key.String()] = *row.Value.(*aggregate.Bucket)
	}
	return buckets
}

// ReadLines returns every line of the given part files, sorted.
func ReadLines(paths ...string) ([]string, error) {
	var lines []string
	for _, path := range paths {
		data, err := readFile(path)
		if err != nil {
			return nil, err
		}
		for _, l := range strings.Split(string(data), "\n") {
			if l != "" {
				lines = append(lines, l)
			}
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !lz4.IsCompressed(path) {
		return io.ReadAll(f)
	}
	r := lz4.NewReader(f)
	defer r.Close()
	return io.ReadAll(r)
}

// Compress writes an lz4-framed copy of src into dst.
func Compress(src, dst string) (err error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	w := lz4.NewWriter(f)
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}
