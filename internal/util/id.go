package util

import (
	"strconv"
	"time"

	"github.com/samber/lo"
)

const idRandomLength = 8

// GenerateID creates an ID with given prefix. IDs generated later sort after earlier ones
// in the same process as long as the clock does not go backwards.
func GenerateID(prefix string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return prefix + ts + lo.RandomString(idRandomLength, lo.LowerCaseLettersCharset)
}
