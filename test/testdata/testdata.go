package testdata

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/ab180/merchantagg/aggregate"
)

const EnvKeyTestdataDir = "MERCHANTAGG_TESTDATA_DIR"

const (
	TotalInputFiles      = 2
	TotalHeaders         = 2
	TotalParsed          = 13
	TotalMalformed       = 2
	TotalUnresolved      = 1
	TotalLookupEntries   = 4
	TotalLookupMalformed = 1
)

// Expected is the bucket of every merchant and day in the transactions.
var Expected = map[string]aggregate.Bucket{
	"Acme-2024-01-01":             {BelowOrEq5000: 2, BelowOrEq10000: 1, Total: 3},
	"Acme-2024-01-02":             {BelowOrEq10000: 2, Total: 2},
	"Globex-2024-01-01":           {BelowOrEq10000: 1, BelowOrEq20000: 1, Total: 2},
	"Globex-2024-01-02":           {BelowOrEq20000: 1, Total: 1},
	"Initech-2024-01-01":          {BelowOrEq20000: 1, Above20000: 1, Total: 2},
	"Umbrella-2024-01-02":         {BelowOrEq5000: 1, Above20000: 1, Total: 2},
	"unknown-merchant-2024-01-01": {BelowOrEq5000: 1, Total: 1},
}

// ExpectedLines are the lines of every part file, sorted.
var ExpectedLines = []string{
	"Acme-2024-01-01\t2\t1\t0\t0\t3",
	"Acme-2024-01-02\t0\t2\t0\t0\t2",
	"Globex-2024-01-01\t0\t1\t1\t0\t2",
	"Globex-2024-01-02\t0\t0\t1\t0\t1",
	"Initech-2024-01-01\t0\t0\t1\t1\t2",
	"Umbrella-2024-01-02\t1\t0\t0\t1\t2",
	"unknown-merchant-2024-01-01\t1\t0\t0\t0\t1",
}

// Path returns the test data directory. It can be overridden with MERCHANTAGG_TESTDATA_DIR env.
func Path() string {
	if envPath, exists := os.LookupEnv(EnvKeyTestdataDir); exists {
		return envPath
	}
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("unable to locate test data directory")
	}
	return filepath.Dir(file)
}

func TransactionsPath() string {
	return filepath.Join(Path(), "transactions")
}

func MerchantsPath() string {
	return filepath.Join(Path(), "merchants.csv")
}
