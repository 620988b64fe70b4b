package sqlite

import (
	"database/sql/driver"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	sqlitedrv "modernc.org/sqlite"
)

// SQL FUNCTIONS IN GO:
// modernc.org/sqlite can call back into Go from SQL. Functions registered
// here are available on every connection the driver opens, so they must be
// registered before the first sql.Open, hence init.
//
// WHY NOT LIKE?
// SQLite's built-in LIKE folds case for ASCII letters only: "паста" does not
// match "Паста" and "crème" does not match "CRÈME". icontains folds with
// Unicode rules instead, and as a plain substring test it has no wildcard
// characters to escape.
func init() {
	sqlitedrv.MustRegisterDeterministicScalarFunction("icontains", 2, icontains)
}

// icontains(haystack, needle) is 1 when haystack contains needle ignoring
// case, 0 when it doesn't, and NULL when either argument is NULL.
func icontains(_ *sqlitedrv.FunctionContext, args []driver.Value) (driver.Value, error) {
	haystack, ok := textArg(args[0])
	if !ok {
		return nil, nil
	}
	needle, ok := textArg(args[1])
	if !ok {
		return nil, nil
	}

	if containsFold(haystack, needle) {
		return int64(1), nil
	}
	return int64(0), nil
}

func textArg(v driver.Value) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// containsFold reports whether needle occurs in haystack under Unicode case
// folding. Both sides are NFC-normalised first so a precomposed "è" and
// "e" + combining grave compare equal.
//
// A cases.Caser keeps state between calls and must not be shared across
// goroutines, so each call builds its own.
func containsFold(haystack, needle string) bool {
	fold := cases.Fold()
	h := fold.String(norm.NFC.String(haystack))
	n := fold.String(norm.NFC.String(needle))
	return strings.Contains(h, n)
}
