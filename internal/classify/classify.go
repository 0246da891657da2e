// Package classify implements the Proxy's statement classification step:
// the trusted host has already pruned dangerous verbs, so this is the
// "belt-and-braces" check from spec §3 that turns anything other than
// SELECT/INSERT into a 500.
package classify

import (
	"errors"

	"github.com/hanzltom/cloud-db/internal/envelope"
)

// ErrUnclassifiable is returned when the leading keyword is neither SELECT
// nor INSERT.
var ErrUnclassifiable = errors.New("Incorrect action in query")

// Classify returns the statement's QueryType, or ErrUnclassifiable if the
// leading keyword isn't SELECT or INSERT.
func Classify(query string) (envelope.QueryType, error) {
	qt := envelope.ClassifyQuery(query)
	if qt == envelope.QueryTypeOther {
		return qt, ErrUnclassifiable
	}
	return qt, nil
}
