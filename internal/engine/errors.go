package engine

import "errors"

// ErrNoPriceAvailable is returned when neither buy-box nor list price is
// usable on a quote. A missing price is never treated as zero profit; the
// unit is skipped and reported instead.
var ErrNoPriceAvailable = errors.New("no price available")

// Version identifies the decision logic revision stamped on every report.
const Version = "1.0.0"
