package ledger

import "time"

// Clock supplies the current date for default parameters. Injectable so
// materialization and transfers are testable against fixed dates.
type Clock interface {
	Today() Date
}

type systemClock struct{}

func (systemClock) Today() Date { return DateOf(time.Now().UTC()) }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock always reports the same date. For tests.
type FixedClock struct {
	Date Date
}

func (c FixedClock) Today() Date { return c.Date }
