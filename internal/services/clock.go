package services

import "time"

// Clock abstracts wall-clock time so day-bucketed reports and ledger
// timestamps are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }
