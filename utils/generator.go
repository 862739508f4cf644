package utils

import "time"

// NewSubmissionID derives an id from the wall clock in milliseconds and bumps
// it until taken reports it unused.
func NewSubmissionID(now time.Time, taken func(int64) bool) int64 {
	id := now.UnixMilli()
	for taken(id) {
		id++
	}
	return id
}

// NextTestID returns one more than the largest id in use.
func NextTestID(ids []int) int {
	max := 0
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max + 1
}
