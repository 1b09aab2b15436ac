package models

import "time"

// Point is a single timestamped record destined for the series store.
// Points are write-once: built from a validated reading, handed to the
// repository, never read back or mutated.
type Point struct {
	Measurement string
	Time        time.Time // always UTC
	Tags        map[string]string
	Fields      map[string]any
}
