package application

import "time"

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now() dalam UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Since is time.Since against c.
func Since(c Clock, t time.Time) time.Duration { return c.Now().Sub(t) }

// Expired reports whether deadline has passed according to c.
func Expired(c Clock, deadline time.Time) bool { return c.Now().After(deadline) }
