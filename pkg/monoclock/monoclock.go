// Package monoclock reads the monotonic raw clock as integer nanoseconds.
// The epoch is arbitrary (boot on Linux, process start elsewhere); values
// order events within one run and are unaffected by wall-clock adjustments
// or NTP slew.
package monoclock
