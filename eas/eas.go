// Package eas is a typed client for the Evolve App Server GraphQL API:
// hosting capacity work packages, calibration runs, OpenDSS model exports,
// ingestor runs, feeder load analysis reports and study uploads.
//
// A Client is created from a ClientConfig and is safe for concurrent use.
// Every operation takes a context and sends a single GraphQL request; most
// return the raw *graphql.Response so callers can decode as much or as
// little of the payload as they need.
package eas

// Bool returns a pointer to v. Convenience for populating optional
// configuration fields.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
