// Package interval holds the year-bound model shared by the propagation
// engine, the issue rules and the store.
//
// A Person carries an inclusive (earliest, latest) birth-year interval that
// later rounds may only narrow. Every narrowing is recorded in the person's
// provenance trace together with the round that made it, which is what the
// store uses to decide which rows to write back.
package interval
