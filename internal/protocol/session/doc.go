// Package session owns half-duplex transactions with the controller.
//
// Ownership boundary:
// - one transport per transaction, closed on every path
// - incremental escape-aware frame reader
// - paginated "get first / get next" lists
// - caller-side retry policy for read transactions
package session
