// Package protocol owns the wire contract of the controller maintenance port.
//
// Ownership boundary:
// - error taxonomy shared by every protocol layer
// - codec: byte stuffing, checksum, short conversions
// - frame: start marker, length, command, payload, checksum
// - session: half-duplex transactions and paginated lists
// - schema: declarative payload layouts
package protocol
