// Package wire defines the CBOR encoding of signal distribution messages.
//
// Messages use CBOR (RFC 8949) with integer keys and deterministic encoding.
// Every transport frame carries exactly one Message.
//
// # Message Kinds
//
//   - Update: a signal value, addressed to a subscriber
//   - Subscribe / Unsubscribe: interest in a set of paths
//   - Hello: first message of a context, carrying its interests
//
// # Updates
//
// An update identifies its signal by id when the sender's catalog assigns
// one, and always by path. The receiver resolves by id first. The value is
// encoded as a plain CBOR scalar and converted back using the type tag.
package wire
