// Package subscription keeps track of who is interested in which signals.
//
// A subscription is a (path, subscriber) pair. The subscriber is either a
// local listener inside this process or a remote peer identified by its
// transport token.
//
// # Coverage
//
// Subscribing a branch covers every signal below it, including signals that
// only appear after a reload. Coverage is computed when a signal changes by
// walking the signal's ancestors from the root down, so the registry never
// expands branch subscriptions into leaf lists.
//
// # Lifecycle
//
// Remote subscriptions do not survive the peer. The event processor calls
// DropPeer when the transport reports a peer as gone, and Prune after a
// catalog reload removes local entries whose path no longer exists. Remote
// entries are kept across reloads.
package subscription
