// Package preferences holds per-recipient notification settings and the Gate
// that decides whether a recipient may receive a message on a given channel,
// of a given type, at a given time.
//
// The Gate is consulted before a notification record is created, for every
// channel. A denial is a deliberate suppression, not an error: the caller is
// told that no message will be produced and nothing is persisted.
package preferences
