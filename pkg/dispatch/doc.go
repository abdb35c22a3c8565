// Package dispatch wires the notification engine together: the preference
// gate, the template renderer, the notification store, the delivery queue
// and the channel adapters.
//
// The entry point is the Dispatcher. RequestNotification runs the intake
// pipeline (validate address, consult the gate, render content, persist,
// enqueue); the Dispatcher also implements queue.Processor, so delivery
// workers hand claimed queue entries straight back to it. Suppression by the
// preference gate is a normal outcome reported on the Receipt, not an error.
//
// Retry policy lives here: failed attempts back off linearly (attempt x 30s,
// capped at 10 minutes) until the notification's attempt budget is spent.
// Permanent provider errors spend the whole budget at once.
package dispatch
