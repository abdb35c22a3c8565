// Package channel contains the delivery adapters: one per transport the
// engine can send through (SMS gateway, chat gateway, transactional email,
// in-app publish), plus a file-writing adapter for local development.
//
// Adapters are thin. They take a fully rendered message with a validated
// address, perform the provider call, and return either a Result carrying
// the provider's message identifier or a DeliveryError classified as
// transient or permanent. Everything else - retries, attempt accounting,
// state transitions - belongs to the dispatcher.
package channel
