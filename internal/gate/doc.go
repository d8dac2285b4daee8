// Package gate decides, for every WhatsApp webhook event, whether the bot
// should respond, stay silent, or treat the event as something else entirely.
//
// Classification is a pure function over one normalized event, the chat's
// pause record, and injected business configuration. The Service wraps it
// with the side effects: pause-record upserts, an audit entry per decision,
// redelivery dedupe, and the forward to the chat processor.
//
// A chat is paused when a human operator sends a manually-typed message into
// it (hand-off). While paused the bot still processes messages in background
// mode but suppresses visible replies, until an explicit resume command or
// the pause duration expires.
package gate
