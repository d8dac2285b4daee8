// Package event parses Green API webhook payloads into normalized inbound
// events. It is the trust boundary between the vendor JSON shape and the
// gate's typed logic: every optional field gets an explicit fallback here.
package event
