// Package store provides SQLite persistence for handoff-gateway.
//
// Three tables: sessions (per-chat pause records, upsert key chat_id),
// audit_log (one entry per gate classification), and messages (log of
// messages sent through the WhatsApp API).
//
// The sessions table is the only shared mutable state in the system.
// Concurrent webhook deliveries for the same chat are not serialized;
// the upsert's last-write-wins behavior is the accepted concurrency model.
package store
