// Package gateway assembles the whole process: the sqlite store, the
// admission gate, the chat processor, the pause sweeper and the HTTP
// surface they share. Everything else in internal/ is a part; this is
// the machine.
package gateway
