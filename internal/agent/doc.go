// Package agent generates assistant replies through a hosted LLM.
//
// The responder owns the request plumbing only: message assembly, the
// bounded function-calling dispatch loop, and the built-in tool set
// (lead registration, CRM client creation, current time). What the
// assistant says is governed by the configured system prompt.
package agent
