// Package chat turns one admitted message into one delivered reply.
//
// The pipeline: typing indicator, voice download and transcription (with
// placeholder fallback), reply generation, then a voice or text send.
// Background requests run the same pipeline but suppress the send.
package chat
