// Package forward posts admitted events to the chat processor.
package forward
