// Package speech wraps the ElevenLabs endpoints for voice conversations:
// speech-to-text for incoming voice notes and text-to-speech for spoken
// replies. Callers check Enabled and degrade to text when not configured.
package speech
