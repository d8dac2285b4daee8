// Package greenapi is a thin client for the Green API WhatsApp gateway:
// sends, typing indicators, media download and instance health. Every
// endpoint follows the {api_url}/waInstance{id}/{method}/{token} shape.
package greenapi
