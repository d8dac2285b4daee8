// Package automation delivers captured leads to the external automation
// flow's webhook.
package automation
