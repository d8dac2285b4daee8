// Package dedupe drops redelivered webhook events using a time-based cache
// keyed by the provider's message id.
package dedupe
