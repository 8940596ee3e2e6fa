// Package api is the HTTP client for the poetry backend. It wraps the
// four JSON endpoints (poem generation, image generation, card
// composition and poem persistence) behind typed methods and guards them
// with a circuit breaker so a dead backend fails fast.
package api
