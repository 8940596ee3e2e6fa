// Package processor contains the core generation logic. A Session runs
// the three backend steps (poem, image, card) strictly in sequence, keeps
// the last successful result and refuses to start a second run while one
// is in flight. Processor wraps a Session for command-line and batch use.
package processor
