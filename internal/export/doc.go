// Package export writes generated poems and their images to local files.
// File names are derived from the sanitized poem title plus a millisecond
// timestamp so repeated saves never collide.
package export
