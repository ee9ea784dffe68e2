// Package ratelimit keeps wallgrab polite towards content servers. Every
// resolver page request and image fetch waits on the same Limiter, so the
// configured requests-per-minute budget covers the whole run.
package ratelimit
