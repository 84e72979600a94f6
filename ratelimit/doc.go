// Package ratelimit spaces out calls to LLM provider APIs so that bursts of
// workflow executors do not trip provider side rate limits. A single Limiter
// is shared process-wide: every model call acquires a slot before sending the
// request, and reported rate limit errors temporarily stretch the spacing.
package ratelimit
