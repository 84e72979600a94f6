// Package provider manages LLM-backed agent handles for workflow executors.
// Handles are cached per (name, id, instructions, tools) so repeated builds of
// the same workflow reuse the same underlying agent rather than allocating a
// fresh one per request. All model traffic passes through a shared rate
// limiter, and provider rate limit rejections feed back into it.
package provider
