// Package model defines the normalized request/response contract between the
// agent capability layer and concrete LLM providers, plus a deterministic
// MockModel for tests. Provider adapters live in the openai and anthropic
// subpackages and translate these structures into vendor SDK calls.
package model
