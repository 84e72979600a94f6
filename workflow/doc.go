// Package workflow defines the declarative data model for dynamic workflows:
// executor and edge specifications, the full workflow description supplied by
// callers, the ordered execution step log emitted while a workflow is built
// and run, and a Mermaid renderer for visualizing a definition.
//
// Types in this package are passive data. Validation beyond cheap structural
// checks, executor instantiation and graph traversal live in package engine.
package workflow
