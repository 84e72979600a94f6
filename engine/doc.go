// Package engine turns a declarative workflow description into a live,
// runnable graph and drives it to completion. The Builder validates the
// description and instantiates executors; the Runner walks the graph from the
// start executor, feeding each node's output to its downstream neighbors and
// appending a structured step to the execution log for everything it does.
//
// A single run is strictly sequential. Concurrency happens across runs: many
// graphs may execute at once, sharing only the agent handle cache and the
// process-wide rate limiter.
package engine
