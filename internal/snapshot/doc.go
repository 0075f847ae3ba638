// Package snapshot assembles read-only, point-in-time views of a live
// job-scheduling engine for presentation to an operator.
//
// # Overview
//
// The Provider composes the engine's query surface (engine.Engine) into a
// three-level hierarchy: scheduler -> job groups -> jobs -> triggers. Each
// public call builds a fresh, immutable object graph; nothing is cached or
// shared between calls, so concurrent calls are independent.
//
// # Consistency
//
// The engine keeps running while we read. Different parts of one snapshot
// may therefore reflect slightly different instants; in particular
// JobsTotal comes from the all-job-keys query of the same build and can
// momentarily disagree with the sum of per-group job counts. This is
// documented behavior, not reconciled.
//
// # Failure policy
//
// "Engine shut down" and "entity not found" are absent results, never
// errors. The one anticipated partial failure - the engine being unable to
// materialize a job's full definition, common for remote deployments - is
// isolated inside JobDetail and replaced with a sentinel entry. Any other
// engine failure aborts the calling operation: a structurally incomplete
// hierarchy is judged worse than a visible failed refresh.
package snapshot
