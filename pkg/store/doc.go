// Package store persists simulation results by content-addressed key.
//
// A Keyer hashes the component name and resolved settings into a stable
// "sim:<sha256>" key, so reruns with identical inputs find prior results.
// Backends share one interface:
//   - Memory: in-process map, for tests and single runs
//   - File: directory tree of JSON envelopes, for CLI usage
//   - Distributed: Redis existence index over an authoritative MongoDB
//     document store, for simulation farms
//   - Null: always misses, for disabling the cache
//
// Misses are NOT_FOUND errors; check with errors.IsNotFound.
package store
