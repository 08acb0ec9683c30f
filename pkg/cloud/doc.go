// Package cloud submits simulations to a remote compute service and
// retrieves their results over JSON REST.
//
// The contract is the gplugins job API: POST a simulation spec, poll the
// task state, fetch the S-parameter matrix once the task completes.
// Transient failures (network errors, 5xx responses, throttling) retry
// with exponential backoff and jitter; client errors fail fast.
package cloud
