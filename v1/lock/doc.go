// Package lock provides lease stores used by the job gate: a conditional
// create with expiry and an unconditional delete. In-memory, Redis and NATS
// JetStream backends are available, plus a disabled store that always grants
// and a circuit breaker decorator for unhealthy stores.
package lock
