/*
Package barrier implements the coordinator's Barrier Registry: named group
rendezvous points with generation counters, cancellation, and failure-driven
abort.

Each barrier owns its own mutex and its waiters' wake-up channels: the registry-level map only
needs brief locks for create/lookup, and release wakes every waiter without
holding any lock outside the barrier itself, per the concurrency model's
requirement that barrier release take no global lock.
*/
package barrier
