/*
Package checkpoint implements the coordinator's checkpoint metadata index:
an append-mostly log of checkpoint records keyed by a monotonic id, with a
latest-per-namespace lookup and storage-backed rehydration on restart.

Records progress InProgress -> Completed or InProgress -> Failed; Failed and
Completed are terminal. Retention pruning removes old records but never one
that is still latest for its namespace.
*/
package checkpoint
