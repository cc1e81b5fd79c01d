/*
Package controlplane implements the coordinator's read-mostly HTTP+JSON API:
fleet status, worker/dataset/checkpoint/barrier listings, metrics and health
passthrough, the operator task log, and recent-log tail. It is a thin view
layer — every route reads from the registries, ring, checkpoint index, and
barrier registry owned by internal/coordinator, except for Task records,
which this package owns outright since tasks are pure operator bookkeeping
with no effect on sharding, barriers, or checkpoint acceptance.

Response bodies use snake_case field names and render timestamps as
milliseconds since the UNIX epoch, independent of how internal types store
time.Time.
*/
package controlplane
