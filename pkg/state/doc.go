/*
Package state is the flat-file container state store.

Layout under the state root:

	<root>/
	  <container-id>/
	    state.json    full ContainerState record
	    pid           numeric workload process id

Every write goes through a write-to-temp-then-rename so that a reader can
never observe a half-written file. The store deliberately has no locking:
the daemon spawned by start is the only writer after creation, and
racing operations on one id are last-write-wins.

Load reports a missing or unparsable record as types.ErrNotFound so
callers can distinguish "no such container" from I/O failures, and Delete
is idempotent (removing an absent id succeeds).
*/
package state
