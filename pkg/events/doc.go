/*
Package events is the persistent lifecycle event journal.

Every lifecycle transition (created, started, stopped, deleted, overlay
created/joined) is appended to a BoltDB database under the state root,
keyed by timestamp so listing returns chronological order. The journal
exists for operators: `hutch events [id]` replays what happened to a
container after the fact, which matters because the monitoring daemon is
detached and has no caller to report failures to.

Recording is best-effort by contract. A missing, locked, or corrupt
journal is logged and the event dropped; it never fails the lifecycle
operation that produced it.
*/
package events
