// Package sigdispatch delivers POSIX signals to a container's recorded
// process. Delivery is idempotent on "no such process": signalling a
// container whose workload already exited is success, since the caller's
// intent is that the process not be running.
package sigdispatch
