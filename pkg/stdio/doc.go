// Package stdio wires a workload's standard output and error to
// caller-supplied named pipes. Pipes are opened non-blocking so an
// absent reader can never hang a launch, and every failure mode falls
// back to the inherited stream: a missing pipe degrades output capture,
// it never stops the workload. Stdin is always the null device.
package stdio
