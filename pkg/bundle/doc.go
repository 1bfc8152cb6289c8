// Package bundle reads the process section of an OCI bundle's
// config.json: the argument vector, environment, working directory and
// user identity for the workload. Only the process section is consumed;
// the rest of the spec (mounts, hooks, platform sections) is outside
// this runtime's scope.
package bundle
