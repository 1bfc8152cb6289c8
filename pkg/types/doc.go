/*
Package types defines the shared data model and error taxonomy for Hutch.

The central type is ContainerState, the flat-file record that every
operation reads or writes. A container moves through a strictly monotonic
lifecycle:

	┌─────────┐  start   ┌─────────┐  exit    ┌─────────┐
	│ created │ ───────> │ running │ ───────> │ stopped │
	└─────────┘          └─────────┘          └─────────┘
	     │                                         ▲
	     └──────────── spawn failure ──────────────┘

Transitions never move backward and the terminal state is always stopped.
Status.CanTransition encodes this ordering so writers can assert it before
persisting.

# Error Taxonomy

Operational failures are classified by Kind so that callers can branch on
the failure class without string matching:

  - KindConfig: bundle config missing, unparsable, or empty args
  - KindSpawn: workload executable could not be launched
  - KindState: container record or pid file missing or corrupt
  - KindSignal: invalid signal or delivery failure
  - KindNamespace: unshare/mount/pivot/join failure
  - KindLock: coordination lock could not be acquired

All Error values wrap their cause, so errors.Is and errors.As keep working
across package boundaries. ErrNotFound is the one shared sentinel: it is
wrapped by the state store whenever a record is absent, and delete treats
it as success.

# Usage

	st := &types.ContainerState{
		ID:     "web-1",
		Bundle: "/run/bundles/web-1",
		Status: types.StatusCreated,
	}

	if !st.Status.CanTransition(types.StatusRunning) {
		return types.Errorf(types.KindState, "start", "container %s already started", st.ID)
	}
*/
package types
