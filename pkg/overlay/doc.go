/*
Package overlay manages the shared mount-namespace and overlay
filesystem that gives every workload on the node one writable view of
the host filesystem without letting writes escape to the host.

	┌───────────────── OVERLAY NAMESPACE ─────────────────┐
	│                                                      │
	│   merged root (pivoted)                              │
	│   ├── overlay: lowerdir=/ (host, read-only)          │
	│   │            upperdir/workdir (captures writes)    │
	│   ├── /proc /sys /dev       rbind from host          │
	│   ├── <state root>          rbind from host          │
	│   └── /tmp                  NOT bound: upper layer   │
	│                                                      │
	│   anchor process: sleeps forever, holds ns open      │
	└──────────────────────────────────────────────────────┘

# Protocol

Join serializes on an exclusive flock. The first holder creates the
namespace; everyone after joins it:

 1. Take the blocking file lock for the scope.
 2. Snapshot host resolver files (resolv.conf, hosts, nsswitch.conf).
 3. If the namespace reference file opens, join it via setns.
 4. Otherwise re-exec the anchor helper into a fresh mount namespace.
    The helper makes all mounts recursively private, mounts the overlay,
    binds the kernel filesystems and state root, seeds resolver copies,
    pivots into the merged root and signals readiness over a pipe.
 5. Bind-mount /proc/<anchor>/ns/mnt onto the reference path so later
    joiners discover the namespace without knowing the anchor's pid.
 6. Join, then repair any resolver file that an overlay quirk left empty.

The anchor is deliberately never killed: it is a lease with no expiry,
and the namespace persists for the life of the node.

# Isolation scopes

Under node isolation every container shares one namespace. Under tenant
isolation the lock, reference file and overlay layer directories are all
suffixed per tenant, and a start without a tenant scope is refused.

# Failure policy

Fail-closed. Overlay participation, once enabled, is mandatory: if the
namespace cannot be created or joined the workload must not run, because
running it against the host root would let writes escape the overlay.
*/
package overlay
