package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/moby/sys/reexec"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/hutch/pkg/config"
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/launcher"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/sigdispatch"
	"github.com/cuemby/hutch/pkg/state"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Re-exec entrypoints (monitoring daemon, overlay anchor) dispatch
	// here before any CLI machinery runs
	if reexec.Init() {
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hutch",
	Short: "Hutch - Minimal OCI-compatible container runtime",
	Long: `Hutch is a minimal OCI-compatible container runtime for a single node.
It creates, starts, queries, signals and deletes lightweight workloads,
and coordinates a shared copy-on-write filesystem view across all
workloads on the node.

Hutch is designed to be driven by a higher-level shim; each invocation
performs exactly one lifecycle operation.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Hutch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(eventsCmd)
}

// setup builds the runtime configuration and state store shared by
// every operation
func setup() (*config.Config, *state.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log.Init(log.Config{Level: cfg.LogLevel, Output: os.Stderr})

	store, err := state.NewStore(cfg.StateRoot)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// render prints v as JSON or YAML per the --output flag
func render(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "", "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		return fmt.Errorf("unknown output format %q (expected json or yaml)", format)
	}
	return nil
}

var createCmd = &cobra.Command{
	Use:   "create ID",
	Short: "Create a container from an OCI bundle",
	Long: `Create records the initial state for a new container. The bundle is
not read at this point; a missing or invalid bundle surfaces when the
container is started.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}

		bundleDir, _ := cmd.Flags().GetString("bundle")
		stdin, _ := cmd.Flags().GetString("stdin")
		stdout, _ := cmd.Flags().GetString("stdout")
		stderr, _ := cmd.Flags().GetString("stderr")
		tenant, _ := cmd.Flags().GetString("tenant")

		st, err := launcher.Create(store, args[0], bundleDir, launcher.CreateOpts{
			Stdin:  stdin,
			Stdout: stdout,
			Stderr: stderr,
			Tenant: tenant,
		})
		if err != nil {
			return err
		}
		return render(cmd, st)
	},
}

var startCmd = &cobra.Command{
	Use:   "start ID",
	Short: "Start a created container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := setup()
		if err != nil {
			return err
		}

		pid, err := launcher.Start(cfg, store, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("started pid=%d\n", pid)
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state ID",
	Short: "Print the current state of a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}

		st, err := store.Load(args[0])
		if err != nil {
			return err
		}
		return render(cmd, st)
	},
}

var killCmd = &cobra.Command{
	Use:   "kill ID [SIGNAL]",
	Short: "Deliver a signal to a container's process",
	Long: `Kill delivers a POSIX signal (by name or number, default TERM) to the
container's recorded process. Signalling a process that already exited
is success.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}

		raw := ""
		if len(args) == 2 {
			raw = args[1]
		}
		sig, err := sigdispatch.Parse(raw)
		if err != nil {
			return err
		}
		return sigdispatch.Kill(store, args[0], sig)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a container's persisted state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := setup()
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		return launcher.Delete(store, args[0], force)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events [ID]",
	Short: "List recorded lifecycle events",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}

		j, err := events.Open(cfg.StateRoot)
		if err != nil {
			return err
		}
		defer j.Close()

		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		evts, err := j.List(id)
		if err != nil {
			return err
		}
		return render(cmd, evts)
	},
}

func init() {
	createCmd.Flags().String("bundle", "", "Path to the OCI bundle directory (required)")
	createCmd.Flags().String("stdin", "", "Named pipe path for standard input (recorded, unused)")
	createCmd.Flags().String("stdout", "", "Named pipe path for standard output")
	createCmd.Flags().String("stderr", "", "Named pipe path for standard error")
	createCmd.Flags().String("tenant", "", "Tenant scope for per-tenant overlay isolation")
	createCmd.Flags().String("output", "json", "Output format: json or yaml")
	createCmd.MarkFlagRequired("bundle")

	stateCmd.Flags().String("output", "json", "Output format: json or yaml")

	deleteCmd.Flags().Bool("force", false, "Terminate the recorded process before deleting")

	eventsCmd.Flags().String("output", "json", "Output format: json or yaml")
}
