package actorctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qq587282/actorgo/reactor"
)

// extraScenarioCommands is populated by platform-specific files (e.g.
// register_timedread_linux.go) via init(), so the root command gains
// platform-only scenarios without this file needing a build tag.
var extraScenarioCommands []*cobra.Command

// NewRootCmd builds the actorctl root command, wiring one subcommand per
// spec.md §8 seed scenario.
func NewRootCmd() *cobra.Command {
	var workers int

	root := &cobra.Command{
		Use:   "actorctl",
		Short: "Run actorgo's seed scenarios against a live reactor pool",
		Long: "actorctl drives the strand scheduler, generator engine, channel " +
			"family, select coordinator, timer, and socket layer " +
			"through spec.md §8's end-to-end scenarios, printing the observed " +
			"result of each.",
	}
	root.PersistentFlags().IntVarP(&workers, "workers", "w", 0,
		"reactor pool worker count (0 = runtime.GOMAXPROCS-based default)")

	newPool := func() *reactor.Pool {
		if workers <= 0 {
			return reactor.New()
		}
		return reactor.New(reactor.WithWorkers(workers))
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "ping-pong",
			Short: "Two generators round-trip a value over two channels",
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool := newPool()
				defer pool.Shutdown()
				r, err := RunPingPong(pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ping-pong: v1=%d (want 2) in %s\n", r.V1, r.Elapsed)
				return nil
			},
		},
		&cobra.Command{
			Use:   "fan-in",
			Short: "100 producers push onto a capacity-10 channel; one consumer drains it",
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool := newPool()
				defer pool.Shutdown()
				r, err := RunFanIn(pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "fan-in: %s\n", FormatFanIn(r))
				return nil
			},
		},
		&cobra.Command{
			Use:   "select-timeout",
			Short: "Select over two empty channels and a 50ms timer case",
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool := newPool()
				defer pool.Shutdown()
				r, err := RunSelectTimeout(pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "select-timeout: case %d won after %s (want the timer case)\n",
					r.WinningCase, r.Elapsed)
				return nil
			},
		},
		&cobra.Command{
			Use:   "cancel-lock-stop",
			Short: "Stop a generator mid-sleep inside a lock_stop bracket",
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool := newPool()
				defer pool.Shutdown()
				r, err := RunCancelDuringLockStop(pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"cancel-lock-stop: terminated at %s, ran past unlock_stop = %v (want false)\n",
					r.Elapsed, r.RanPastUnlock)
				return nil
			},
		},
		&cobra.Command{
			Use:   "close-wakes-pop",
			Short: "Close a channel while a pop is suspended on it",
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool := newPool()
				defer pool.Shutdown()
				r, err := RunCloseWakesPop(pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "close-wakes-pop: state=%s in %s (want closed)\n", r.State, r.Elapsed)
				return nil
			},
		},
	)
	root.AddCommand(extraScenarioCommands...)

	return root
}
