//go:build linux

package actorctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qq587282/actorgo/reactor"
)

func init() {
	extraScenarioCommands = append(extraScenarioCommands, &cobra.Command{
		Use:   "timed-read",
		Short: "A socket read races a 50ms timer that closes it on expiry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			pool := reactor.New(reactor.WithWorkers(workers))
			defer pool.Shutdown()
			r, err := RunTimedRead(pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"timed-read: n=%d ok=%v timedOut=%v in %s (want timedOut=true)\n",
				r.N, r.OK, r.TimedOut, r.Elapsed)
			return nil
		},
	})
}
