package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newTransferCommand() *cobra.Command {
	var from int64
	cmd := &cobra.Command{
		Use:   "transfer NAME...",
		Short: "List entries past a cursor across one or more queues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSwitch()
			if err != nil {
				return err
			}
			defer cleanup()

			for _, e := range s.Transfer(from, args) {
				fmt.Printf("%s %d %q\n", e.ID.Name, e.ID.Sequence, e.Message.Body)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&from, "from", -1, "cursor: only entries with id strictly greater than this")
	return cmd
}

func newWaitCommand() *cobra.Command {
	var from int64
	var timeoutSeconds float64
	cmd := &cobra.Command{
		Use:   "wait NAME...",
		Short: "Block until one of the named queues progresses, or is created, or times out",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSwitch()
			if err != nil {
				return err
			}
			defer cleanup()

			timeout := time.Duration(timeoutSeconds * float64(time.Second))
			woke := s.Wait(context.Background(), from, timeout, args)
			if woke {
				fmt.Println("woke")
			} else {
				fmt.Println("timeout")
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&from, "from", -1, "cursor, compared against each queue's next id minus one")
	cmd.Flags().Float64Var(&timeoutSeconds, "timeout", 5, "timeout in seconds")
	return cmd
}

func newLengthsCommand() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "lengths",
		Short: "Print every queue name with its current length",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSwitch()
			if err != nil {
				return err
			}
			defer cleanup()

			lengths := s.Lengths()
			for name, n := range lengths {
				if prefix != "" && !strings.HasPrefix(name, prefix) {
					continue
				}
				fmt.Printf("%s\t%d\n", name, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only print queues whose name has this prefix")
	return cmd
}

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Open the journal, replay it, report the resulting queue list, and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSwitch()
			if err != nil {
				return err
			}
			defer cleanup()

			names := s.List("")
			fmt.Printf("replayed journal: %d queue(s)\n", len(names))
			for _, name := range names {
				n, _ := s.Measure(name)
				fmt.Printf("  %s (%d)\n", name, n)
			}
			return nil
		},
	}
}

func parseSequence(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
