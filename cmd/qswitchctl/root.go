// Command qswitchctl is operational tooling for a qswitch journal: it
// exercises the switchcore library end to end (add, send, ack,
// transfer, wait, lengths, replay, serve) against a journal file on
// disk. It is not the HTTP/RPC transport spec.md excludes — there is
// no network listener here beyond the optional Prometheus /metrics
// endpoint serve opens.
package main

import (
	"fmt"
	"os"

	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coreswitch/qswitch/internal/redolog"
	"github.com/coreswitch/qswitch/internal/switchcore"
)

var (
	journalPath string
	blockSize   int
	blockCount  int
	verboseLogs bool
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "qswitchctl",
		Short:         "Inspect and drive a qswitch journal directly",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&journalPath, "journal", "qswitch.journal", "path to the journal file")
	root.PersistentFlags().IntVar(&blockSize, "block-size", 4096, "journal block size in bytes")
	root.PersistentFlags().IntVar(&blockCount, "block-count", 4096, "number of blocks in the journal ring")
	root.PersistentFlags().BoolVar(&verboseLogs, "verbose", false, "enable debug-level logging")

	root.AddCommand(newAddCommand())
	root.AddCommand(newSendCommand())
	root.AddCommand(newAckCommand())
	root.AddCommand(newTransferCommand())
	root.AddCommand(newWaitCommand())
	root.AddCommand(newLengthsCommand())
	root.AddCommand(newReplayCommand())
	root.AddCommand(newServeCommand())

	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openSwitch() (*switchcore.Switch, func(), error) {
	zcfg := zap.NewProductionConfig()
	if verboseLogs {
		zcfg.Level.SetLevel(zap.DebugLevel)
	}
	zl, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	logger := zapr.NewLogger(zl)

	s, err := switchcore.Open(switchcore.Options{
		Journal: redolog.Options{Path: journalPath, BlockSize: blockSize, BlockCount: blockCount},
		Logger:  logger,
	})
	if err != nil {
		_ = zl.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		_ = s.Close()
		_ = zl.Sync()
	}
	return s, cleanup, nil
}
