package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreswitch/qswitch/internal/op"
	"github.com/coreswitch/qswitch/internal/switchcore"
)

func newAddCommand() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a queue (idempotent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSwitch()
			if err != nil {
				return err
			}
			defer cleanup()

			var ownerPtr *op.Origin
			if owner != "" {
				o := op.Origin(owner)
				ownerPtr = &o
			}
			return s.Add(context.Background(), ownerPtr, args[0])
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owning connection identity; empty for a persistent queue")
	return cmd
}

func newSendCommand() *cobra.Command {
	var origin, replyTo string
	cmd := &cobra.Command{
		Use:   "send NAME BODY",
		Short: "Send a message into a queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSwitch()
			if err != nil {
				return err
			}
			defer cleanup()

			if origin == "" {
				origin = string(switchcore.NewOrigin())
			}
			msg := op.Message{Body: []byte(args[1]), ReplyTo: replyTo, Kind: op.KindRequest}
			res, ok, err := s.Send(context.Background(), op.Origin(origin), args[0], msg, time.Now().UnixNano())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("queue %q does not exist", args[0])
			}
			fmt.Printf("%s %d\n", res.Name, res.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "producer identity; generated if empty")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "reply-to routing hint")
	return cmd
}

func newAckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ack NAME SEQUENCE",
		Short: "Acknowledge (remove) a message by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := openSwitch()
			if err != nil {
				return err
			}
			defer cleanup()

			seq, err := parseSequence(args[1])
			if err != nil {
				return fmt.Errorf("invalid sequence %q: %w", args[1], err)
			}
			return s.Ack(context.Background(), op.ID{Name: args[0], Sequence: seq})
		},
	}
}
