package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewDescribeStyleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe-style <file>",
		Short: "Describe the writing style of a text sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read sample: %w", err)
			}
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer sess.Close()
			desc, err := sess.runner.Sequencer.DescribeStyle(cmd.Context(), string(b))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}
