package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"litreview/internal/models"
	"litreview/internal/review"
	"litreview/internal/util"

	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	var output, styleFile, name string

	cmd := &cobra.Command{
		Use:   "run <folder>",
		Short: "Analyze every PDF in a folder and write the review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := args[0]
			if !util.IsDir(folder) {
				return fmt.Errorf("%w: %s", util.ErrFolderNotFound, folder)
			}
			var style string
			if styleFile != "" {
				b, err := os.ReadFile(styleFile)
				if err != nil {
					return fmt.Errorf("read style sample: %w", err)
				}
				style = strings.TrimSpace(string(b))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			start := time.Now()
			run, runErr := sess.runner.Run(ctx, review.Request{FolderPath: folder, Name: name, StyleSample: style})
			if run.ID == 0 {
				return runErr
			}
			if err := util.WriteJSONAtomic(output, json.RawMessage(run.Result)); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", run.DisplayName(), run.Status)
			fmt.Fprintf(out, "Results written to %s\n", output)
			fmt.Fprintf(out, "Elapsed time: %s\n", time.Since(start).Round(time.Millisecond))
			if runErr != nil {
				return runErr
			}
			if run.Status != models.RunCompleted {
				return errors.New("review run did not complete")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "results/review_output.json", "where to write the run result")
	cmd.Flags().StringVar(&styleFile, "style", "", "text file with a writing sample to imitate")
	cmd.Flags().StringVar(&name, "name", "", "display name of the run")
	return cmd
}
