package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"regression-lab/internal/dataset"
	"regression-lab/internal/ml"

	"github.com/spf13/cobra"
)

func newPairsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairs",
		Short: "Inspect and edit the training set",
	}

	show := func(cmd *cobra.Command, pairs dataset.Set) error {
		if opts.asJSON {
			return printJSON(cmd.OutOrStdout(), pairs)
		}
		printPairs(cmd.OutOrStdout(), pairs)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the current training pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := opts.client().Pairs(cmd.Context())
			if err != nil {
				return err
			}
			return show(cmd, pairs)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add",
		Short: "Append a (1, 1) pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := opts.client().AddPair(cmd.Context())
			if err != nil {
				return err
			}
			return show(cmd, pairs)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <index> <x|y> <value>",
		Short:   "Replace one coordinate of one pair",
		Example: "  regressctl pairs set 0 y 5",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			field, err := dataset.ParseField(args[1])
			if err != nil {
				return err
			}
			pairs, err := opts.client().SetPair(cmd.Context(), index, field, args[2])
			if err != nil {
				return err
			}
			return show(cmd, pairs)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the seed training set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := opts.client().ResetPairs(cmd.Context())
			if err != nil {
				return err
			}
			return show(cmd, pairs)
		},
	})

	return cmd
}

func newTrainCmd(opts *options) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a new model to the current training set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Train(cmd.Context(), wait)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printState(cmd.OutOrStdout(), resp.State)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "block until training finishes")
	return cmd
}

func newCancelCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the in-flight training run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().Cancel(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if resp.Cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "cancellation requested")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no training in progress")
			}
			return nil
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.client().Session(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newPredictCmd(opts *options) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict y for the value to predict",
		Example: `  regressctl predict
  regressctl predict --value 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			if cmd.Flags().Changed("value") {
				if _, err := c.SetValue(cmd.Context(), value); err != nil {
					return err
				}
			}
			resp, err := c.Predict(cmd.Context())
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "f(%d) = %.4f\n", resp.Input, resp.Prediction)
			return nil
		},
	}

	cmd.Flags().StringVarP(&value, "value", "v", "", "set the value to predict first")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream session transitions until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events := make(chan ml.Transition, 16)
			errCh := make(chan error, 1)
			go func() {
				errCh <- opts.client().Watch(ctx, events)
			}()

			out := cmd.OutOrStdout()
			for {
				select {
				case ev := <-events:
					if opts.asJSON {
						if err := printJSON(out, ev); err != nil {
							return err
						}
						continue
					}
					line := fmt.Sprintf("%s %s -> %s: %s", ev.At.Format("15:04:05"), ev.From, ev.To, ev.Message)
					if ev.Prediction != nil && ev.Input != nil {
						line += fmt.Sprintf(" (f(%d) = %.4f)", *ev.Input, *ev.Prediction)
					}
					fmt.Fprintln(out, line)
				case err := <-errCh:
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
			}
		},
	}
}
