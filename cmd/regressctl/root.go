package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"regression-lab/internal/client"
	"regression-lab/internal/common"
	"regression-lab/internal/dataset"
	"regression-lab/internal/ml"

	"github.com/spf13/cobra"
)

type options struct {
	server  string
	timeout time.Duration
	asJSON  bool
}

func (o *options) client() *client.Client {
	return client.New(o.server, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "regressctl",
		Short:         "Edit a training set, train and predict against regressd",
		Long:          "regressctl drives a regressd server: edit the (x, y) training pairs, fit a line to them and ask the model for predictions.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultServer := os.Getenv(common.EnvServerURL)
	if defaultServer == "" {
		defaultServer = common.DefaultServerURL
	}
	rootCmd.PersistentFlags().StringVarP(&opts.server, "server", "s", defaultServer, "regressd base URL (env "+common.EnvServerURL+")")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print raw JSON responses")

	rootCmd.AddCommand(newPairsCmd(opts))
	rootCmd.AddCommand(newTrainCmd(opts))
	rootCmd.AddCommand(newCancelCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newPredictCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "regressctl version %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPairs(w io.Writer, pairs dataset.Set) {
	fmt.Fprintf(w, "%-5s %8s %8s\n", "#", "x", "y")
	for i, p := range pairs {
		fmt.Fprintf(w, "%-5d %8d %8d\n", i, p.X, p.Y)
	}
}

func printState(w io.Writer, st ml.State) {
	fmt.Fprintf(w, "status:     %s\n", st.Status)
	fmt.Fprintf(w, "message:    %s\n", st.StatusMessage)
	if st.RunID != "" {
		fmt.Fprintf(w, "run:        %s\n", st.RunID)
	}
	fmt.Fprintf(w, "value:      %d\n", st.ValueToPredict)
	if st.LastPrediction != nil {
		fmt.Fprintf(w, "prediction: %.4f\n", *st.LastPrediction)
	}
	if st.Result != nil {
		fmt.Fprintf(w, "model:      y = %.4fx %+.4f (loss %.6f, r2 %.4f)\n",
			st.Result.Weight, st.Result.Bias, st.Result.FinalLoss, st.Result.RSquared)
	}
	if st.Error != "" {
		fmt.Fprintf(w, "error:      %s\n", st.Error)
	}
}
