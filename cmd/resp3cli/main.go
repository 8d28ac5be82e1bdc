// Command resp3cli is an example client binary demonstrating Connection.Run, Exec and ReadPush
// against a live RESP3 server. It carries no protocol logic of its own.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nussjustin/resp3client/adapter"
	"github.com/nussjustin/resp3client/client"
	"github.com/nussjustin/resp3client/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	channel string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&channel, "channel", "c", "", "channel to SUBSCRIBE to after PING, if set")
}

var rootCmd = &cobra.Command{
	Use:   "resp3cli",
	Short: "Issue a PING, and optionally SUBSCRIBE, against a RESP3 server",
	Long: `Issue a PING, and optionally SUBSCRIBE, against a RESP3 server

Usage
	resp3cli --channel news

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logConfig := zap.NewDevelopmentConfig()
		log, err := logConfig.Build()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		cfg, err := config.FromEnv(ctx)
		if err != nil {
			return err
		}

		conn := client.New(cfg.ClientConfig(log))

		runErrCh := make(chan error, 1)
		go func() { runErrCh <- conn.Run(ctx, cfg.Host) }()

		ping := client.NewRequest()
		if err := ping.PushCommand(0, 1, []byte("PING")); err != nil {
			return err
		}

		var pong string
		if _, err := conn.Exec(ctx, ping, &pong); err != nil {
			return err
		}
		fmt.Println("PING ->", pong)

		if channel != "" {
			sub := client.NewRequest()
			if err := sub.PushCommand(1, 0, []byte("SUBSCRIBE"), []byte(channel)); err != nil {
				return err
			}
			if _, err := conn.Exec(ctx, sub, adapter.Ignore()); err != nil {
				return err
			}

			msg, err := conn.ReadPush(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("push on %q: %+v\n", channel, msg.Nodes)
		}

		if err := conn.Close(); err != nil {
			return err
		}
		return <-runErrCh
	},
}
