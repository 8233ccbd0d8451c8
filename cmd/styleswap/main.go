package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"styleswap/internal/logging"
	"styleswap/internal/server"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "styleswap",
		Short:         "StyleSwap accounts, Partner Program and payments backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := server.ConfigLoad(configPath)
			if err != nil {
				return err
			}
			return logging.InitLogger(config.Production)
		},
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "run the REST API and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logging.Logger.Sync()
			return server.ApiInit(server.GlobalConfig, logging.Logger)
		},
	}
	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "process commission accrual tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logging.Logger.Sync()
			return server.WorkerInit(server.GlobalConfig, logging.Logger)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.json", "path to the JSON config file")
	rootCmd.AddCommand(serveCmd, workerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
