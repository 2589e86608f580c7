package main

import (
	"os"

	"github.com/spf13/cobra"

	"voice-features-go/internal/config"
	"voice-features-go/internal/logger"
)

type commandContext struct {
	configFlag *string
	log        *logger.Logger
}

// loadConfig honours --config by exporting it as CONFIG_FILE before loading.
func (c *commandContext) loadConfig() (config.Config, error) {
	if c.configFlag != nil && *c.configFlag != "" {
		if err := os.Setenv("CONFIG_FILE", *c.configFlag); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load()
}

func (c *commandContext) logger() *logger.Logger {
	if c.log == nil {
		c.log = logger.New()
	}
	return c.log
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	serve := newServeCommand(ctx)
	rootCmd := &cobra.Command{
		Use:           "voice-features",
		Short:         "Extract structured features from field audio recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "YAML configuration file")

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	return rootCmd
}
