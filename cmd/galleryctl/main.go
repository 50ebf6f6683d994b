package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/trinnux/gallery/cmd/galleryctl/cmd"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "galleryctl",
		Short:         "Operator tools for the gallery catalog",
		SilenceUsage: true,
	}

	opts := cmd.BindDBFlags(rootCmd)
	rootCmd.AddCommand(cmd.MigrateCmd(opts))
	rootCmd.AddCommand(cmd.ListCmd(opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
