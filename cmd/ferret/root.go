package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ferret.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ferret",
		Short: "Product page discovery crawler for e-commerce sites",
		Long: `Ferret crawls e-commerce sites and discovers product-detail pages.

Each target domain is crawled in its own isolated browser session. Pages
are classified as products by URL pattern or by on-page content signals,
and the discovered URLs are written out as JSON documents.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
