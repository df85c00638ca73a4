// Package cmd contains the facemark CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facemark",
	Short: "Face identification and attendance tracking",
	Long: `Facemark recognizes enrolled students in photos and camera frames
and keeps an attendance ledger. Detection and encoding run in a separate
detector service; this binary trains the classifier, identifies faces and
resolves attendance records.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
