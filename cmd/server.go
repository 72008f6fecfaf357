package cmd

import (
	"spookify/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Spookify HTTP server",
	Long:  `Start the Spookify API server, serving the catalog, playlist and auth endpoints plus media files.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
