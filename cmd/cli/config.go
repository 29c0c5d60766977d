package cli

import (
	"path/filepath"

	"github.com/canopy-network/dpos/fsm"
	"github.com/canopy-network/dpos/lib"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the configuration in use",
	Run: func(cmd *cobra.Command, args []string) {
		writeToConsole(config, nil)
	},
}

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "print the genesis in use",
	Run: func(cmd *cobra.Command, args []string) {
		writeToConsole(fsm.ReadGenesisFromFile(config.DataDirPath, config.AuthorityAccount))
	},
}

var resetConfigCmd = &cobra.Command{
	Use:   "reset",
	Short: "overwrite the configuration file with the defaults",
	Run: func(cmd *cobra.Command, args []string) {
		c := lib.DefaultConfig()
		c.DataDirPath = config.DataDirPath
		if err := c.WriteToFile(filepath.Join(config.DataDirPath, lib.ConfigFilePath)); err != nil {
			l.Fatal(err.Error())
		}
		writeToConsole(c, nil)
	},
}

func init() {
	configCmd.AddCommand(genesisCmd)
	configCmd.AddCommand(resetConfigCmd)
}
