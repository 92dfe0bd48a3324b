package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quinn/daybook/internal/output"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local store",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer st.Close()

		output.Success("store ready at %s", st.BaseDir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
