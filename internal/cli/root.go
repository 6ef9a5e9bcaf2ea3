package cli

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	return NewRoot().Execute()
}

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "clawcraft",
		Short:         "Generate Xray test artifacts from tracker issues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(GenerateCmd(newOrchestratorRunner))
	return root
}
