package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/passforge/pkg/pipeline"
)

// passesCommand creates the passes command.
func (c *CLI) passesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List pass, observer and check kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(StyleTitle.Render("Pipeline building blocks"))
			fmt.Println(catalogTable(pipeline.Catalog()))
			printNextStep("Resolve a config", appName+" order --config pipeline.toml")
			return nil
		},
	}
}

func catalogTable(entries []pipeline.Entry) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Kind, e.Category, e.Description}
	}
	return renderTable([]string{"Kind", "Category", "Description"}, rows)
}
