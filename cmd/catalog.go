package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
	"github.com/routrace/mapgen/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the effective highway catalog",
	Long: `Print the effective highway catalog (the built-in one, or the file given
with --catalog) as YAML on stdout, followed by validation warnings on stderr.

Warnings flag configuration that is valid but only deterministic because of
declaration order, such as overlapping group prefixes.`,
	Args: cobra.NoArgs,
	Run:  runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) {
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		exitWithError("failed to load catalog", err)
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cat); err != nil {
		exitWithError("failed to encode catalog", err)
	}
	if err := enc.Close(); err != nil {
		exitWithError("failed to encode catalog", err)
	}

	warnings := cat.Warnings()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(os.Stderr, "%d highways, %d group rules, %d warnings\n",
		len(cat.Highways()), len(cat.Groups()), len(warnings))
}
