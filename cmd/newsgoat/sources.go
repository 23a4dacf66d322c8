package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsGoat/internal/config"
	"github.com/IshaanNene/NewsGoat/internal/report"
)

// sourcesCmd lists the source catalog, or dumps it as YAML to seed a
// custom catalog file.
func sourcesCmd() *cobra.Command {
	var (
		sourcesFile string
		asYAML      bool
	)

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured news sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if sourcesFile != "" {
				cfg.SourcesFile = sourcesFile
			}
			sources, err := config.ResolveSources(cfg)
			if err != nil {
				return err
			}
			if err := config.ValidateSources(sources); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asYAML {
				data, err := config.MarshalCatalog(sources)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			rows := [][]string{{"ID", "Name", "Listing", "Hosts", "Body rules", "Enabled"}}
			for _, s := range sources {
				rules := make([]string, len(s.BodyRules))
				for i, r := range s.BodyRules {
					rules[i] = string(r.Kind)
				}
				listing := s.FeedURL
				if len(s.ListingURLs) > 0 {
					listing = s.ListingURLs[0]
				}
				rows = append(rows, []string{
					s.ID, s.Name, listing, strings.Join(s.Hosts(), ", "), strings.Join(rules, " > "), strconv.FormatBool(!s.Disabled),
				})
			}
			for _, line := range report.Table(rows) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourcesFile, "sources", "", "YAML source catalog (default: built-in catalog)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the catalog as YAML")
	return cmd
}
