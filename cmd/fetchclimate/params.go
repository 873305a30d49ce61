package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

type parameterRow struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	NativeUnit  string `json:"native_unit"`
	ClientUnit  string `json:"client_unit"`
	Coverage    string `json:"coverage"`
}

func newParamsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "List the climate parameters the service knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := domain.Parameters()
			rows := make([]parameterRow, len(params))
			for i, p := range params {
				rows[i] = parameterRow{
					ID:          p.ID,
					Description: p.Description,
					NativeUnit:  p.NativeUnit,
					ClientUnit:  p.ClientUnit,
					Coverage:    string(p.Coverage),
				}
			}

			out := cmd.OutOrStdout()
			if root.output == outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUNIT\tCOVERAGE\tDESCRIPTION")
			for _, r := range rows {
				unit := r.ClientUnit
				if r.NativeUnit != r.ClientUnit {
					unit = r.NativeUnit + " -> " + r.ClientUnit
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, unit, r.Coverage, r.Description)
			}
			return tw.Flush()
		},
	}
}
