package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voice-features-go/internal/dataset"
	"voice-features-go/internal/pipeline"
	"voice-features-go/internal/types"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		templateID string
		recordIDs  []string
		idsFile    string
		engineKey  string
		xlsxOut    string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run one extraction batch in process and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if idsFile != "" {
				ids, err := dataset.LoadRecordIDs(idsFile)
				if err != nil {
					return fmt.Errorf("read ids file: %w", err)
				}
				recordIDs = append(recordIDs, ids...)
			}
			if engineKey == "" {
				engineKey = os.Getenv("ENGINE_API_KEY")
			}

			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := ctx.logger()
			svc, err := pipeline.FromConfig(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			resp, err := svc.Run(cmd.Context(), types.BatchRequest{
				ParentRecordIDs: recordIDs,
				TemplateID:      templateID,
				EngineAPIKey:    engineKey,
			})
			if err != nil {
				return err
			}

			if xlsxOut != "" {
				if err := dataset.WriteReport(xlsxOut, resp); err != nil {
					return err
				}
				log.WithField("path", xlsxOut).Info("report written")
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Fprintln(out, renderBatch(resp))
			return nil
		},
	}

	cmd.Flags().StringVar(&templateID, "template", "", "Template id whose features are extracted")
	cmd.Flags().StringSliceVar(&recordIDs, "record", nil, "Parent record id (repeatable); all records when omitted")
	cmd.Flags().StringVar(&idsFile, "ids-file", "", "xlsx sheet listing parent record ids")
	cmd.Flags().StringVar(&engineKey, "engine-key", "", "Extraction engine API key (default $ENGINE_API_KEY)")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "Also write the report to this xlsx file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
