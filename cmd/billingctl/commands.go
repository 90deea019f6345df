package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Developmizer/Rental-Gates-sub002/internal/constants"
	"github.com/Developmizer/Rental-Gates-sub002/internal/dtos"
	"github.com/Developmizer/Rental-Gates-sub002/internal/routes"
	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

func runDailyCmd(opts *clientOptions) *cobra.Command {
	var orgID, asOf string
	cmd := &cobra.Command{
		Use:   "run-daily",
		Short: "Run the daily automations for one organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("--org must be a UUID: %w", err)
			}
			req := dtos.RunAutomationsRequest{}
			if asOf != "" {
				t, err := time.Parse(dtos.DateLayout, asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
				req.AsOf = &t
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			return client.postAndPrint(cmd, orgPath(routes.TriggerRunAutomations, org), req)
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization ID")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func generateRentCmd(opts *clientOptions) *cobra.Command {
	var orgID, period string
	cmd := &cobra.Command{
		Use:   "generate-rent",
		Short: "Generate rent charges for one organization and period",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("--org must be a UUID: %w", err)
			}
			if _, err := utils.ParsePeriodKey(period); err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			return client.postAndPrint(cmd, orgPath(routes.TriggerGenerateCharges, org),
				dtos.GenerateChargesRequest{Period: period})
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization ID")
	cmd.Flags().StringVar(&period, "period", "", `period key, "2025-03" or "2025-W10"`)
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func tickCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run the daily tick across every organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			return client.postAndPrint(cmd, routes.TriggerDailyTick, struct{}{})
		},
	}
}

func tokenCmd(opts *clientOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a trigger token for use by an external scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			tok, err := client.token(ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", constants.TriggerTokenTTL, "token lifetime")
	return cmd
}

func orgPath(route string, orgID uuid.UUID) string {
	return strings.Replace(route, "{"+routes.VarOrgID+"}", orgID.String(), 1)
}
