package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/SheetDrop/internal/analysis"
	"github.com/dharsanguruparan/SheetDrop/internal/app"
	"github.com/dharsanguruparan/SheetDrop/internal/config"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
	"github.com/dharsanguruparan/SheetDrop/internal/sheet"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app.SetupLogging(cfg)
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return app.RunServer(cmd.Context(), cfg)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume analysis jobs from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return app.RunWorker(cmd.Context(), cfg)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := app.Migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var in service.CreateUserInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			in.Role = model.RoleAdmin
			u, err := a.Admin.CreateUser(cmd.Context(), nil, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "admin", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password, at least 6 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// analyzeReport is what analyze prints.
type analyzeReport struct {
	File        string         `json:"file"`
	SheetName   string         `json:"sheetName"`
	RowCount    int            `json:"rowCount"`
	ColumnCount int            `json:"columnCount"`
	Columns     []model.Column `json:"columns"`
	Summary     model.Summary  `json:"summary"`
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Infer column types and summary for a local CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := sheet.Parse(f, args[0])
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			ds := &model.Dataset{SheetName: res.SheetName}
			if err := ds.SetContent(nil, res.Grid); err != nil {
				return err
			}
			analysis.Analyze(ds)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analyzeReport{
				File:        args[0],
				SheetName:   ds.SheetName,
				RowCount:    ds.RowCount,
				ColumnCount: ds.ColumnCount,
				Columns:     ds.Columns,
				Summary:     ds.Summary,
			})
		},
	}
}
