package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ultron-ftp/backend/internal/admin"
	"github.com/ultron-ftp/backend/internal/programs"
	"github.com/ultron-ftp/backend/internal/registrations"
	"github.com/ultron-ftp/backend/internal/reports"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write CSV reports",
	}
	cmd.AddCommand(newExportProgramsCmd(opts), newExportAttendanceCmd(opts))
	return cmd
}

func newExportProgramsCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "programs",
		Short: "Export every program with participant and completion counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, pool, _, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			out, err := admin.ExportPrograms(ctx, programs.NewRepository(pool), registrations.NewRepository(pool))
			if err != nil {
				return err
			}
			return writeFile(cmd, filepath.Join(dir, reports.ProgramsFilename(time.Now())), out)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "output directory")
	return cmd
}

func newExportAttendanceCmd(opts *rootOptions) *cobra.Command {
	var (
		dir       string
		programID string
	)
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Export the attendance list of one program",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(programID)
			if err != nil {
				return fmt.Errorf("invalid --program: %w", err)
			}
			ctx := cmd.Context()
			_, pool, _, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			p, err := programs.NewRepository(pool).GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("get program: %w", err)
			}
			list, err := registrations.NewRepository(pool).ListByProgram(ctx, id)
			if err != nil {
				return fmt.Errorf("list registrations: %w", err)
			}
			out, err := reports.AttendanceCSV(list)
			if err != nil {
				return err
			}
			return writeFile(cmd, filepath.Join(dir, reports.AttendanceFilename(p.ProgramName)), out)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "output directory")
	cmd.Flags().StringVarP(&programID, "program", "p", "", "program id")
	_ = cmd.MarkFlagRequired("program")
	return cmd
}

func writeFile(cmd *cobra.Command, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
