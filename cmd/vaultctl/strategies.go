package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yourusername/backtest-vault/internal/view"
)

var (
	uploadName string
	uploadEx   string
	uploadMq   string
	fileKind   string
)

func loadStrategies(ctx context.Context) (*view.StrategyFilesTable, error) {
	tbl := view.NewStrategyFilesTable(apiClient, attCache, appLog)
	if err := tbl.Refresh(ctx); err != nil {
		return nil, err
	}
	return tbl, nil
}

var strategiesCmd = &cobra.Command{
	Use:     "strategies",
	Aliases: []string{"st"},
	Short:   "Manage strategy file bundles",
}

var strategiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List strategy bundles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		tbl, err := loadStrategies(ctx)
		if err != nil {
			return err
		}
		renderStrategies(stdout, tbl.Rows())
		return nil
	},
}

var strategiesUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a compiled and source strategy pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exData, err := readUpload(uploadEx)
		if err != nil {
			return err
		}
		mqData, err := readUpload(uploadMq)
		if err != nil {
			return err
		}
		bundle, err := view.BuildBundle(uploadName, filepath.Base(uploadEx), exData, filepath.Base(uploadMq), mqData)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()
		id, err := apiClient.UploadStrategy(ctx, bundle)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Strategy %q uploaded as %d\n", bundle.StrategyName, id)
		return nil
	},
}

var strategiesDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download the compiled (ex) or source (mq) file of a bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		kind, err := view.ParseFileKind(fileKind)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		tbl, err := loadStrategies(ctx)
		if err != nil {
			return err
		}
		att, err := tbl.Download(id, kind)
		if err != nil {
			return fmt.Errorf("strategy %d: %w", id, err)
		}
		path, err := saveAttachment(outDir, att)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved %s (%d bytes)\n", path, len(att.Data))
		return nil
	},
}

var strategiesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a strategy bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		tbl, err := loadStrategies(ctx)
		if err != nil {
			return err
		}
		if !confirm(fmt.Sprintf("Delete strategy bundle %d?", id), assumeYes) {
			fmt.Fprintln(stdout, "Aborted")
			return nil
		}
		if err := tbl.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Strategy bundle %d deleted\n", id)
		return nil
	},
}

func init() {
	strategiesUploadCmd.Flags().StringVar(&uploadName, "name", "", "Strategy name")
	strategiesUploadCmd.Flags().StringVar(&uploadEx, "ex", "", "Path to the compiled .ex4/.ex5 file")
	strategiesUploadCmd.Flags().StringVar(&uploadMq, "mq", "", "Path to the source .mq4/.mq5 file")
	for _, f := range []string{"name", "ex", "mq"} {
		strategiesUploadCmd.MarkFlagRequired(f)
	}

	strategiesDownloadCmd.Flags().StringVar(&fileKind, "kind", "ex", "File to download: ex or mq")
	strategiesDownloadCmd.Flags().StringVar(&outDir, "dir", ".", "Directory to write the file to")
	strategiesDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	strategiesCmd.AddCommand(strategiesListCmd, strategiesUploadCmd, strategiesDownloadCmd, strategiesDeleteCmd)
}
