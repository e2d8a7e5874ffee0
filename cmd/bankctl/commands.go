// cmd/bankctl/commands.go
package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"interview-prep-workers/internal/common/config"
	"interview-prep-workers/internal/common/database"
	"interview-prep-workers/internal/contentgate"
	"interview-prep-workers/internal/models"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bankctl",
		Short:         "Inspect and index the interview question bank",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newShowCmd(), newIndexCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check question bank files against the bank schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateFiles(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
}

// validateFiles loads every file concurrently and reports each result in argument order.
func validateFiles(ctx context.Context, out io.Writer, patterns []string) error {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return fmt.Errorf("pattern %s: %w", p, err)
		}
		if len(matches) == 0 {
			matches = []string{p}
		}
		files = append(files, matches...)
	}

	banks := make([]*contentgate.Bank, len(files))
	problems := make([]error, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range files {
		g.Go(func() error {
			banks[i], problems[i] = contentgate.LoadBank(f)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, f := range files {
		if problems[i] != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", f, problems[i])
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d roles, %d questions)\n", f, len(banks[i].Roles()), banks[i].Len())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, len(files))
	}
	return nil
}

func newShowCmd() *cobra.Command {
	var (
		bankPath string
		role     string
		access   int
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the questions a role would see",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bank, err := contentgate.LoadBank(bankPath)
			if err != nil {
				return err
			}
			if role == "" {
				return listRoles(cmd.OutOrStdout(), bank)
			}
			ent := &models.UserEntitlement{Role: &role, QuestionBankAccess: access}
			return showRole(cmd.OutOrStdout(), bank.Evaluate(true, ent), page, pageSize)
		},
	}
	cmd.Flags().StringVar(&bankPath, "bank", "configs/questions.json", "question bank file")
	cmd.Flags().StringVar(&role, "role", "", "role to resolve; lists roles when empty")
	cmd.Flags().IntVar(&access, "access", 0, "questionBank access level (0 free, 1 paid)")
	cmd.Flags().IntVar(&page, "page", 1, "1-based page")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "questions per page")
	return cmd
}

func listRoles(out io.Writer, bank *contentgate.Bank) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tQUESTIONS")
	for _, r := range bank.Roles() {
		fmt.Fprintf(w, "%s\t%d\n", r, len(bank.Items(r)))
	}
	return w.Flush()
}

func showRole(out io.Writer, view contentgate.View, page, pageSize int) error {
	fmt.Fprintf(out, "state: %s\n", view.State)
	if view.Message != "" {
		fmt.Fprintln(out, view.Message)
	}
	if view.State != contentgate.StateReady {
		return nil
	}

	printSet(out, "Basic", contentgate.Paginate(view.Visible.Basic, page, pageSize))
	if view.Visible.ShowAdvanced {
		printSet(out, "Advanced", contentgate.Paginate(view.Visible.Advanced, page, pageSize))
	} else if view.UpgradeMessage != "" {
		fmt.Fprintf(out, "\n%s (%d advanced questions hidden)\n", view.UpgradeMessage, len(view.Visible.Advanced))
	}
	return nil
}

func printSet(out io.Writer, title string, p contentgate.Page) {
	fmt.Fprintf(out, "\n%s questions (page %d/%d)\n", title, p.Page, p.TotalPages)
	for _, it := range p.Items {
		fmt.Fprintf(out, "%d / %d  %s\n", it.Position, p.Total, it.Item.Prompt)
	}
}

func newIndexCmd() *cobra.Command {
	var (
		bankPath  string
		indexName string
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Write the question bank into the Elasticsearch search index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if bankPath == "" {
				bankPath = cfg.Content.BankPath
			}
			if indexName == "" {
				indexName = cfg.Content.Index
			}

			bank, err := contentgate.LoadBank(bankPath)
			if err != nil {
				return err
			}
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			n, err := contentgate.NewIndex(es, indexName, bank).Sync(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d questions into %s\n", n, indexName)
			return nil
		},
	}
	cmd.Flags().StringVar(&bankPath, "bank", "", "question bank file (defaults to content.bank_path)")
	cmd.Flags().StringVar(&indexName, "index", "", "index name (defaults to content.index)")
	return cmd
}
