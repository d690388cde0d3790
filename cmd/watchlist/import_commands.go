package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"watchlist/internal/importer"
	"watchlist/internal/store"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Run and inspect watch-history imports",
	}

	importCmd.AddCommand(newImportRunCommand(ctx))
	importCmd.AddCommand(newImportStatusCommand(ctx))
	importCmd.AddCommand(newImportItemsCommand(ctx))
	importCmd.AddCommand(newImportListCommand(ctx))

	return importCmd
}

func newImportRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import a JSON list of watch-history items into a user's library",
		Long: `Import a JSON array of items into a user's library.

Each item has the shape:
  {"title": "Heat", "year": 1995, "original_rating": 4.5,
   "status": "watched", "is_rewatch": false, "media_kind": "movie"}

Use --file - to read from stdin. Interrupting the run marks the job failed
with "import cancelled"; items processed so far stay recorded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runImport(ctx, cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.userID, "user", "u", "", "User whose library receives the import")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON file with the items to import (- for stdin)")
	cmd.Flags().StringVar(&opts.source, "source", "letterboxd", "Label recorded as the job source")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Conflict strategy: skip, overwrite or keep_higher_rating (default from config)")
	cmd.Flags().BoolVar(&opts.noRatings, "no-ratings", false, "Do not import ratings")
	cmd.Flags().BoolVar(&opts.noWatchlist, "no-watchlist", false, "Skip watchlist items")
	cmd.Flags().BoolVar(&opts.noWatched, "no-watched", false, "Skip watched items")
	cmd.Flags().BoolVar(&opts.rewatchTag, "rewatch-tag", false, "Tag rewatched items with the rewatch system tag")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the summary as JSON")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newImportStatusCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show progress of an import job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				job, err := lookupJob(cmd, st, jobID, userID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJob(job))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the job")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newImportItemsCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var statusFilter string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "items <job-id>",
		Short: "List the recorded items of an import job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			var want importer.ItemStatus
			if strings.TrimSpace(statusFilter) != "" {
				status, ok := importer.ParseItemStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown item status %q (want success, failed or skipped)", statusFilter)
				}
				want = status
			}
			return ctx.withStore(func(st *store.Store) error {
				if _, err := lookupJob(cmd, st, jobID, userID); err != nil {
					return err
				}
				items, err := st.ListJobItems(cmd.Context(), jobID)
				if err != nil {
					return err
				}
				items = filterItems(items, want)
				if jsonOutput {
					if items == nil {
						items = []importer.JobItem{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No items recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderItems(items))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the job")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show items with this status (success, failed, skipped)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newImportListCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent import jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				jobs, err := st.ListJobs(cmd.Context(), userID, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if jobs == nil {
						jobs = []importer.Job{}
					}
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No import jobs")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJobs(jobs))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner of the jobs")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", raw)
	}
	return id, nil
}

func lookupJob(cmd *cobra.Command, st *store.Store, jobID int64, userID string) (*importer.Job, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("--user is required")
	}
	job, err := st.GetJob(cmd.Context(), jobID, userID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %d not found for user %q", jobID, userID)
	}
	return job, nil
}

func filterItems(items []importer.JobItem, status importer.ItemStatus) []importer.JobItem {
	if status == "" {
		return items
	}
	filtered := items[:0]
	for _, item := range items {
		if item.Status == status {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
