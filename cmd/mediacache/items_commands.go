package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediacache/internal/api"
	"mediacache/internal/logging"
	"mediacache/internal/mediacache"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	itemsCmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and manage cache items",
	}

	itemsCmd.AddCommand(newItemsListCommand(ctx))
	itemsCmd.AddCommand(newItemsShowCommand(ctx))
	itemsCmd.AddCommand(newItemsStatsCommand(ctx))
	itemsCmd.AddCommand(newItemsDeleteCommand(ctx))
	itemsCmd.AddCommand(newItemsRetryCommand(ctx))

	return itemsCmd
}

func buildFilter(cacheStatuses, queueStatuses []string, templateKey, fileID string, limit int) (mediacache.Filter, error) {
	filter := mediacache.Filter{
		TemplateKey: strings.TrimSpace(templateKey),
		FileID:      strings.TrimSpace(fileID),
		Limit:       limit,
	}
	for _, value := range cacheStatuses {
		status, err := mediacache.ParseCacheStatus(value)
		if err != nil {
			return filter, err
		}
		filter.CacheStatuses = append(filter.CacheStatuses, status)
	}
	for _, value := range queueStatuses {
		status, err := mediacache.ParseQueueStatus(value)
		if err != nil {
			return filter, err
		}
		filter.QueueStatuses = append(filter.QueueStatuses, status)
	}
	return filter, nil
}

func buildItemRows(items []*mediacache.CacheItem, colorize bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.TemplateKey,
			fmt.Sprintf("%s@%d", item.FileID, item.FileVersion),
			renderStatus(item.CacheStatus, colorize),
			string(item.QueueStatus),
			item.MimeType,
			api.FormatTime(item.CreatedAt),
		})
	}
	return rows
}

func newItemsListCommand(ctx *commandContext) *cobra.Command {
	var cacheStatuses []string
	var queueStatuses []string
	var templateKey string
	var fileID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cache items",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter(cacheStatuses, queueStatuses, templateKey, fileID, limit)
			if err != nil {
				return err
			}
			return ctx.withRuntime(func(rt *runtime) error {
				items, err := rt.cache.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.ItemListResponse{Items: api.FromCacheItems(items)})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No cache items")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Template", "File", "Status", "Queue", "MIME", "Created"},
					buildItemRows(items, shouldColorize(out)),
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&cacheStatuses, "status", "s", nil, "Filter by cache status (repeatable)")
	cmd.Flags().StringSliceVar(&queueStatuses, "queue", nil, "Filter by queue status (repeatable)")
	cmd.Flags().StringVarP(&templateKey, "template", "t", "", "Filter by template key")
	cmd.Flags().StringVar(&fileID, "file", "", "Filter by file id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum items to list (0 for all)")
	return cmd
}

func newItemsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a cache item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				item, err := rt.cache.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("cache item %s not found", args[0])
				}
				location := storedPath(rt, item)
				if ctx.JSONMode() {
					return writeJSON(cmd, struct {
						api.CacheItem
						StoredPath string `json:"storedPath,omitempty"`
					}{CacheItem: api.FromCacheItem(item), StoredPath: location})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %s\n", item.ID)
				fmt.Fprintf(out, "Identity:    %s\n", item.Identity())
				fmt.Fprintf(out, "Status:      %s\n", renderStatus(item.CacheStatus, shouldColorize(out)))
				fmt.Fprintf(out, "Queue:       %s\n", item.QueueStatus)
				if item.MimeType != "" {
					fmt.Fprintf(out, "MIME type:   %s\n", item.MimeType)
				}
				if item.MediaType != "" {
					fmt.Fprintf(out, "Media type:  %s\n", item.MediaType)
				}
				if item.Extension != "" {
					fmt.Fprintf(out, "Extension:   %s\n", item.Extension)
				}
				if item.FileSize > 0 {
					fmt.Fprintf(out, "Size:        %d bytes\n", item.FileSize)
				}
				if item.Width != nil && item.Height != nil {
					fmt.Fprintf(out, "Dimensions:  %dx%d\n", *item.Width, *item.Height)
				}
				if item.Error != "" {
					fmt.Fprintf(out, "Error:       %s\n", item.Error)
				}
				fmt.Fprintf(out, "Created:     %s\n", api.FormatTime(item.CreatedAt))
				if item.FinishedAt != nil {
					fmt.Fprintf(out, "Finished:    %s\n", api.FormatTime(*item.FinishedAt))
				}
				if location != "" {
					fmt.Fprintf(out, "Stored at:   %s\n", location)
				}
				return nil
			})
		},
	}
}

// storedPath resolves where the item's rendition lives, or "" when it is not stored.
func storedPath(rt *runtime, item *mediacache.CacheItem) string {
	if item.CacheStatus != mediacache.StatusOK {
		return ""
	}
	tpl, err := rt.templates.Find(item.TemplateKey)
	if err != nil {
		return ""
	}
	backend, err := rt.storages.Get(tpl.Storage)
	if err != nil {
		return ""
	}
	path, exists, err := backend.Locate(item)
	if err != nil || !exists {
		return ""
	}
	return path
}

func newItemsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize cache items by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				stats, err := rt.cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				resp := api.FromStats(stats)
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Total == 0 {
					fmt.Fprintln(out, "No cache items")
					return nil
				}
				rows := make([][]string, 0, len(resp.ByCacheStatus)+len(resp.ByQueueStatus))
				for _, key := range sortedKeys(resp.ByCacheStatus) {
					rows = append(rows, []string{"cache", key, strconv.Itoa(resp.ByCacheStatus[key])})
				}
				for _, key := range sortedKeys(resp.ByQueueStatus) {
					rows = append(rows, []string{"queue", key, strconv.Itoa(resp.ByQueueStatus[key])})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Kind", "Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				fmt.Fprintf(out, "Total: %d\n", resp.Total)
				return nil
			})
		},
	}
}

func sortedKeys(values map[string]int) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func newItemsDeleteCommand(ctx *commandContext) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete cache items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					id := strings.TrimSpace(arg)
					item, err := rt.cache.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					if item == nil {
						fmt.Fprintf(out, "Cache item %s not found\n", id)
						continue
					}
					if purge {
						purgeStored(cmd, rt, item)
					}
					if _, err := rt.cache.Delete(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Deleted cache item %s\n", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also remove the stored rendition")
	return cmd
}

func purgeStored(cmd *cobra.Command, rt *runtime, item *mediacache.CacheItem) {
	tpl, err := rt.templates.Find(item.TemplateKey)
	if err != nil {
		return
	}
	backend, err := rt.storages.Get(tpl.Storage)
	if err != nil {
		return
	}
	if err := backend.Remove(cmd.Context(), item); err != nil {
		logging.WarnWithContext(rt.logger, "stored rendition not removed", "purge_failed",
			logging.String(logging.FieldCacheItemID, item.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file from the storage directory manually"),
			logging.String(logging.FieldImpact, "orphaned rendition remains on disk"),
		)
	}
}

func newItemsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Re-queue cache items that ended in error",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				count, err := rt.cache.RetryFailed(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]int64{"requeued": count})
				}
				out := cmd.OutOrStdout()
				if count == 0 {
					fmt.Fprintln(out, "No failed items to retry")
					return nil
				}
				fmt.Fprintf(out, "Re-queued %d items\n", count)
				return nil
			})
		},
	}
}
