package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediacache/internal/api"
	"mediacache/internal/mediacache"
	"mediacache/internal/volume"
)

func defaultVolumeID(rt *runtime) string {
	if len(rt.cfg.Volumes) == 0 {
		return ""
	}
	return rt.cfg.Volumes[0].ID
}

// latestVersion returns the highest registered version of fileID.
func latestVersion(ctx context.Context, vol *volume.Volume, fileID string) (int, error) {
	files, err := vol.Files(ctx)
	if err != nil {
		return 0, err
	}
	latest := 0
	for _, file := range files {
		if file.ID == fileID && file.Version > latest {
			latest = file.Version
		}
	}
	if latest == 0 {
		return 0, fmt.Errorf("%w: %s in volume %s", volume.ErrFileNotFound, fileID, vol.ID())
	}
	return latest, nil
}

// enqueueFile queues one cache item per template key for file.
func enqueueFile(ctx context.Context, rt *runtime, file *volume.File, templateKeys []string) ([]*mediacache.CacheItem, error) {
	items := make([]*mediacache.CacheItem, 0, len(templateKeys))
	for _, key := range templateKeys {
		tpl, err := rt.templates.Find(strings.TrimSpace(key))
		if err != nil {
			return items, err
		}
		item, err := rt.cache.Enqueue(ctx, mediacache.Identity{
			VolumeID:         file.VolumeID,
			FileID:           file.ID,
			FileVersion:      file.Version,
			TemplateKey:      tpl.Key,
			TemplateRevision: tpl.Revision,
		})
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func printEnqueued(cmd *cobra.Command, ctx *commandContext, items []*mediacache.CacheItem) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, api.FromCacheItems(items))
	}
	out := cmd.OutOrStdout()
	for _, item := range items {
		fmt.Fprintf(out, "Queued %s (%s)\n", item.ID, item.Identity())
	}
	return nil
}

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var volumeID string
	var version int

	cmd := &cobra.Command{
		Use:   "enqueue <file-id> <template>...",
		Short: "Queue cache items for an existing file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if strings.TrimSpace(volumeID) == "" {
					volumeID = defaultVolumeID(rt)
				}
				vol, err := rt.volumes.GetByID(volumeID)
				if err != nil {
					return err
				}
				fileID := strings.TrimSpace(args[0])
				if version <= 0 {
					if version, err = latestVersion(cmd.Context(), vol, fileID); err != nil {
						return err
					}
				}
				file, err := vol.FindFile(cmd.Context(), fileID, version)
				if err != nil {
					return err
				}
				items, err := enqueueFile(cmd.Context(), rt, file, args[1:])
				if err != nil {
					return err
				}
				return printEnqueued(cmd, ctx, items)
			})
		},
	}

	cmd.Flags().StringVar(&volumeID, "volume", "", "Volume id (defaults to the first configured volume)")
	cmd.Flags().IntVar(&version, "version", 0, "File version (defaults to the latest)")
	return cmd
}

func newFilesCommand(ctx *commandContext) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "Manage source files",
	}
	filesCmd.AddCommand(newFilesAddCommand(ctx))
	filesCmd.AddCommand(newFilesListCommand(ctx))
	return filesCmd
}

func newFilesAddCommand(ctx *commandContext) *cobra.Command {
	var volumeID string
	var fileID string
	var templates []string

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Register files in a volume and optionally queue renditions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileID != "" && len(args) > 1 {
				return errors.New("--file-id accepts a single path")
			}
			return ctx.withRuntime(func(rt *runtime) error {
				if strings.TrimSpace(volumeID) == "" {
					volumeID = defaultVolumeID(rt)
				}
				out := cmd.OutOrStdout()
				var queued []*mediacache.CacheItem
				var files []*volume.File
				for _, path := range args {
					var file *volume.File
					var err error
					if fileID != "" {
						file, err = rt.volumes.AddVersion(cmd.Context(), volumeID, fileID, path)
					} else {
						file, err = rt.volumes.Register(cmd.Context(), volumeID, path)
					}
					if err != nil {
						return fmt.Errorf("register %s: %w", path, err)
					}
					files = append(files, file)
					items, err := enqueueFile(cmd.Context(), rt, file, templates)
					if err != nil {
						return err
					}
					queued = append(queued, items...)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, struct {
						Files []fileView      `json:"files"`
						Items []api.CacheItem `json:"items"`
					}{Files: fileViews(files), Items: api.FromCacheItems(queued)})
				}
				for _, file := range files {
					fmt.Fprintf(out, "Registered %s v%d (%s, %s)\n", file.ID, file.Version, file.Name, file.MediaType)
				}
				for _, item := range queued {
					fmt.Fprintf(out, "Queued %s (%s)\n", item.ID, item.Identity())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&volumeID, "volume", "", "Volume id (defaults to the first configured volume)")
	cmd.Flags().StringVar(&fileID, "file-id", "", "Add the path as a new version of this file")
	cmd.Flags().StringSliceVarP(&templates, "template", "t", nil, "Template keys to queue for each file")
	return cmd
}

type fileView struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	VolumeID  string `json:"volumeId"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"createdAt"`
}

func fileViews(files []*volume.File) []fileView {
	views := make([]fileView, 0, len(files))
	for _, file := range files {
		views = append(views, fileView{
			ID:        file.ID,
			Version:   file.Version,
			VolumeID:  file.VolumeID,
			Name:      file.Name,
			MediaType: file.MediaType,
			MimeType:  file.MimeType,
			Size:      file.Size,
			CreatedAt: api.FormatTime(file.CreatedAt),
		})
	}
	return views
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	var volumeID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if strings.TrimSpace(volumeID) == "" {
					volumeID = defaultVolumeID(rt)
				}
				vol, err := rt.volumes.GetByID(volumeID)
				if err != nil {
					return err
				}
				files, err := vol.Files(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, fileViews(files))
				}
				out := cmd.OutOrStdout()
				if len(files) == 0 {
					fmt.Fprintln(out, "No files registered")
					return nil
				}
				rows := make([][]string, 0, len(files))
				for _, file := range files {
					rows = append(rows, []string{
						file.ID,
						strconv.Itoa(file.Version),
						file.Name,
						file.MediaType,
						strconv.FormatInt(file.Size, 10),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Version", "Name", "Media Type", "Size"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&volumeID, "volume", "", "Volume id (defaults to the first configured volume)")
	return cmd
}
