package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jo-hoe/imgdrop/internal/core"
	"github.com/jo-hoe/imgdrop/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var noProgress bool
	var copyLink bool

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload images and add them to the gallery",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]upload.File, 0, len(args))
			for _, path := range args {
				file, err := upload.FileFromPath(path)
				if err != nil {
					return err
				}
				files = append(files, file)
			}

			return ctx.withService(cmd.Context(), func(service *core.CoreService) error {
				out := cmd.OutOrStdout()
				var view *progressView
				if !noProgress && isTerminal(out) {
					view = newProgressView(out, files)
					changes, unsubscribe := service.Subscribe()
					defer unsubscribe()
					go view.follow(changes, service.Pending)
				}

				service.SelectFiles(files)
				summary, err := service.Upload(cmd.Context())
				if view != nil {
					view.stop(service.Pending())
				}
				if err != nil {
					return err
				}

				printResults(out, service.Pending())
				if copyLink && summary.Succeeded > 0 {
					copyLastLink(out, service)
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d uploads failed: %s", summary.Failed, len(files), service.ErrorMessage())
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not render live progress bars")
	cmd.Flags().BoolVar(&copyLink, "copy", false, "Copy the last uploaded link to the clipboard")
	return cmd
}

func printResults(out io.Writer, items []upload.PendingItem) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		size := "unknown"
		if item.File.Size >= 0 {
			size = humanize.Bytes(uint64(item.File.Size))
		}
		result := item.ResultURL
		if item.Failed {
			result = "failed"
		}
		rows = append(rows, []string{item.File.Name, size, result})
	}
	fmt.Fprintln(out, renderTable([]string{"File", "Size", "Link"}, rows, 1))
}

func copyLastLink(out io.Writer, service *core.CoreService) {
	images := service.Gallery()
	if len(images) == 0 {
		return
	}
	if _, err := service.CopyGalleryURL(len(images) - 1); err != nil {
		fmt.Fprintln(out, service.ErrorMessage())
		return
	}
	fmt.Fprintln(out, "URL copied to clipboard!")
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
