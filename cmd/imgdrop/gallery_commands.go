package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jo-hoe/imgdrop/internal/core"
)

func newGalleryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Inspect and edit the saved gallery",
	}
	cmd.AddCommand(newGalleryListCommand(ctx))
	cmd.AddCommand(newGalleryRemoveCommand(ctx))
	cmd.AddCommand(newGalleryClearCommand(ctx))
	return cmd
}

func newGalleryListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), func(service *core.CoreService) error {
				images := service.Gallery()
				out := cmd.OutOrStdout()
				if len(images) == 0 {
					fmt.Fprintln(out, "No images uploaded yet.")
					return nil
				}
				rows := make([][]string, len(images))
				for i, image := range images {
					preview := "none"
					if image.Preview != "" {
						preview = humanize.Bytes(uint64(len(image.Preview)))
					}
					rows[i] = []string{strconv.Itoa(i), image.URL, preview}
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Link", "Preview"}, rows, 0, 2))
				return nil
			})
		},
	}
}

func newGalleryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove a saved image by its index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd.Context(), func(service *core.CoreService) error {
				return removeImage(cmd, service, index)
			})
		},
	}
}

type galleryRemover interface {
	RemoveFromGallery(ctx context.Context, index int) (bool, error)
}

func removeImage(cmd *cobra.Command, remover galleryRemover, index int) error {
	saved, err := remover.RemoveFromGallery(cmd.Context(), index)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed image #%d\n", index)
	if !saved {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: the removal could not be saved and will be undone on the next run.")
	}
	return nil
}

func newGalleryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all saved images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd.Context(), func(service *core.CoreService) error {
				count := len(service.Gallery())
				if err := service.ClearGallery(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d saved images\n", count)
				return nil
			})
		},
	}
}

func newCopyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <index>",
		Short: "Copy the link of a saved image to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(cmd.Context(), func(service *core.CoreService) error {
				url, err := service.CopyGalleryURL(index)
				if err != nil {
					if msg := service.ErrorMessage(); msg != "" {
						return fmt.Errorf("%s: %w", msg, err)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "URL copied to clipboard! %s\n", url)
				return nil
			})
		},
	}
}

func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid index %q", arg)
	}
	return index, nil
}
