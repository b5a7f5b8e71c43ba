// Command vpad inspects and builds VoodooPad-style document stores.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpl-au/vpad"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vpad",
		Short:         "Inspect and build VoodooPad-style document stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newCreateCommand(),
		newInfoCommand(),
		newAddCommand(),
		newRenderCommand(),
		newBackupCommand(),
		newDecryptCommand(),
	)
	return cmd
}

func newCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <store>",
		Short: "Create a new store with the default Index page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := vpad.Create(args[0])
			return err
		},
	}
}

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <store>",
		Short: "Print store identity, pages, and link structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := vpad.Open(args[0])
			if err != nil {
				return err
			}
			cache, err := vpad.OpenCache(store.Path(), true)
			if err != nil {
				return err
			}
			defer cache.Close()
			if err := cache.Update(store); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			info := store.Info()
			fmt.Fprintf(out, "Path: %s\n", store.Path())
			fmt.Fprintf(out, "UUID: %s\n", info.UUID)
			fmt.Fprintf(out, "Version: %d\n", info.BundleVersion)
			fmt.Fprintf(out, "Default page: %s\n", store.Properties().DefaultPage)
			fmt.Fprintf(out, "Valid: %v\n", store.Validate())

			for _, id := range store.UUIDs() {
				record, _ := store.Record(id)
				fmt.Fprintf(out, "%s  %s\n", id, record.DisplayName)
				forward, err := cache.ForwardLinks(id)
				if err != nil {
					return err
				}
				for _, target := range forward {
					if t, ok := store.Record(target); ok {
						fmt.Fprintf(out, "  links to %s\n", t.DisplayName)
					}
				}
				back, err := cache.Backlinks(id)
				if err != nil {
					return err
				}
				for _, source := range back {
					if t, ok := store.Record(source); ok {
						fmt.Fprintf(out, "  linked from %s\n", t.DisplayName)
					}
				}
			}

			for _, diag := range store.Diagnostics() {
				fmt.Fprintf(out, "warning: %s\n", diag)
			}
			return nil
		},
	}
}

func newAddCommand() *cobra.Command {
	var file, title, format string
	cmd := &cobra.Command{
		Use:   "add <store>",
		Short: "Add a page from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var uti string
			switch format {
			case "plaintext":
				uti = vpad.UTIPlainText
			case "markdown":
				uti = vpad.UTIMarkdown
			default:
				return fmt.Errorf("invalid format %q: must be plaintext or markdown", format)
			}

			store, err := vpad.Open(args[0])
			if err != nil {
				return err
			}
			for _, id := range store.UUIDs() {
				record, _ := store.Record(id)
				if strings.EqualFold(record.DisplayName, title) {
					return fmt.Errorf("a page named %q already exists", title)
				}
			}

			text, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			id, err := store.AddItem(title, string(text), uti)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "file holding the page text")
	cmd.Flags().StringVar(&title, "title", "", "page display name")
	cmd.Flags().StringVar(&format, "format", "plaintext", "page format (plaintext|markdown)")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newRenderCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render <store>",
		Short: "Export every page as markdown with wiki links resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := vpad.Open(args[0])
			if err != nil {
				return err
			}
			cache, err := vpad.OpenCache(store.Path(), false)
			if err != nil {
				return err
			}
			defer cache.Close()
			if err := cache.Update(store); err != nil {
				return err
			}
			return store.RenderDocument(cache, output)
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "output directory")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newBackupCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup <store>",
		Short: "Archive the store as a gzip tarball with a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := vpad.Open(args[0])
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := store.Backup(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "archive file to write")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newDecryptCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "decrypt <store>",
		Short: "List the items of an encrypted store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := vpad.DecryptItems(args[0], password)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range items {
				fmt.Fprintf(out, "%s  %s (%d bytes)\n",
					item.UUID, item.Record.DisplayName, len(item.Content))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "store password")
	cmd.MarkFlagRequired("password")
	return cmd
}
