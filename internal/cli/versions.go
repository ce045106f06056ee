package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// versionsCommand creates the versions command.
func (c *CLI) versionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions [name]",
		Short: "List installed versions",
		Long: `List the installed versions of a package, highest first, in the order the
resolver tries them. Without a name every installed package is listed.`,
		Example: `  nope versions requests
  nope versions`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			r := c.repository()

			if len(args) == 1 {
				versions, err := r.ListVersions(args[0])
				if err != nil {
					return err
				}
				for _, v := range versions {
					fmt.Fprintln(out, v)
				}
				return nil
			}

			names, err := r.ListPackages()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo(out, "No packages installed in %s", r.Root())
				return nil
			}
			for _, name := range names {
				versions, err := r.ListVersions(name)
				if err != nil {
					return err
				}
				printKeyValue(out, name, strings.Join(versions, ", "))
			}
			return nil
		},
	}
}

// showCommand creates the show command.
func (c *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name> <version>",
		Short: "Show the metadata of an installed package version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			r := c.metadataRepository(cmd.Context())
			meta, err := r.ReadMetadata(args[0], args[1])
			if err != nil {
				return err
			}
			reqs, err := r.ReadRequirements(args[0], args[1])
			if err != nil {
				return err
			}

			printKeyValue(out, "name", meta.Name)
			printKeyValue(out, "version", meta.Version)
			if meta.Summary != "" {
				printKeyValue(out, "summary", meta.Summary)
			}
			printKeyValue(out, "location", r.PackagePath(r.Canonical(args[0]), args[1]))
			if len(reqs) == 0 {
				printKeyValue(out, "requires", "(none)")
				return nil
			}
			printKeyValue(out, "requires", reqs[0].String())
			for _, req := range reqs[1:] {
				printKeyValue(out, "", req.String())
			}
			return nil
		},
	}
}
