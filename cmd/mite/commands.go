package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/adlio/mite"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newConfig reads settings from MITE_DIR, MITE_PLUGIN_DIR, MITE_STRICT and
// MITE_VERBOSE. An empty MITE_PLUGIN_DIR disables plugin loading.
func newConfig() *viper.Viper {
	v := viper.New()
	v.SetDefault("dir", ".")
	v.SetDefault("plugin-dir", mite.ExecutableDir())
	v.SetDefault("strict", false)
	v.SetDefault("verbose", false)
	v.SetEnvPrefix("MITE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	return v
}

// newRootCmd builds the command tree with its own viper instance. Flags
// override the environment.
func newRootCmd() *cobra.Command {
	v := newConfig()

	rootCmd := &cobra.Command{
		Use:           "mite",
		Short:         "Resolve and bootstrap the database backend for a migrations directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.String("dir", v.GetString("dir"), "migrations directory containing "+mite.DefaultConfigFileName)
	flags.String("plugin-dir", v.GetString("plugin-dir"), "directory scanned for backend plugin modules (empty disables plugins)")
	flags.Bool("strict", v.GetBool("strict"), "fail when a plugin module cannot be loaded")
	flags.Bool("verbose", v.GetBool("verbose"), "log discovery and bootstrap steps to stderr")
	for _, name := range []string{"dir", "plugin-dir", "strict", "verbose"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newInitCmd(v),
		newStatusCmd(v),
		newBackendsCmd(v),
	)
	return rootCmd
}

func bootstrapper(v *viper.Viper, stderr io.Writer) mite.Bootstrapper {
	options := []mite.Option{mite.WithPluginDir(v.GetString("plugin-dir"))}
	if v.GetBool("strict") {
		options = append(options, mite.WithStrictDiscovery())
	}
	if v.GetBool("verbose") {
		options = append(options, mite.WithLogger(log.New(stderr, "mite: ", log.LstdFlags)))
	}
	return mite.NewBootstrapper(options...)
}

func newInitCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the migration tracking store for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := v.GetString("dir")
			m, err := bootstrapper(v, cmd.ErrOrStderr()).BootstrapDirectory(context.Background(), dir)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			_, err = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Tracking store ready for %s\n", dir)
			return err
		},
	}
}

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the migrations recorded in the tracking store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			m, err := bootstrapper(v, cmd.ErrOrStderr()).BootstrapDirectory(ctx, v.GetString("dir"))
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			applied, err := m.GetAppliedMigrations(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				_, err = fmt.Fprintln(out, "No migrations applied")
				return err
			}

			ids := make([]string, 0, len(applied))
			for id := range applied {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCHECKSUM\tDURATION\tAPPLIED AT")
			for _, id := range ids {
				am := applied[id]
				_, _ = fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n", am.ID, am.Checksum, am.ExecutionTimeInMillis, am.AppliedAt.Format("2006-01-02 15:04:05 MST"))
			}
			return w.Flush()
		},
	}
}

func newBackendsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List discoverable backends in resolution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := bootstrapper(v, cmd.ErrOrStderr())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tQUALIFIED NAME\tSOURCE")
			for c, err := range b.Discovery.Candidates() {
				if err != nil {
					_ = w.Flush()
					return err
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.QualifiedName, c.Source)
			}
			return w.Flush()
		},
	}
}
