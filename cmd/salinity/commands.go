package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/forest-guardian/salinity-indices/internal/config"
	"github.com/forest-guardian/salinity-indices/internal/delivery"
	"github.com/forest-guardian/salinity-indices/internal/notification"
	"github.com/forest-guardian/salinity-indices/internal/properties"
	"github.com/forest-guardian/salinity-indices/internal/report"
	"github.com/forest-guardian/salinity-indices/internal/ui"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   "salinity",
		Short: "Soil salinity and vegetation indices from Landsat 8 surface reflectance",
		Long: `salinity masks clouds and shadows in a Landsat 8 Collection 2 Level 2
scene, converts it to surface reflectance and computes the SI1, SI2, SI3,
SI4a, SI5, NDSI, NDVI, SAVI and VSSI indices. Results are rendered as map
layers, summarised as CSV statistics and exported as GeoTIFFs.

Run without a command to open the interactive menu.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.PrintBanner()
			ui.ShowMenu(cmd.Context(), logrus.StandardLogger())
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	root.AddCommand(newRunCmd(), newStatsCmd(), newServeCmd(), newProfilesCmd(), newMenuCmd())
	return root
}

type sceneFlags struct {
	profile string
	region  string
}

func (f *sceneFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.profile, "profile", "p", config.DefaultProfile,
		"built-in profile name or path to a profile YAML file")
	cmd.Flags().StringVarP(&f.region, "region", "r", "",
		"GeoJSON of the area of interest, clipped with the profile's region filter")
}

func newRunCmd() *cobra.Command {
	var (
		flags    sceneFlags
		out      string
		doExport bool
		prefix   string
		reportTo string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "run SCENE...",
		Short: "Compute indices for scenes and write map layers",
		Long: `Compute the profile's indices for each SCENE, a GeoTIFF or an extracted
Landsat product folder. Layers are written to --out/<scene>/ with a
layers.json manifest. With --export the index stack is uploaded to
EXPORT_BUCKET as a GeoTIFF.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logrus.StandardLogger()
			profile, err := config.Resolve(flags.profile)
			if err != nil {
				return err
			}
			opts := delivery.RunOptions{
				Profile:        profile,
				RegionFile:     flags.region,
				OutDir:         out,
				FileNamePrefix: prefix,
				Report:         reportTo,
				Log:            log,
			}
			if doExport {
				if len(args) > 1 && prefix != "" {
					return fmt.Errorf("--prefix names a single export; it cannot be used with %d scenes", len(args))
				}
				exporter, closeExporter, err := delivery.NewExporter(ctx, log, os.Stderr)
				if err != nil {
					return err
				}
				defer closeExporter()
				opts.Exporter = exporter
			}

			results, err := delivery.RunBatch(ctx, args, opts, parallel)
			if err != nil {
				notification.SendDiscordErrorNotification(fmt.Sprintf("Salinity CLI\n\nError processing scenes: %s", err))
				return err
			}
			for _, res := range results {
				fields := logrus.Fields{"scene": res.Scene, "layers": res.Manifest}
				if res.Export != nil {
					fields["export"] = res.Export.Key
					fields["cached"] = res.Export.Cached
				}
				log.WithFields(fields).Info("scene processed")
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", properties.DataPath("result"), "folder for layer images")
	cmd.Flags().BoolVar(&doExport, "export", false, "export the index stack to EXPORT_BUCKET")
	cmd.Flags().StringVar(&prefix, "prefix", "", "export file name prefix (default from profile)")
	cmd.Flags().StringVar(&reportTo, "report", "", "append index statistics to this CSV")
	cmd.Flags().IntVarP(&parallel, "parallel", "n", 1, "scenes processed at once")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var (
		flags    sceneFlags
		reportTo string
	)
	cmd := &cobra.Command{
		Use:   "stats SCENE...",
		Short: "Print per-index statistics as CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := config.Resolve(flags.profile)
			if err != nil {
				return err
			}
			results, err := delivery.RunBatch(cmd.Context(), args, delivery.RunOptions{
				Profile:    profile,
				RegionFile: flags.region,
				Report:     reportTo,
				Log:        logrus.StandardLogger(),
			}, 1)
			if err != nil {
				return err
			}
			if reportTo != "" {
				return nil
			}
			var rows []report.Row
			for _, res := range results {
				rows = append(rows, res.Stats...)
			}
			return report.Write(cmd.OutOrStdout(), rows)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&reportTo, "report", "", "append to this CSV instead of printing")
	return cmd
}

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve salinity.v1.IndexService over gRPC",
		Long: `Serve salinity.v1.IndexService/ComputeIndices. Scene references are
resolved under data/scenes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return delivery.Serve(cmd.Context(), port, logrus.StandardLogger())
		},
	}
	cmd.Flags().IntVar(&port, "port", properties.GrpcPort(), "listening port")
	return cmd
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List built-in profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, name := range config.Builtins() {
				p, err := config.Builtin(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n\tindices: %s\n", p.Name, p.Description, strings.Join(p.Indices, ", "))
			}
			return nil
		},
	}
}

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Open the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.PrintBanner()
			ui.ShowMenu(cmd.Context(), logrus.StandardLogger())
			return nil
		},
	}
}
