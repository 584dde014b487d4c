package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forest-guardian/salinity-indices/internal/config"
	"github.com/forest-guardian/salinity-indices/internal/delivery"
	"github.com/forest-guardian/salinity-indices/internal/notification"
	"github.com/forest-guardian/salinity-indices/internal/properties"
)

type menuOption struct {
	title   string
	handler func(ctx context.Context, log logrus.FieldLogger) error
}

var errExit = errors.New("exit")

// ShowMenu runs the interactive menu until the user exits or ctx is done.
// Panics are reported to the Discord error webhook.
func ShowMenu(ctx context.Context, log logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			pc, file, line, ok := runtime.Caller(3)
			location := "Unknown location"
			if ok {
				location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
			}
			fmt.Fprintf(Out, "\n%sPANIC: %v%s\n", ColorRed, r, ColorReset)
			fmt.Fprintf(Out, "%sLocation: %s%s\n", ColorRed, location, ColorReset)
			fmt.Fprintf(Out, "%sExiting...%s\n", ColorRed, ColorReset)

			msg := fmt.Sprintf("Salinity CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
			if err := notification.SendDiscordErrorNotification(msg); err != nil {
				PrintError("Failed to send notification: " + err.Error())
			}
		}
	}()

	options := []menuOption{
		{"Compute salinity indices for a scene", runScene},
		{"Compute index statistics for a scene", sceneStats},
		{"View the list of available profiles", listProfiles},
		{"View the list of available scenes", listScenes},
		{"View the list of available regions", listRegions},
		{"Exit the application", func(context.Context, logrus.FieldLogger) error { return errExit }},
	}

	for ctx.Err() == nil {
		fmt.Fprintf(Out, "%s===================%s\n", ColorBlue, ColorReset)
		for i, opt := range options {
			fmt.Fprintf(Out, "%s%d. %s%s\n", ColorBlue, i+1, opt.title, ColorReset)
		}
		choice, err := ReadInt("Please enter your choice: ", 1, len(options))
		if inputClosed {
			return
		}
		if err != nil {
			PrintError(err.Error())
			continue
		}
		err = options[choice-1].handler(ctx, log)
		if errors.Is(err, errExit) {
			fmt.Fprintln(Out, "Exiting...")
			return
		}
		if err != nil {
			PrintError(err.Error())
		}
	}
}

func entries(dir string, keep func(os.DirEntry) bool) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", dir, err)
	}
	var names []string
	for _, f := range files {
		if keep(f) {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func isScene(f os.DirEntry) bool {
	name := strings.ToLower(f.Name())
	return f.IsDir() || strings.HasSuffix(name, ".tif") || strings.HasSuffix(name, ".tiff")
}

func isRegion(f os.DirEntry) bool {
	return !f.IsDir() && strings.HasSuffix(f.Name(), ".geojson")
}

func selectScene() (string, error) {
	scenes, err := entries(properties.DataPath("scenes"), isScene)
	if err != nil {
		return "", err
	}
	name, err := ReadChoice("Available scenes", scenes)
	if err != nil {
		return "", err
	}
	return properties.DataPath("scenes", name), nil
}

func selectProfile() (*config.Profile, error) {
	name, err := ReadChoice("Available profiles", config.Builtins())
	if err != nil {
		return nil, err
	}
	return config.Builtin(name)
}

func runScene(ctx context.Context, log logrus.FieldLogger) error {
	PrintWarning("Scenes are GeoTIFFs or extracted Landsat folders in data/scenes.\n" +
		"Regions are '.geojson' files in data/geojsons.")
	path, err := selectScene()
	if err != nil {
		return err
	}
	profile, err := selectProfile()
	if err != nil {
		return err
	}
	opts := delivery.RunOptions{
		Scene:   path,
		Profile: profile,
		OutDir:  properties.DataPath("result", delivery.SceneID(path)),
		Log:     log,
	}
	if regions, err := entries(properties.DataPath("geojsons"), isRegion); err == nil && len(regions) > 0 {
		if ReadYesNo("Clip to a region? [y/N]: ", false) {
			if opts.RegionFile, err = ReadChoice("Available regions", regions); err != nil {
				return err
			}
		}
	}
	if ReadYesNo("Export the index stack? [y/N]: ", false) {
		exporter, closeExporter, err := delivery.NewExporter(ctx, log, Out)
		if err != nil {
			return err
		}
		defer closeExporter()
		opts.Exporter = exporter
	}

	res, err := delivery.RunScene(ctx, opts)
	if err != nil {
		notification.SendDiscordErrorNotification(fmt.Sprintf("Salinity CLI\n\nError processing %s: %s", path, err))
		return err
	}
	msg := fmt.Sprintf("Indices computed for %s.\n Layers located at: %s", res.Scene, res.Manifest)
	if res.Export != nil {
		msg += fmt.Sprintf("\n Exported to: %s", res.Export.Key)
	}
	PrintSuccess(msg)
	return nil
}

func sceneStats(ctx context.Context, log logrus.FieldLogger) error {
	path, err := selectScene()
	if err != nil {
		return err
	}
	profile, err := selectProfile()
	if err != nil {
		return err
	}
	reportPath := properties.DataPath("reports", "index_stats.csv")
	if err := os.MkdirAll(properties.DataPath("reports"), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}
	res, err := delivery.RunScene(ctx, delivery.RunOptions{Scene: path, Profile: profile, Report: reportPath, Log: log})
	if err != nil {
		return err
	}
	for _, row := range res.Stats {
		fmt.Fprintf(Out, "%s%-5s valid %d/%d  min %.4f  max %.4f  mean %.4f  p2-p98 %.4f..%.4f%s\n",
			ColorGreen, row.Index, row.Valid, row.Pixels, row.Min, row.Max, row.Mean, row.P02, row.P98, ColorReset)
	}
	PrintSuccess("Statistics appended to " + reportPath)
	return nil
}

func listProfiles(context.Context, logrus.FieldLogger) error {
	var items []string
	for _, name := range config.Builtins() {
		p, err := config.Builtin(name)
		if err != nil {
			return err
		}
		items = append(items, fmt.Sprintf("%s: %s (%s)", p.Name, p.Description, strings.Join(p.Indices, ", ")))
	}
	PrintList("Available profiles", items)
	return nil
}

func listScenes(context.Context, logrus.FieldLogger) error {
	scenes, err := entries(properties.DataPath("scenes"), isScene)
	if err != nil {
		return err
	}
	PrintWarning("To add a scene, copy its GeoTIFF or extracted product folder to 'data/scenes'.")
	PrintList("Available scenes", scenes)
	return nil
}

func listRegions(context.Context, logrus.FieldLogger) error {
	regions, err := entries(properties.DataPath("geojsons"), isRegion)
	if err != nil {
		return err
	}
	PrintWarning("To add a region, add its '.geojson' file at 'data/geojsons' folder.")
	PrintList("Available regions", regions)
	return nil
}
