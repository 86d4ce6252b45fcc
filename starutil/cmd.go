/*
Copyright © 2024 the STAR authors.
This file is part of STAR.

STAR is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

STAR is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with STAR.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package starutil wires the STAR threat engine into a command-line
// interface.
package starutil

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	star "github.com/quantifyearth/STAR"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var logger *logrus.Logger

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	logger = logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	Cfg = viper.New()
	Cfg.SetEnvPrefix("STAR")
	Cfg.AutomaticEnv()

	// Options are the configuration options available to STAR.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "species",
			usage: `
              species specifies the single-species GeoJSON summary record
              containing the taxon id, category weight, and threat list.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{decomposeCmd.Flags()},
		},
		{
			name: "habitat",
			usage: `
              habitat specifies the species' area-of-habitat GeoTIFF. An
              optional sidecar file at the same path with a .json extension
              may carry a precomputed aoh_total.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{decomposeCmd.Flags()},
		},
		{
			name: "input",
			usage: `
              input specifies the directory holding the per-species
              per-threat contribution rasters to be aggregated, or the
              directory of taxa folders for task generation.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags(), tasksCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output specifies where results are written: a directory for
              decompose and aggregate, a CSV file path for tasks.`,
			defaultVal: "",
			flagsets: []*pflag.FlagSet{decomposeCmd.Flags(),
				aggregateCmd.Flags(), tasksCmd.Flags()},
		},
		{
			name: "datadir",
			usage: `
              datadir specifies the data directory holding the aohs/ and
              threat_rasters/ trees used to pair species with rasters.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{tasksCmd.Flags()},
		},
		{
			name: "workers",
			usage: `
              workers specifies how many parallel accumulators each raster
              summation uses. The default 0 means half the available CPUs.`,
			shorthand:  "j",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "gdalcachemax",
			usage: `
              gdalcachemax specifies the GDAL raster block cache size in
              megabytes.`,
			defaultVal: 32,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	for _, option := range options {
		for _, set := range option.flagsets {
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(decomposeCmd)
	Root.AddCommand(aggregateCmd)
	Root.AddCommand(tasksCmd)
}

// GetInt returns an integer option value from the configuration,
// coercing string values that arrive through environment variables.
func GetInt(varName string, cfg *viper.Viper) int {
	return cast.ToInt(cfg.Get(varName))
}

// setConfig finds and reads in the configuration file, if there is
// one, and applies the GDAL cache limit.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("star: problem reading configuration file: %v", err)
		}
	}
	// GDAL reads this at driver registration time.
	os.Setenv("GDAL_CACHEMAX", fmt.Sprintf("%d", GetInt("gdalcachemax", Cfg)))
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "star",
	Short: "Global threat attribution for the STAR extinction-risk metric.",
	Long: `star splits each species' area-of-habitat raster into per-threat
contribution rasters and aggregates them up the IUCN threat-code
hierarchy into global threat-attribution maps.

Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the
format 'STAR_var' where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Option names are shared across subcommands but viper keeps
		// only one binding per key, so rebind the executing command's
		// own flags before reading any of them.
		if err := Cfg.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		return setConfig()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of STAR.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("STAR v%s\n", star.Version)
	},
	DisableAutoGenTag: true,
}

// decomposeCmd splits one species' habitat raster into per-threat
// contribution rasters.
var decomposeCmd = &cobra.Command{
	Use:   "decompose",
	Short: "Calculate per-threat rasters for one species.",
	Long: `decompose reads a single species' summary record and area-of-habitat
raster and writes one contribution raster per threat code to
{output}/{code}/{taxon_id}.tif. The contributions are weighted so
that together they sum to the species' full STAR score.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		species, err := checkInputFile(Cfg.GetString("species"), "species")
		if err != nil {
			return err
		}
		habitat, err := checkInputFile(Cfg.GetString("habitat"), "habitat")
		if err != nil {
			return err
		}
		output, err := checkOutputDir(Cfg.GetString("output"))
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"species": species,
			"habitat": habitat,
		}).Info("decomposing species threats")
		return star.DecomposeFile(species, habitat, output)
	},
	DisableAutoGenTag: true,
}

// aggregateCmd runs the three-level hierarchical summation.
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate per-species threat rasters up the hierarchy.",
	Long: `aggregate sums the per-species per-threat rasters under the input
directory into level-2, level-1, and level-0 threat totals under the
output directory. Aggregation stops at the first failure; no partial
bucket output is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := checkInputDir(Cfg.GetString("input"))
		if err != nil {
			return err
		}
		output, err := checkOutputDir(Cfg.GetString("output"))
		if err != nil {
			return err
		}
		workers := checkWorkers(GetInt("workers", Cfg))
		logger.WithFields(logrus.Fields{
			"input":   input,
			"workers": workers,
		}).Info("aggregating threat rasters")
		return star.Summation(input, output, workers)
	},
	DisableAutoGenTag: true,
}

// tasksCmd generates the batch task list pairing species records
// with their habitat rasters.
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Generate the per-species decompose task list.",
	Long: `tasks walks a directory of taxa folders holding per-species GeoJSON
records, pairs each record with its area-of-habitat raster under the
data directory, and writes a CSV of decompose invocations for batch
orchestration. Species without a raster are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := checkInputDir(Cfg.GetString("input"))
		if err != nil {
			return err
		}
		datadir, err := checkInputDir(Cfg.GetString("datadir"))
		if err != nil {
			return err
		}
		output, err := checkOutputFile(Cfg.GetString("output"))
		if err != nil {
			return err
		}
		n, err := WriteTaskList(input, datadir, output)
		if err != nil {
			return err
		}
		logger.WithField("tasks", n).Info("wrote task list")
		return nil
	},
	DisableAutoGenTag: true,
}
