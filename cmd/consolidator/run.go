package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/go-consolidator/internal/config"
	"github.com/askiada/go-consolidator/internal/logging"
	"github.com/askiada/go-consolidator/pkg/consolidator"
	"github.com/askiada/go-consolidator/pkg/drawer"
)

type runOptions struct {
	configFile      string
	format          string
	dotFile         string
	pipelineDotFile string
	top             int
}

// flagKeys maps configuration keys to the flags overriding them.
var flagKeys = map[string]string{
	"root":             "root",
	"threshold":        "threshold",
	"concurrency":      "concurrency",
	"exclude":          "exclude",
	"extensions":       "extensions",
	"parse_timeout":    "parse-timeout",
	"max_file_bytes":   "max-file-bytes",
	"annotations_file": "annotations",
	"log_level":        "log-level",
	"log_format":       "log-format",
}

func newRunCmd() *cobra.Command {
	v := config.New()
	def := config.Default()
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run [root]",
		Short: "Scan a workspace and print its clusters and consolidated workflows",
		Long: `Scan a workspace for pipeline descriptors and markdown runbooks, cluster the
overlapping ones and print the clusters and consolidated workflows as JSON or YAML.
Configuration comes from --config, CONSOLIDATOR_* environment variables and flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for key, name := range flagKeys {
				err := v.BindPFlag(key, cmd.Flags().Lookup(name))
				if err != nil {
					return errors.Wrapf(err, "unable to bind flag %s", name)
				}
			}
			if len(args) == 1 {
				v.Set("root", args[0])
			}
			if opts.configFile != "" {
				v.SetConfigFile(opts.configFile)
				err := v.ReadInConfig()
				if err != nil {
					return errors.Wrapf(err, "unable to read config file %s", opts.configFile)
				}
			}

			cfg, err := config.Decode(v)
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			return execute(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&opts.format, "format", "f", formatJSON, "output format: json or yaml")
	flags.StringVar(&opts.dotFile, "dot", "", "write the cluster diagram (DOT) to this file")
	flags.StringVar(&opts.pipelineDotFile, "pipeline-dot", "", "write the extraction stage diagram (DOT) to this file")
	flags.IntVar(&opts.top, "top", 0, "list the N most similar records of every record")

	flags.String("root", def.Root, "workspace root")
	flags.Float64("threshold", def.Threshold, "similarity needed to join two unclassified records")
	flags.Int("concurrency", def.Concurrency, "extraction and synthesis workers")
	flags.StringSlice("exclude", def.Exclude, "directory names to skip")
	flags.StringSlice("extensions", def.Extensions, "file extensions to scan")
	flags.Duration("parse-timeout", def.ParseTimeout, "per-file parse timeout, 0 disables it")
	flags.Int64("max-file-bytes", def.MaxFileBytes, "largest file parsed, 0 disables the limit")
	flags.String("annotations", def.AnnotationsFile, "YAML annotation file")
	flags.String("log-level", def.LogLevel, "debug, info, warn or error")
	flags.String("log-format", def.LogFormat, "text or json")

	return cmd
}

func execute(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, opts runOptions) error {
	if opts.format != formatJSON && opts.format != formatYAML {
		return errors.Errorf("unknown output format %q", opts.format)
	}

	var consOpts []consolidator.Option
	if opts.pipelineDotFile != "" {
		f, err := os.Create(opts.pipelineDotFile)
		if err != nil {
			return errors.Wrapf(err, "unable to create file %s", opts.pipelineDotFile)
		}
		defer f.Close()
		consOpts = append(consOpts, consolidator.WithPipelineOptions(drawer.PipelineDrawer(f)))
	}

	c, err := consolidator.New(cfg.Config, consOpts...)
	if err != nil {
		return err
	}
	res, err := c.Run(ctx)
	if err != nil {
		return err
	}

	if opts.dotFile != "" {
		err := writeClusterDiagram(opts.dotFile, res, cfg.Threshold)
		if err != nil {
			return err
		}
	}

	err = writeReport(stdout, opts.format, newReport(cfg.Root, res, opts.top))
	if err != nil {
		return err
	}
	printSummary(stderr, res)

	return nil
}

func writeClusterDiagram(path string, res *consolidator.Result, threshold float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", path)
	}
	defer f.Close()

	err = drawer.DrawClusters(f, res.Assignments, res.Matrix, threshold)
	if err != nil {
		return errors.Wrap(err, "unable to draw clusters")
	}

	return nil
}

func printSummary(w io.Writer, res *consolidator.Result) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	unknown := fmt.Sprintf("%d unknown", res.Stats.Unknown)
	if res.Stats.Unknown > 0 {
		unknown = yellow(unknown)
	}
	fmt.Fprintf(w, "%s %d files, %d clusters, %s %s\n",
		green("consolidated"),
		res.Stats.Files,
		res.Stats.Clusters,
		unknown,
		gray("("+res.Stats.Duration.Round(time.Millisecond).String()+")"),
	)
}
