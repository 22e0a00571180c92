package main

import (
	"github.com/spf13/cobra"

	"github.com/quickwritereader/attrscope/config"
	"github.com/quickwritereader/attrscope/logger"
	"github.com/quickwritereader/attrscope/scope"
)

var (
	configPath string
	logLevel   string
	inFormat   string
	outFormat  string
	rootClass  string

	cfg = config.Default()

	rootCmd = &cobra.Command{
		Use:   "scopetool",
		Short: "Inspect and convert attributed scope table documents",
		Long: `scopetool loads table documents (JSON or msgpack) into scope trees,
validates them against the registered node classes and re-encodes them.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	dumpCmd = &cobra.Command{
		Use:   "dump <file>",
		Short: "Load a document and print its scope tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}

	convertCmd = &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Re-encode a document between JSON and msgpack",
		Args:  cobra.ExactArgs(2),
		RunE:  runConvert,
	}

	validateCmd = &cobra.Command{
		Use:   "validate <file>...",
		Short: "Load documents and report the first error in each",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runValidate,
	}

	classesCmd = &cobra.Command{
		Use:   "classes",
		Short: "List the node classes documents can instantiate",
		Args:  cobra.NoArgs,
		RunE:  runClasses,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides the config")
	rootCmd.PersistentFlags().StringVar(&inFormat, "from", "", "input format: auto, json or msgpack")
	rootCmd.PersistentFlags().StringVar(&rootClass, "class", "", "class of the root node")
	convertCmd.Flags().StringVar(&outFormat, "to", "", "output format: json or msgpack (default from the output file name)")

	rootCmd.AddCommand(dumpCmd, convertCmd, validateCmd, classesCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if inFormat != "" {
		loaded.Input.Format = inFormat
	}
	if rootClass != "" {
		loaded.Input.Class = rootClass
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger.InitWithOutput(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	scope.SetDefaultBucketCount(cfg.Containers.Buckets)
	logger.Log.WithField("config", configPath).Debug("configuration loaded")
	return nil
}
