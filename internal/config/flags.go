package config

import "github.com/spf13/pflag"

var flags = pflag.NewFlagSet("lithicmark", pflag.ContinueOnError)

var (
	flagConfig      = flags.String("config", "", "Path to config file")
	flagDebug       = flags.Bool("debug", false, "Enable debug logging")
	flagLogFile     = flags.String("log-file", "", "Write logs to this file")
	flagAutoSegment = flags.String("auto-segment", "", "Re-segment after each edit (true|false)")
	flagHistorySize = flags.Int("history-size", 0, "Max undoable actions")
	flagServer      = flags.String("server", "", "Inference server URL")
	flagAPIKey      = flags.String("api-key", "", "Inference server API key")
)

// Flags returns the flag set to attach to the root command.
func Flags() *pflag.FlagSet {
	return flags
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	switch *flagAutoSegment {
	case "true":
		cfg.Annotation.AutoSegment = true
	case "false":
		cfg.Annotation.AutoSegment = false
	}
	if *flagHistorySize > 0 {
		cfg.Annotation.HistorySize = *flagHistorySize
	}
	if *flagServer != "" {
		cfg.Inference.ServerURL = *flagServer
	}
	if *flagAPIKey != "" {
		cfg.Inference.APIKey = *flagAPIKey
	}
}
