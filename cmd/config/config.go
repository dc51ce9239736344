package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	parseSyncConfig               = config.ParseSync
	writeSyncConfig               = config.WriteSync
	getWorkingDirectory           = os.Getwd
)

const (
	defaultInterval = "60"
	defaultLogFile  = "~/foldersync.log"
)

type cliOptions struct {
	path     string
	source   string
	replica  string
	interval string
	logFile  string
	digest   string
	watch    bool
}

// New creates a new `config` command.
func New() *cobra.Command {
	var opts cliOptions
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the foldersync config file",
		Long: "Write the settings used by `foldersync sync` when it's run " +
			"without arguments.\nSettings that aren't passed as flags are " +
			"prompted for.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(opts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.path, "path", config.DefaultSyncConfigPath,
		"Path of the config file.")
	cmd.Flags().StringVar(&opts.source, "source", "", "Directory to mirror from.")
	cmd.Flags().StringVar(&opts.replica, "replica", "", "Directory to mirror into.")
	cmd.Flags().StringVar(&opts.interval, "interval", "", "Seconds to wait between syncs.")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "File that changes are appended to.")
	cmd.Flags().StringVar(&opts.digest, "digest", "", "Hash used to compare file contents.")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Sync as soon as the source changes.")

	// Setup the commands for querying the contents of the config.
	type getterSpec struct {
		use, short string
		fn         func(config.Sync) string
	}

	getters := []getterSpec{
		{
			use:   "get-source",
			short: "Get the configured source directory",
			fn:    func(cfg config.Sync) string { return cfg.Source },
		},
		{
			use:   "get-replica",
			short: "Get the configured replica directory",
			fn:    func(cfg config.Sync) string { return cfg.Replica },
		},
		{
			use:   "get-log-file",
			short: "Get the configured log file",
			fn:    func(cfg config.Sync) string { return cfg.LogFile },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseSyncConfig(opts.path)
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig fills in whatever `opts` is missing by prompting, and writes
// the result.
func SetupConfig(opts cliOptions) error {
	cfg, err := generateConfig(opts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeSyncConfig(opts.path, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	path, err := config.ExpandPath(opts.path)
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func intervalValidationFn(value string) (string, bool) {
	if _, err := config.ParseInterval(value); err != nil {
		return "The interval must be a whole number of seconds, such as 60.", false
	}
	return "", true
}

func digestValidationFn(value string) (string, bool) {
	if _, err := sync.ParseDigest(value); err != nil {
		return err.Error(), false
	}
	return "", true
}

func nonEmptyValidationFn(value string) (string, bool) {
	if value == "" {
		return "A value is required.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer string
	field                             *string
	validationFn                      func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the desired
// configuration is. The current config, if there is one, provides the
// defaults.
func generateConfig(opts cliOptions) (config.Sync, error) {
	currConfig, err := parseSyncConfig(opts.path)
	if err != nil {
		currConfig = config.Sync{}
		log.WithError(err).Debug("Failed to read current config")
	}

	defaults := cliOptions{
		source:   currConfig.Source,
		replica:  currConfig.Replica,
		interval: defaultInterval,
		logFile:  defaultLogFile,
		digest:   string(sync.SHA512),
	}
	if currConfig.Interval != nil {
		defaults.interval = strconv.Itoa(*currConfig.Interval)
	}
	if currConfig.LogFile != "" {
		defaults.logFile = currConfig.LogFile
	}
	if currConfig.Digest != "" {
		defaults.digest = currConfig.Digest
	}
	if defaults.source == "" {
		if wd, err := getWorkingDirectory(); err == nil {
			defaults.source = wd
		} else {
			log.WithError(err).Info("Failed to guess source directory")
		}
	}

	answers := opts
	prompts := []prompt{
		{
			helpString:    "Enter the directory to mirror from.",
			prompt:        "Source directory",
			defaultAnswer: defaults.source,
			field:         &answers.source,
			validationFn:  nonEmptyValidationFn,
		},
		{
			helpString: "Enter the directory to mirror into.\n" +
				"Anything in it that isn't in the source directory will be deleted.",
			prompt:        "Replica directory",
			defaultAnswer: defaults.replica,
			field:         &answers.replica,
			validationFn:  nonEmptyValidationFn,
		},
		{
			helpString:    "Enter how many seconds to wait after one sync finishes before starting the next.",
			prompt:        "Interval",
			defaultAnswer: defaults.interval,
			field:         &answers.interval,
			validationFn:  intervalValidationFn,
		},
		{
			helpString:    "Enter the file that every change is appended to.",
			prompt:        "Log file",
			defaultAnswer: defaults.logFile,
			field:         &answers.logFile,
			validationFn:  nonEmptyValidationFn,
		},
	}

	stdinReader := bufio.NewReader(stdin)
	for _, prompt := range prompts {
		if *prompt.field != "" {
			if msg, ok := prompt.validationFn(*prompt.field); !ok {
				return config.Sync{}, errors.New("%s: %s", prompt.prompt, msg)
			}
			continue
		}

		for {
			resp, err := promptUser(stdinReader, prompt.helpString, prompt.prompt, prompt.defaultAnswer)
			if err != nil {
				return config.Sync{}, errors.WithContext(err, "read response")
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				*prompt.field = resp
				break
			}
			fmt.Fprintln(stdout, validationErr)
		}
	}

	digest := answers.digest
	if digest == "" {
		digest = defaults.digest
	}
	if msg, ok := digestValidationFn(digest); !ok {
		return config.Sync{}, errors.New("%s", msg)
	}

	// The interval was validated above.
	interval, _ := config.ParseInterval(answers.interval)
	return config.Sync{
		Source:   answers.source,
		Replica:  answers.replica,
		Interval: &interval,
		LogFile:  answers.logFile,
		Watch:    answers.watch || currConfig.Watch,
		Digest:   digest,
	}, nil
}

// promptUser asks for a single value. An empty response picks the default
// answer, if there is one.
func promptUser(in *bufio.Reader, helpString, prompt, defaultAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, helpString)
	if defaultAnswer != "" {
		fmt.Fprintf(stdout, "%s [%s]: ", prompt, defaultAnswer)
	} else {
		fmt.Fprintf(stdout, "%s: ", prompt)
	}

	resp, err := in.ReadString('\n')
	if err != nil && !(err == io.EOF && resp != "") {
		return "", err
	}

	resp = strings.TrimSpace(resp)
	if resp == "" {
		return defaultAnswer, nil
	}
	return resp, nil
}
