package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "linkedin-applier"

	exitOK      = 0
	exitFailure = 1
	exitRateCap = 3
)

// ErrRateCap is returned by run when an application cap ended the session.
var ErrRateCap = errors.New("application cap reached")

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         app + " searches LinkedIn for Easy Apply jobs and applies to the ones that match your criteria",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Environment variables bound to config keys.
var envBindings = map[string]string{
	"linkedin.email":    "LINKEDIN_EMAIL",
	"linkedin.password": "LINKEDIN_PASSWORD",
	"ai.gemini.api-key": "GEMINI_API_KEY",
	"ai.ollama.url":     "OLLAMA_URL",
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps the result of Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrRateCap):
		return exitRateCap
	default:
		return exitFailure
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is "+app+".yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().Bool("headless", false, "run the browser without a window")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("browser.headless", rootCmd.PersistentFlags().Lookup("headless"))
}

func initConfig() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	// Only commands working with the bot need the config file.
	if !needsConfig() {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Fatalf("%s.yaml not found in the current directory, create one with `%s init`", app, app)
		}
		log.Fatal(err)
	}
}

func needsConfig() bool {
	for _, c := range []*cobra.Command{runCmd, searchCmd, ledgerStatsCmd, ledgerExportCmd, ledgerPurgeCmd} {
		if c.CalledAs() != "" {
			return true
		}
	}
	return false
}
