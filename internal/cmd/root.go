// Package cmd provides the command-line interface for meshflash.
package cmd

import (
	"fmt"
	"os"

	"github.com/bryangrimes/node-cubelets/internal/config"
	"github.com/bryangrimes/node-cubelets/logging"
	"github.com/bryangrimes/node-cubelets/transport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information (set by main)
	version   string
	gitCommit string
	buildTime string

	// Global flags
	cfgFile    string
	jsonOutput bool

	// Resolved before every command runs
	cfg    *config.Config
	logger logging.Logger = logging.Nop
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "meshflash",
	Short: "Firmware upgrade tool for meshes of modular robot blocks",
	Long: `meshflash talks to the host block of a mesh over a serial port, or a
TCP or WebSocket bridge to one, and upgrades every block from CLASSIC
firmware to IMAGO firmware.

Commands:
  detect   - report the firmware generation of the host block
  upgrade  - upgrade the host and every block attached to it
  flash    - flash a single image onto one block
  inspect  - describe firmware images and the firmware catalog
  history  - show recorded upgrade sessions and flashes`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = c
		return setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information from main.
func SetVersionInfo(ver, commit, build string) {
	version = ver
	gitCommit = commit
	buildTime = build
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.meshflash.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (json, text)")
	pf.String("transport", config.TransportSerial, "link to the host block (serial, tcp, websocket)")
	pf.String("port", "", "serial port of the host block")
	pf.Int("baud", transport.DefaultBaudRate, "serial baud rate")
	pf.String("addr", "", "host:port of a TCP serial bridge")
	pf.String("url", "", "URL of a WebSocket serial bridge")
	pf.String("catalog", "", "firmware catalog manifest")
	pf.String("ledger", "", "flash history database (disabled when empty)")
	pf.BoolVar(&jsonOutput, "json", false, "write JSON lines to stdout instead of text")

	// Bind flags to viper
	bind := map[string]string{
		"log.level":     "log-level",
		"log.format":    "log-format",
		"transport":     "transport",
		"serial.port":   "port",
		"serial.baud":   "baud",
		"tcp.address":   "addr",
		"websocket.url": "url",
		"catalog":       "catalog",
		"ledger.path":   "ledger",
	}
	for key, flag := range bind {
		viper.BindPFlag(key, pf.Lookup(flag))
	}

	config.BindEnv(viper.GetViper())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".meshflash")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		os.Exit(1)
	}
}
