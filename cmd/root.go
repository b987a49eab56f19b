// file: cmd/root.go
// version: 1.0.0
// guid: 4d9c2f70-8b35-4e61-a0d8-c5f1e7b2936a

package cmd

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/jdfalk/matchwell/internal/config"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var databasePath string
var databaseType string
var trustedIPsFile string
var disableIPRateLimit bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "matchwell",
	Short: "Dating application API server",
	Long: `Matchwell serves the HTTP API of a dating application: OTP-based
onboarding, profile and preference management, tiered prospect search,
and moderation actions.`,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.InitializeStore(config.AppConfig.DatabaseType, config.AppConfig.DatabasePath); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.CloseStore()

		fmt.Printf("Using database: %s (%s)\n", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)

		srv, err := server.NewServer(database.GlobalStore)
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}

		host, port := listenHostPort(config.AppConfig.ListenAddr)
		cfg := server.ServerConfig{
			Host:         host,
			Port:         port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = cmd.Flag("port").Value.String()
		}
		if cmd.Flags().Changed("host") {
			cfg.Host = cmd.Flag("host").Value.String()
		}
		if rt := cmd.Flag("read-timeout").Value.String(); rt != "" {
			if d, err := time.ParseDuration(rt); err == nil {
				cfg.ReadTimeout = d
			}
		}
		if wt := cmd.Flag("write-timeout").Value.String(); wt != "" {
			if d, err := time.ParseDuration(wt); err == nil {
				cfg.WriteTimeout = d
			}
		}
		if it := cmd.Flag("idle-timeout").Value.String(); it != "" {
			if d, err := time.ParseDuration(it); err == nil {
				cfg.IdleTimeout = d
			}
		}

		return srv.Start(cfg)
	},
}

// initDBCmd represents the init-db command
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema",
	Long:  `Create the database schema, wiping any existing rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.InitializeStore(config.AppConfig.DatabaseType, config.AppConfig.DatabasePath); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.CloseStore()

		if err := database.GlobalStore.Reset(); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}

		fmt.Printf("Database initialized: %s (%s)\n", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)
		return nil
	},
}

// listenHostPort splits the configured listen address into host and port.
// Unparsable addresses fall back to the historical defaults; the serve
// flags still override either half.
func listenHostPort(addr string) (string, string) {
	if host, port, err := net.SplitHostPort(addr); err == nil && port != "" {
		return host, port
	}
	return "localhost", "5000"
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.matchwell.yaml)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "matchwell.db", "path to database")
	rootCmd.PersistentFlags().StringVar(&databaseType, "db-type", "sqlite", "database type: sqlite (default) or pebble")
	rootCmd.PersistentFlags().StringVar(&trustedIPsFile, "trusted-ips", "", "file listing IPs exempt from rate limiting, one per line")
	rootCmd.PersistentFlags().BoolVar(&disableIPRateLimit, "disable-ip-rate-limit", false, "disable the coarse per-IP rate limit (trusted deployments only)")

	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("database_type", rootCmd.PersistentFlags().Lookup("db-type"))
	viper.BindPFlag("trusted_ips_file", rootCmd.PersistentFlags().Lookup("trusted-ips"))
	viper.BindPFlag("disable_ip_rate_limit", rootCmd.PersistentFlags().Lookup("disable-ip-rate-limit"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)

	serveCmd.Flags().String("port", "5000", "port to run the API server on")
	serveCmd.Flags().String("host", "localhost", "host to bind the API server to")
	serveCmd.Flags().String("read-timeout", "15s", "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().String("write-timeout", "15s", "write timeout (e.g. 15s, 1m)")
	serveCmd.Flags().String("idle-timeout", "60s", "idle timeout (e.g. 60s, 2m)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".matchwell")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	// Ensure database directory exists
	if databasePath != "" {
		dbDir := filepath.Dir(databasePath)
		if dbDir != "." {
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				fmt.Printf("Error creating database directory: %v\n", err)
			}
		}
	}

	config.InitConfig()
}
