package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zepben/eas-go/internal/config"
	"github.com/zepben/eas-go/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage easctl configuration",
	Long:  `Read and write easctl configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Edit it and set your host (and access_token or client credentials) to get started.")
		return nil
	},
}

var configGetShowSecrets bool

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Flags{
			Host:        globalFlags.Host,
			Port:        globalFlags.Port,
			AccessToken: globalFlags.AccessToken,
		})
		if err != nil {
			return err
		}

		token := cfg.RedactedToken()
		if configGetShowSecrets {
			token = cfg.AccessToken
		}
		if token == "" {
			token = "(not set)"
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		auth := "none"
		switch {
		case cfg.AccessToken != "":
			auth = "access token"
		case cfg.HasCredentials():
			auth = "oauth client credentials"
		}

		format := resolveFormat(cfg.Format)
		if format == render.FormatJSON {
			type configOut struct {
				Host          string `json:"host"`
				Port          int    `json:"port"`
				Protocol      string `json:"protocol"`
				AccessToken   string `json:"access_token"`
				Auth          string `json:"auth"`
				TokenEndpoint string `json:"token_endpoint,omitempty"`
				CAFile        string `json:"ca_file,omitempty"`
				Timeout       string `json:"timeout"`
				Format        string `json:"default_format"`
				DBPath        string `json:"db_path"`
				ConfigFile    string `json:"config_file"`
			}
			return render.JSON(cmd.OutOrStdout(), configOut{
				Host:          cfg.Host,
				Port:          cfg.Port,
				Protocol:      cfg.Protocol,
				AccessToken:   token,
				Auth:          auth,
				TokenEndpoint: cfg.TokenEndpoint,
				CAFile:        cfg.CAFile,
				Timeout:       cfg.Timeout.String(),
				Format:        cfg.Format,
				DBPath:        cfg.DBPath,
				ConfigFile:    src,
			})
		}

		render.KeyValue(cmd.OutOrStdout(), [][2]string{
			{"Host", cfg.Host},
			{"Port", fmt.Sprintf("%d", cfg.Port)},
			{"Protocol", cfg.Protocol},
			{"Auth", auth},
			{"Access Token", token},
			{"Token Endpoint", cfg.TokenEndpoint},
			{"CA File", cfg.CAFile},
			{"Timeout", cfg.Timeout.String()},
			{"Format", cfg.Format},
			{"DB Path", cfg.DBPath},
			{"Config File", src},
		})
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path of the config.json in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Flags{})
		if err != nil {
			return err
		}
		if cfg.ConfigPath == "" {
			return fmt.Errorf("no config.json found in the current directory")
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.ConfigPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)

	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "print the access token in plain text")
}
