package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xacmlgo/pdp/internal/config"
)

var configInitOut string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default pdpd.yaml to disk",
	Long: `Writes a pdpd.yaml populated with this build's default values (the
same defaults PDPConfig.SetDefaults applies at load time), so an operator
can start from a working file and edit it rather than assembling one from
the documentation.

This is a local scaffolding convenience, not a substitute for
config.LoadConfig's env/flag layering: the file it writes still goes
through the normal viper + validator pipeline on the next "pdpd serve".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.PDPConfig{}
		cfg.SetDefaults()
		cfg.Policy.Dirs = []string{"./policies"}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal default config: %w", err)
		}

		header := "# pdpd configuration.\n" +
			"# Generated by `pdpd config init`; every value here is this build's default.\n" +
			"# Override with environment variables using the PDPD_ prefix, e.g. PDPD_SERVER_HTTP_ADDR.\n\n"

		path := configInitOut
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; remove it or pass --out to write elsewhere", path)
		}
		if err := os.WriteFile(path, []byte(header+string(out)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitOut, "out", "pdpd.yaml", "path to write the generated config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
