package cmd

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/spf13/cobra"
)

var hashAdminKeyCmd = &cobra.Command{
	Use:   "hash-admin-key [token]",
	Short: "Generate an Argon2id hash for an admin API token",
	Long: `Generate an Argon2id hash of an admin bearer token, for use in
admin.api_key_hash.

The output is the standard Argon2id encoded hash string (algorithm,
version, parameters, salt, and digest all inline). Paste it directly
into pdpd.yaml's admin.api_key_hash field; the cleartext token itself
is never stored anywhere.

Example:
  pdpd hash-admin-key "my-admin-token"

Security note: the token will appear in shell history. Consider an
environment variable instead:
  pdpd hash-admin-key "$PDPD_ADMIN_TOKEN"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := argon2id.CreateHash(args[0], argon2id.DefaultParams)
		if err != nil {
			return fmt.Errorf("hash admin key: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashAdminKeyCmd)
}
