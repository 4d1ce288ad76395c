package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/mailfeed/internal/secrets"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an encryption key for tokens at rest",
		Long: `Generate a random AES-256 key, base64 encoded, suitable for the
--encryption-key flag or the MAILFEED_ENCRYPTION_KEY environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secrets.GenerateEncryptionKey()
			if err != nil {
				return fmt.Errorf("generating key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), secrets.EncryptionKeyToBase64(key))
			return nil
		},
	}
}
