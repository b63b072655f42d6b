package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func KeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a random ENCRYPTION_KEY and JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			encKey, err := randomBase64(32)
			if err != nil {
				return err
			}
			jwtSecret, err := randomBase64(48)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ENCRYPTION_KEY=%s\n", encKey)
			fmt.Fprintf(out, "JWT_SECRET=%s\n", jwtSecret)
			return nil
		},
	}
}

func randomBase64(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
