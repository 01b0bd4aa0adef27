// Command madeproof is the operator CLI: key generation, local attestation and receipt
// verification.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "madeproof",
		Short: "Ephemeral document extraction with signed deletion receipts",
		Long: `madeproof extracts text from a document, destroys the bytes, and signs a
receipt attesting to the deletion. Signing keys are read from MP_SIGN_PRIV and
MP_SIGN_PUB (or a .env file).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("madeproof version %s\n", version)
		},
	})
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newAttestCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newPubkeyCmd())
	return rootCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
