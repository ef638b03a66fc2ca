package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chapelsoftware/go-imacros/internal/crypt"
)

var legacyFormat bool

var encryptCmd = &cobra.Command{
	Use:   "encrypt <text>",
	Short: "Encrypt a value for use in macros",
	Long: `Encrypt a value with a password, producing the format ONLOGIN and
friends decrypt at playback time with !ENCRYPTIONKEY.

The default output is the modern Base64 CBC format; --legacy produces
the old uppercase-hex ECB form for macros that still carry it.

Examples:
  imacros encrypt --password master s3cret
  imacros encrypt --password master --legacy s3cret`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		var out string
		var err error
		if legacyFormat {
			out, err = crypt.EncryptLegacy(args[0], password)
		} else {
			out, err = crypt.Encrypt(args[0], password)
		}
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <text>",
	Short: "Decrypt an encrypted macro value",
	Long: `Decrypt a value produced by encrypt, in either format. The format is
detected from the input shape.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		out, err := crypt.Decrypt(args[0], password)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)

	encryptCmd.Flags().String("password", "", "encryption password")
	encryptCmd.Flags().BoolVar(&legacyFormat, "legacy", false, "produce the legacy uppercase-hex ECB format")
	_ = encryptCmd.MarkFlagRequired("password")
	decryptCmd.Flags().String("password", "", "encryption password")
	_ = decryptCmd.MarkFlagRequired("password")
}
