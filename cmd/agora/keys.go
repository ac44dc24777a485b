package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/suyogster/agora-scores/crypto"
)

type keyArguments struct {
	Key       string
	Validator bool
}

var keygenArgs keyArguments

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an account key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKey(keygenArgs.Key)
		if err != nil {
			return err
		}
		fmt.Printf("key: %s\naddress: %s\n", keygenArgs.Key, key.Address().Hex())
		return nil
	},
}

var pubkeyArgs keyArguments

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Show the public key and address of an account or validator key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pubkeyArgs.Validator {
			vk, err := crypto.LoadValidatorKey(pubkeyArgs.Key)
			if err != nil {
				return err
			}
			fmt.Println(vk)
			return nil
		}
		key, err := crypto.LoadKey(pubkeyArgs.Key)
		if err != nil {
			return err
		}
		fmt.Printf("pubkey: %s\naddress: %s\n", hex.EncodeToString(key.PublicKey()), key.Address().Hex())
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVarP(&keygenArgs.Key, "out", "o", "./account_priv_key", "output key path")
	keyFlag(pubkeyCmd, &pubkeyArgs.Key)
	pubkeyCmd.Flags().BoolVar(&pubkeyArgs.Validator, "validator", false, "read a priv_validator_key.json instead of an account key")
}
