package cli

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"
)

func newDeviceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Device key tools for testing clients",
	}
	cmd.AddCommand(newKeygenCommand(), newSignCommand())
	return cmd
}

func newKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a secp256k1 device key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := secp256k1.GeneratePrivateKey()
			if err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "private_key: %s\n", hex.EncodeToString(priv.Serialize()))
			fmt.Fprintf(out, "public_key: %s\n", device.EncodePublicKey(priv))
			return nil
		},
	}
}

func newSignCommand() *cobra.Command {
	var (
		keyHex    string
		deviceID  string
		timestamp int64
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the challenge headers for a device request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.TrimSpace(keyHex))
			if err != nil || len(raw) != 32 {
				return fmt.Errorf("private key must be 32 hex encoded bytes")
			}
			priv := secp256k1.PrivKeyFromBytes(raw)

			ts := timestamp
			if ts == 0 {
				ts = time.Now().Unix()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", device.HeaderDeviceID, deviceID)
			fmt.Fprintf(out, "%s: %d\n", device.HeaderTimestamp, ts)
			fmt.Fprintf(out, "%s: %s\n", device.HeaderSignature, device.SignChallenge(priv, ts, deviceID))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyHex, "key", "", "hex encoded private key")
	cmd.Flags().StringVar(&deviceID, "device-id", "", "device id")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "challenge timestamp (defaults to now)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("device-id")
	return cmd
}
