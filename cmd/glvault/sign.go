package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/genlayer/glvault/pkg/auth"
	"github.com/genlayer/glvault/pkg/security"
	"github.com/genlayer/glvault/pkg/types"
)

var signCmd = &cobra.Command{
	Use:   "sign ALIAS METHOD PATH",
	Short: "Compute a relay request signature (debugging aid)",
	Long: `Compute the canonical payload and HMAC signature for a relay request,
printing a ready-to-send JSON body. Useful for exercising a vault with
curl or diagnosing signature mismatches in a caller implementation.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			return fmt.Errorf("--secret is required (or set HMAC_SECRET)")
		}

		nonce, err := security.NewNonce()
		if err != nil {
			return fmt.Errorf("failed to generate nonce: %v", err)
		}

		req := &types.RelayRequest{
			Alias:     args[0],
			Method:    args[1],
			Path:      args[2],
			Timestamp: time.Now().UnixMilli(),
			Nonce:     nonce,
		}
		sig := auth.SignRequest(req, []byte(secret))

		fmt.Printf("payload:   %s\n", auth.CanonicalPayload(req.Alias, req.Method, req.Path, req.Timestamp, req.Nonce))
		fmt.Printf("signature: %s\n", sig)
		fmt.Printf("body:      {\"alias\":%q,\"path\":%q,\"method\":%q,\"timestamp\":%d,\"nonce\":%q}\n",
			req.Alias, req.Path, req.Method, req.Timestamp, req.Nonce)
		return nil
	},
}

func init() {
	signCmd.Flags().String("secret", os.Getenv("HMAC_SECRET"), "HMAC secret to sign with")
}
