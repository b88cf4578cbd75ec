package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/genlayer/glvault/pkg/client"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a key manifest file",
	Long: `Apply API-key definitions from a YAML manifest.

Each document describes one key. New aliases are registered; existing
aliases are rotated to the manifest's credential.

Examples:
  # Apply a single key
  glvault apply -f weather-key.yaml

  # Apply a batch of keys
  glvault apply -f team-keys.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// KeyManifest is one YAML document in an apply file.
type KeyManifest struct {
	APIVersion string      `yaml:"apiVersion"`
	Kind       string      `yaml:"kind"`
	Metadata   KeyMetadata `yaml:"metadata"`
	Spec       KeySpec     `yaml:"spec"`
}

type KeyMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

type KeySpec struct {
	APIKey     string `yaml:"apiKey"`
	BaseURL    string `yaml:"baseUrl"`
	QuotaLimit int64  `yaml:"quotaLimit,omitempty"`
	Owner      string `yaml:"owner,omitempty"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	a, ctx, cancel, err := admin()
	if err != nil {
		return err
	}
	defer cancel()

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %v", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	applied := 0
	for {
		var manifest KeyManifest
		if err := decoder.Decode(&manifest); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to parse manifest: %v", err)
		}
		if manifest.Kind != "APIKey" {
			return fmt.Errorf("unsupported resource kind: %s", manifest.Kind)
		}
		if manifest.Metadata.Name == "" || manifest.Spec.APIKey == "" {
			return fmt.Errorf("manifest requires metadata.name and spec.apiKey")
		}

		_, err := a.Register(ctx, client.RegisterRequest{
			Alias:      manifest.Metadata.Name,
			APIKey:     manifest.Spec.APIKey,
			BaseURL:    manifest.Spec.BaseURL,
			QuotaLimit: manifest.Spec.QuotaLimit,
			Owner:      manifest.Spec.Owner,
		})
		switch {
		case err == nil:
			fmt.Printf("✓ Registered %s\n", manifest.Metadata.Name)
		case isConflict(err):
			if _, err := a.Rotate(ctx, manifest.Metadata.Name, manifest.Spec.APIKey); err != nil {
				return fmt.Errorf("failed to rotate %s: %v", manifest.Metadata.Name, err)
			}
			fmt.Printf("✓ Rotated %s\n", manifest.Metadata.Name)
		default:
			return fmt.Errorf("failed to register %s: %v", manifest.Metadata.Name, err)
		}
		applied++
	}

	fmt.Printf("Applied %d key(s)\n", applied)
	return nil
}

func isConflict(err error) bool {
	var apiErr *client.Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}
