package vision

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// DescriptorDim is the length of the face descriptor produced by the default
// model bundle. Stored descriptors are validated against this on load.
const DescriptorDim = 128

//go:embed models.yaml
var modelsYAML []byte

// ModelManifest lists the model files the embedding service must have loaded
// before the scanner can start.
type ModelManifest struct {
	Bundle string   `yaml:"bundle"`
	Models []string `yaml:"models"`
}

// LoadManifest parses the embedded model manifest.
func LoadManifest() (*ModelManifest, error) {
	var m ModelManifest
	if err := yaml.Unmarshal(modelsYAML, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded models.yaml: %w", err)
	}
	if len(m.Models) == 0 {
		return nil, fmt.Errorf("model manifest lists no models")
	}
	return &m, nil
}

// modelsResponse represents the response from the service's models endpoint.
type modelsResponse struct {
	Status string   `json:"status"`
	Models []string `json:"models"`
}

// Warmup verifies the embedding service is reachable and has every model from
// the manifest loaded. A missing model or unreachable service is fatal to
// scanner startup and must be reported as the model-loading phase failing.
func (c *Client) Warmup(ctx context.Context) error {
	manifest, err := LoadManifest()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding service error (status %d): %s", resp.StatusCode, string(body))
	}

	var mr modelsResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return fmt.Errorf("failed to parse models response: %w", err)
	}

	loaded := make(map[string]bool, len(mr.Models))
	for _, m := range mr.Models {
		loaded[m] = true
	}
	for _, required := range manifest.Models {
		if !loaded[required] {
			return fmt.Errorf("model %q from bundle %q is not loaded", required, manifest.Bundle)
		}
	}

	return nil
}
