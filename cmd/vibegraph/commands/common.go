package commands

import (
	"github.com/spf13/cobra"

	"github.com/vibecheck/vibegraph/archive"
	"github.com/vibecheck/vibegraph/client"
	"github.com/vibecheck/vibegraph/config"
	"github.com/vibecheck/vibegraph/errors"
	"github.com/vibecheck/vibegraph/logger"
)

// loadConfig loads the vibegraph configuration for a command run
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading configuration")
	}
	return cfg, nil
}

// newClient builds the REST client from configuration
func newClient(cfg *config.Config) *client.Client {
	return client.New(cfg.Server)
}

// openArchive opens the local run archive, or returns nil when no archive
// path is configured.
func openArchive(cfg *config.Config) (*archive.Archive, error) {
	if cfg.Archive.Path == "" {
		return nil, nil
	}
	return archive.Open(cfg.Archive.Path, logger.Logger)
}

// verbosity reads the accumulated -v count from the command chain
func verbosity(cmd *cobra.Command) int {
	count, _ := cmd.Flags().GetCount("verbose")
	return count
}
