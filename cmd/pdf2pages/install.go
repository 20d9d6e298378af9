package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2pages/internal/provision"
	"github.com/pdiddy/pdf2pages/internal/secrets"
	"github.com/pdiddy/pdf2pages/pkg/types"
)

var installCmd = &cobra.Command{
	Use:   "install-poppler",
	Short: "Download a private poppler build into ./poppler",
	Long: `Downloads a prebuilt poppler release and unpacks it into <dir>/poppler,
where the convert command looks for pdftoppm before falling back to PATH.

The default release is a Windows build. On other systems install
poppler-utils with the package manager, or pass --url to a zip archive.
A GitHub token in .secrets/github-token is sent when present.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	f := installCmd.Flags()
	f.String("dir", ".", "directory under which poppler/ is created")
	f.String("url", provision.DefaultReleaseURL, "poppler release zip to download")
	f.Duration("timeout", 0, "HTTP timeout for the download (0 means none)")
	f.Int("max-retries", 5, "retries on 429/502/503/504 responses")

	bindFlags(f, "dir", "url", "timeout", "max-retries")

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg := types.ProvisionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: "pdf2pages/" + version,
		},
		ReleaseURL: viper.GetString("url"),
		InstallDir: viper.GetString("dir"),
		Token:      loadedSecrets.Get(secrets.GitHubToken),
		MaxRetries: viper.GetInt("max-retries"),
	}

	client := &http.Client{Timeout: cfg.Timeout}
	dir, err := provision.NewInstaller(client, cfg, cmd.OutOrStdout()).Install(cmd.Context())
	if err != nil {
		return fmt.Errorf("installing poppler: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Use --poppler-path %s, or run pdf2pages from %s.\n", dir, cfg.InstallDir)
	return nil
}
