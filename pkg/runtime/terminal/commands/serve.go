package commands

import (
	"fmt"
	"os"

	"github.com/de-tools/deploy-gate/pkg/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type ServeCmd struct {
	buildDir string
	addr     string
}

// NewServeCmd serves a build directory locally with SPA fallback and
// the audited security headers, so probes can run before deploying.
func NewServeCmd() *cobra.Command {
	sc := &ServeCmd{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a build directory locally for pre-deploy probing",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.buildDir, "build-dir", "", "Path to the build output directory")
	cmd.Flags().StringVar(&sc.addr, "addr", "127.0.0.1:8790", "Listen address")
	_ = cmd.MarkFlagRequired("build-dir")

	return cmd
}

func (sc *ServeCmd) run(cmd *cobra.Command, args []string) error {
	info, err := os.Stat(sc.buildDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("build directory %s does not exist", sc.buildDir)
	}

	logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()
	preview := server.NewPreview(logger, server.Config{
		Addr:     sc.addr,
		BuildDir: sc.buildDir,
	})
	return preview.Start()
}
