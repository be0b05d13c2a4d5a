package cmd

import (
	"fmt"

	"github.com/chaos-io/bgremove/config"
	"github.com/chaos-io/bgremove/rembg"
)

func newBackend(cfg *config.Config) (rembg.Backend, error) {
	switch cfg.Backend {
	case config.BackendONNX:
		return rembg.NewONNX(rembg.ONNXConfig{
			ModelDir:       cfg.ModelDir,
			LibraryPath:    cfg.ONNXRuntimeLib,
			IntraOpThreads: cfg.IntraOpThreads,
		}), nil
	case config.BackendRemote:
		return rembg.NewRemote(cfg.RemoteURL, cfg.RemoteTimeout), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
