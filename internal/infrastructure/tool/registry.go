package tool

import (
	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/catalog"
	domaintool "github.com/reelchat/reelchat/internal/domain/tool"
)

// RegisterMovieTools registers the catalog tools offered to the agent.
// This is the only tool registration entry point.
func RegisterMovieTools(registry domaintool.Registry, c catalog.Catalog, logger *zap.Logger) int {
	tools := []domaintool.Tool{
		NewSearchMoviesTool(c, logger),
		NewDiscoverMoviesTool(c, logger),
		NewTrendingMoviesTool(c, logger),
		NewMovieGenresTool(c, logger),
	}

	registered := 0
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			logger.Warn("Failed to register tool",
				zap.String("tool", t.Name()),
				zap.Error(err),
			)
			continue
		}
		registered++
	}

	logger.Info("Tool layer initialized", zap.Int("total_registered", registered))
	return registered
}
