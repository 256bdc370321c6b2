package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/catalog"
	"github.com/reelchat/reelchat/internal/domain/service"
	domaintool "github.com/reelchat/reelchat/internal/domain/tool"
)

// Tool names as exposed to the model.
const (
	SearchMoviesToolName   = "searchMovies"
	DiscoverMoviesToolName = "discoverMovies"
	TrendingMoviesToolName = "trendingMovies"
	MovieGenresToolName    = "movieGenres"
)

// movieToolBase holds what every catalog tool needs.
type movieToolBase struct {
	catalog catalog.Catalog
	logger  *zap.Logger
}

// respond serializes a catalog result for the model. A lookup error still
// yields the (empty) payload, but the result is marked failed.
func (b movieToolBase) respond(ctx context.Context, name string, payload interface{}, lookupErr error) (*domaintool.Result, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", name, err)
	}

	result := &domaintool.Result{
		Output:  string(data),
		Success: lookupErr == nil,
	}
	if lookupErr != nil {
		traceID := service.TraceIDFromContext(ctx)
		result.Error = lookupErr.Error()
		result.Metadata = map[string]interface{}{"trace_id": traceID}
		b.logger.Warn("Catalog tool degraded to empty result",
			zap.String("tool", name),
			zap.String("trace_id", traceID),
			zap.Error(lookupErr),
		)
	}
	return result, nil
}

// SearchMoviesTool 按关键词搜索电影
type SearchMoviesTool struct{ movieToolBase }

// NewSearchMoviesTool creates the search tool.
func NewSearchMoviesTool(c catalog.Catalog, logger *zap.Logger) *SearchMoviesTool {
	return &SearchMoviesTool{movieToolBase{catalog: c, logger: logger}}
}

func (t *SearchMoviesTool) Name() string          { return SearchMoviesToolName }
func (t *SearchMoviesTool) Kind() domaintool.Kind { return domaintool.KindSearch }

func (t *SearchMoviesTool) Description() string {
	return "Search for movies by title, actor, director, or any search term"
}

func (t *SearchMoviesTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query (movie title, actor name, director, etc.)",
			},
			"year": map[string]interface{}{
				"type":        "number",
				"description": "Optional year filter",
			},
			"genre": map[string]interface{}{
				"type":        "string",
				"description": "Optional genre filter",
			},
			"minRating": map[string]interface{}{
				"type":        "number",
				"description": "Minimum rating filter (0-10)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchMoviesTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	query := strings.TrimSpace(argString(args, "query"))
	if query == "" {
		return &domaintool.Result{
			Output:  "Error: 'query' parameter is required",
			Success: false,
			Error:   "missing query",
		}, nil
	}

	res, err := t.catalog.SearchMovies(ctx, catalog.SearchParams{
		Query:     query,
		Year:      argInt(args, "year"),
		Genre:     argString(args, "genre"),
		MinRating: argFloat(args, "minRating"),
	})
	return t.respond(ctx, t.Name(), res, err)
}

// DiscoverMoviesTool 按类型/年份/评分发现电影
type DiscoverMoviesTool struct{ movieToolBase }

// NewDiscoverMoviesTool creates the discover tool.
func NewDiscoverMoviesTool(c catalog.Catalog, logger *zap.Logger) *DiscoverMoviesTool {
	return &DiscoverMoviesTool{movieToolBase{catalog: c, logger: logger}}
}

func (t *DiscoverMoviesTool) Name() string          { return DiscoverMoviesToolName }
func (t *DiscoverMoviesTool) Kind() domaintool.Kind { return domaintool.KindSearch }

func (t *DiscoverMoviesTool) Description() string {
	return "Discover movies by genre, year, rating, and other criteria"
}

func (t *DiscoverMoviesTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"genre": map[string]interface{}{
				"type":        "string",
				"description": "Genre to filter by",
			},
			"year": map[string]interface{}{
				"type":        "number",
				"description": "Year to filter by",
			},
			"minRating": map[string]interface{}{
				"type":        "number",
				"description": "Minimum rating (0-10)",
			},
			"sortBy": map[string]interface{}{
				"type":        "string",
				"description": "Sort criteria",
				"enum":        []string{catalog.SortPopularity, catalog.SortRating, catalog.SortReleaseDate},
			},
		},
	}
}

func (t *DiscoverMoviesTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	params := catalog.DiscoverParams{
		Genre:  argString(args, "genre"),
		Year:   argInt(args, "year"),
		SortBy: argString(args, "sortBy"),
	}
	if r := argFloat(args, "minRating"); r != nil {
		params.MinRating = *r
	}

	res, err := t.catalog.DiscoverMovies(ctx, params)
	return t.respond(ctx, t.Name(), res, err)
}

// TrendingMoviesTool 获取热门电影
type TrendingMoviesTool struct{ movieToolBase }

// NewTrendingMoviesTool creates the trending tool.
func NewTrendingMoviesTool(c catalog.Catalog, logger *zap.Logger) *TrendingMoviesTool {
	return &TrendingMoviesTool{movieToolBase{catalog: c, logger: logger}}
}

func (t *TrendingMoviesTool) Name() string          { return TrendingMoviesToolName }
func (t *TrendingMoviesTool) Kind() domaintool.Kind { return domaintool.KindSearch }

func (t *TrendingMoviesTool) Description() string {
	return "Get currently trending movies"
}

func (t *TrendingMoviesTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"timeWindow": map[string]interface{}{
				"type":        "string",
				"description": "Time window for trending (default: week)",
				"enum":        []string{catalog.WindowDay, catalog.WindowWeek},
			},
		},
	}
}

func (t *TrendingMoviesTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	res, err := t.catalog.TrendingMovies(ctx, argString(args, "timeWindow"))
	return t.respond(ctx, t.Name(), res, err)
}

// MovieGenresTool 列出电影类型
type MovieGenresTool struct{ movieToolBase }

// NewMovieGenresTool creates the genre list tool.
func NewMovieGenresTool(c catalog.Catalog, logger *zap.Logger) *MovieGenresTool {
	return &MovieGenresTool{movieToolBase{catalog: c, logger: logger}}
}

func (t *MovieGenresTool) Name() string          { return MovieGenresToolName }
func (t *MovieGenresTool) Kind() domaintool.Kind { return domaintool.KindRead }

func (t *MovieGenresTool) Description() string {
	return "Get all available movie genres"
}

func (t *MovieGenresTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *MovieGenresTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	res, err := t.catalog.ListGenres(ctx)
	return t.respond(ctx, t.Name(), res, err)
}

// argument helpers: JSON numbers arrive as float64, but models sometimes
// send numbers as strings.

func argString(args map[string]interface{}, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func argFloat(args map[string]interface{}, key string) *float64 {
	switch v := args[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &f
		}
	}
	return nil
}

func argInt(args map[string]interface{}, key string) int {
	if f := argFloat(args, key); f != nil {
		return int(*f)
	}
	return 0
}
