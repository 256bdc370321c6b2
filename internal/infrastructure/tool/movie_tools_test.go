package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/catalog"
	"github.com/reelchat/reelchat/internal/domain/service"
)

// fakeCatalog records the last parameters it was called with.
type fakeCatalog struct {
	err          error
	lastSearch   catalog.SearchParams
	lastDiscover catalog.DiscoverParams
	lastWindow   string
}

func (f *fakeCatalog) SearchMovies(ctx context.Context, p catalog.SearchParams) (*catalog.SearchResult, error) {
	f.lastSearch = p
	if f.err != nil {
		return catalog.EmptySearchResult(), f.err
	}
	return &catalog.SearchResult{
		Movies:       []catalog.MovieSummary{{ID: 19995, Title: "Avatar", Genres: []string{"Action"}}},
		TotalResults: 1,
	}, nil
}

func (f *fakeCatalog) DiscoverMovies(ctx context.Context, p catalog.DiscoverParams) (*catalog.MovieList, error) {
	f.lastDiscover = p
	if f.err != nil {
		return catalog.EmptyMovieList(), f.err
	}
	return &catalog.MovieList{Movies: []catalog.MovieSummary{{ID: 1, Title: "Heat"}}}, nil
}

func (f *fakeCatalog) TrendingMovies(ctx context.Context, window string) (*catalog.MovieList, error) {
	f.lastWindow = window
	if f.err != nil {
		return catalog.EmptyMovieList(), f.err
	}
	return &catalog.MovieList{Movies: []catalog.MovieSummary{{ID: 2, Title: "Dune"}}}, nil
}

func (f *fakeCatalog) ListGenres(ctx context.Context) (*catalog.GenreList, error) {
	if f.err != nil {
		return catalog.EmptyGenreList(), f.err
	}
	return &catalog.GenreList{Genres: []catalog.Genre{{ID: 28, Name: "Action"}}}, nil
}

func TestSearchMoviesToolParsesArguments(t *testing.T) {
	fc := &fakeCatalog{}
	tool := NewSearchMoviesTool(fc, zap.NewNop())

	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"query":     "Avatar",
		"year":      float64(2009),
		"genre":     "action",
		"minRating": "7.5",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("result not successful: %+v", res)
	}
	if fc.lastSearch.Query != "Avatar" || fc.lastSearch.Year != 2009 || fc.lastSearch.Genre != "action" {
		t.Errorf("params = %+v", fc.lastSearch)
	}
	if fc.lastSearch.MinRating == nil || *fc.lastSearch.MinRating != 7.5 {
		t.Errorf("MinRating = %v", fc.lastSearch.MinRating)
	}

	var out catalog.SearchResult
	if err := json.Unmarshal([]byte(res.Output), &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if out.TotalResults != 1 || out.Movies[0].Title != "Avatar" {
		t.Errorf("output = %+v", out)
	}
}

func TestSearchMoviesToolRequiresQuery(t *testing.T) {
	fc := &fakeCatalog{}
	res, err := NewSearchMoviesTool(fc, zap.NewNop()).Execute(context.Background(), map[string]interface{}{"query": "  "})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Success || res.Error == "" {
		t.Errorf("blank query should fail: %+v", res)
	}
}

func TestSearchMoviesToolLeavesMinRatingUnset(t *testing.T) {
	fc := &fakeCatalog{}
	if _, err := NewSearchMoviesTool(fc, zap.NewNop()).Execute(context.Background(), map[string]interface{}{"query": "x"}); err != nil {
		t.Fatal(err)
	}
	if fc.lastSearch.MinRating != nil {
		t.Errorf("MinRating = %v, want nil", *fc.lastSearch.MinRating)
	}
}

func TestDiscoverAndTrendingTools(t *testing.T) {
	fc := &fakeCatalog{}
	ctx := context.Background()

	if _, err := NewDiscoverMoviesTool(fc, zap.NewNop()).Execute(ctx, map[string]interface{}{
		"genre":     "Drama",
		"year":      float64(1995),
		"minRating": float64(8),
		"sortBy":    catalog.SortRating,
	}); err != nil {
		t.Fatal(err)
	}
	want := catalog.DiscoverParams{Genre: "Drama", Year: 1995, MinRating: 8, SortBy: catalog.SortRating}
	if fc.lastDiscover != want {
		t.Errorf("discover params = %+v, want %+v", fc.lastDiscover, want)
	}

	if _, err := NewTrendingMoviesTool(fc, zap.NewNop()).Execute(ctx, map[string]interface{}{"timeWindow": "day"}); err != nil {
		t.Fatal(err)
	}
	if fc.lastWindow != "day" {
		t.Errorf("window = %q", fc.lastWindow)
	}
}

func TestMovieToolsForwardEmptyShapeOnFailure(t *testing.T) {
	fc := &fakeCatalog{err: errors.New("tmdb down")}
	ctx := service.WithTraceID(context.Background(), "trace-1")

	tests := []struct {
		name string
		run  func() (string, bool, map[string]interface{})
		want string
	}{
		{
			name: "search",
			run: func() (string, bool, map[string]interface{}) {
				r, _ := NewSearchMoviesTool(fc, zap.NewNop()).Execute(ctx, map[string]interface{}{"query": "x"})
				return r.Output, r.Success, r.Metadata
			},
			want: `{"movies":[],"total_results":0}`,
		},
		{
			name: "trending",
			run: func() (string, bool, map[string]interface{}) {
				r, _ := NewTrendingMoviesTool(fc, zap.NewNop()).Execute(ctx, nil)
				return r.Output, r.Success, r.Metadata
			},
			want: `{"movies":[]}`,
		},
		{
			name: "genres",
			run: func() (string, bool, map[string]interface{}) {
				r, _ := NewMovieGenresTool(fc, zap.NewNop()).Execute(ctx, nil)
				return r.Output, r.Success, r.Metadata
			},
			want: `{"genres":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok, meta := tt.run()
			if ok {
				t.Error("Success should be false")
			}
			if out != tt.want {
				t.Errorf("Output = %s, want %s", out, tt.want)
			}
			if meta["trace_id"] != "trace-1" {
				t.Errorf("Metadata = %v", meta)
			}
		})
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]interface{}{"n": float64(3.9), "s": "42", "bad": true}
	if got := argInt(args, "n"); got != 3 {
		t.Errorf("argInt(n) = %d", got)
	}
	if got := argInt(args, "s"); got != 42 {
		t.Errorf("argInt(s) = %d", got)
	}
	if got := argFloat(args, "bad"); got != nil {
		t.Errorf("argFloat(bad) = %v", *got)
	}
	if got := argString(args, "missing"); got != "" {
		t.Errorf("argString(missing) = %q", got)
	}
}
