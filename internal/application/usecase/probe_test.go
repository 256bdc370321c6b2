package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/domain/catalog"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

type stubCatalog struct {
	err         error
	lastQuery   string
	invalidated int
}

func (s *stubCatalog) SearchMovies(ctx context.Context, p catalog.SearchParams) (*catalog.SearchResult, error) {
	s.lastQuery = p.Query
	if s.err != nil {
		return catalog.EmptySearchResult(), s.err
	}
	return &catalog.SearchResult{Movies: []catalog.MovieSummary{{Title: "Avatar"}}, TotalResults: 1}, nil
}

func (s *stubCatalog) DiscoverMovies(ctx context.Context, p catalog.DiscoverParams) (*catalog.MovieList, error) {
	return catalog.EmptyMovieList(), s.err
}

func (s *stubCatalog) TrendingMovies(ctx context.Context, window string) (*catalog.MovieList, error) {
	if s.err != nil {
		return catalog.EmptyMovieList(), s.err
	}
	return &catalog.MovieList{Movies: []catalog.MovieSummary{{Title: "Dune"}}}, nil
}

func (s *stubCatalog) ListGenres(ctx context.Context) (*catalog.GenreList, error) {
	if s.err != nil {
		return catalog.EmptyGenreList(), s.err
	}
	return &catalog.GenreList{Genres: []catalog.Genre{{ID: 28, Name: "Action"}}}, nil
}

func (s *stubCatalog) InvalidateGenres() { s.invalidated++ }

func TestProbeUseCase_Run(t *testing.T) {
	agent := &MockAgent{reply: "Trending: Dune"}
	cat := &stubCatalog{}
	uc := usecase.NewProbeUseCase(agent, cat, zap.NewNop())
	ctx := context.Background()

	res, err := uc.Run(ctx, "")
	if err != nil || res.Test != usecase.ProbeAgent || !res.Success || res.Response != "Trending: Dune" {
		t.Fatalf("agent probe = %+v, %v", res, err)
	}
	if agent.received[0][0].Content != usecase.ProbeAgentPrompt {
		t.Errorf("agent prompt = %q", agent.received[0][0].Content)
	}

	res, err = uc.Run(ctx, usecase.ProbeSearch)
	if err != nil || !res.Success || cat.lastQuery != usecase.ProbeSearchQuery {
		t.Fatalf("search probe = %+v, %v (query %q)", res, err, cat.lastQuery)
	}
	if r, ok := res.Result.(*catalog.SearchResult); !ok || r.TotalResults != 1 {
		t.Errorf("search result = %#v", res.Result)
	}

	for _, name := range []string{usecase.ProbeTrending, usecase.ProbeGenres} {
		res, err := uc.Run(ctx, name)
		if err != nil || !res.Success || res.Result == nil {
			t.Errorf("%s probe = %+v, %v", name, res, err)
		}
	}
}

func TestProbeUseCase_Failures(t *testing.T) {
	uc := usecase.NewProbeUseCase(&MockAgent{err: errors.New("no key")}, &stubCatalog{err: errors.New("tmdb 503")}, zap.NewNop())
	ctx := context.Background()

	res, err := uc.Run(ctx, usecase.ProbeAgent)
	if err != nil || res.Success || res.Error == "" {
		t.Errorf("agent failure = %+v, %v", res, err)
	}
	res, err = uc.Run(ctx, usecase.ProbeGenres)
	if err != nil || res.Success || res.Error != "tmdb 503" {
		t.Errorf("genres failure = %+v, %v", res, err)
	}

	if _, err := uc.Run(ctx, "weather"); !domainErrors.IsInvalidInput(err) {
		t.Errorf("unknown probe error = %v", err)
	}
}

func TestProbeUseCase_RefreshGenres(t *testing.T) {
	cat := &stubCatalog{}
	uc := usecase.NewProbeUseCase(&MockAgent{}, cat, zap.NewNop())

	genres, err := uc.RefreshGenres(context.Background())
	if err != nil || len(genres.Genres) != 1 {
		t.Fatalf("RefreshGenres() = %+v, %v", genres, err)
	}
	if cat.invalidated != 1 {
		t.Errorf("invalidated = %d", cat.invalidated)
	}
}
