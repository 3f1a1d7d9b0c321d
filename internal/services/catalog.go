package services

import (
	"context"
	"errors"

	"cinesocial/internal/models"

	"github.com/google/uuid"
)

type MovieStore interface {
	FindMovieByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	ListMovies(ctx context.Context) ([]models.Movie, error)
}

// CatalogService 影片目录只读查询
type CatalogService struct {
	movies MovieStore
}

func NewCatalogService(movies MovieStore) *CatalogService {
	return &CatalogService{movies: movies}
}

func (s *CatalogService) Movie(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	m, err := s.movies.FindMovieByID(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return m, nil
}

func (s *CatalogService) Movies(ctx context.Context) ([]models.Movie, error) {
	list, err := s.movies.ListMovies(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return list, nil
}
