package db

import (
	"cinesocial/internal/models"

	"github.com/google/uuid"
)

var seedNamespace = uuid.MustParse("6f1c4a52-8d0e-4b43-9d1a-3c2f6a7e5b10")

// MovieID 由片名派生稳定的影片 id，重启后保持不变
func MovieID(title string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(title))
}

// SeedMovies 预设影片
func SeedMovies() []models.Movie {
	list := []struct {
		title string
		year  int
	}{
		{"Spirited Away", 2001},
		{"In the Mood for Love", 2000},
		{"Parasite", 2019},
		{"The Godfather", 1972},
		{"Arrival", 2016},
	}
	movies := make([]models.Movie, 0, len(list))
	for _, m := range list {
		movies = append(movies, models.Movie{ID: MovieID(m.title), Title: m.title, Year: m.year})
	}
	return movies
}
