package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movie represents a purchasable title in the catalog. The triple
// (name, year, time) is unique and identifies a movie to humans; the
// UUID is the stable public identifier exposed to clients. Prices
// are stored as DECIMAL(10,2).
//
// Fields:
//  ID              – primary key identifier.
//  UUID            – public identifier, generated at insert time.
//  Name            – movie title.
//  Year            – release year.
//  Time            – runtime in minutes.
//  IMDb            – IMDb rating (one decimal place).
//  Votes           – number of IMDb votes.
//  MetaScore       – Metacritic score (nullable).
//  Gross           – worldwide gross (nullable).
//  Description     – synopsis text.
//  Price           – current purchase price.
//  CertificationID – reference into certifications.
type Movie struct {
	ID              uint64           // movies.id
	UUID            uuid.UUID        // movies.uuid
	Name            string           // movies.name
	Year            int              // movies.year
	Time            int              // movies.time
	IMDb            decimal.Decimal  // movies.imdb
	Votes           int64            // movies.votes
	MetaScore       *decimal.Decimal // movies.meta_score (nullable)
	Gross           *decimal.Decimal // movies.gross (nullable)
	Description     string           // movies.description
	Price           decimal.Decimal  // movies.price
	CertificationID uint64           // movies.certification_id
}

// Genre is a row in the `genres` table. Movies relate to genres via
// the movie_genres join table.
type Genre struct {
	ID   uint64 // genres.id
	Name string // genres.name (unique)
}

// Star is a row in the `stars` table (movie_stars join table).
type Star struct {
	ID   uint64 // stars.id
	Name string // stars.name (unique)
}

// Director is a row in the `directors` table (movie_directors join table).
type Director struct {
	ID   uint64 // directors.id
	Name string // directors.name (unique)
}

// Certification is an age rating (G, PG-13, R, ...). Each movie
// references exactly one certification.
type Certification struct {
	ID   uint64 // certifications.id
	Name string // certifications.name (unique)
}

// MovieDetail is a movie with its related names resolved. Repositories
// return it fully populated so callers never chase relations themselves.
type MovieDetail struct {
	Movie
	Certification string   `json:"certification"`
	Genres        []string `json:"genres"`
	Directors     []string `json:"directors"`
	Stars         []string `json:"stars"`
}

// MovieSummary is the compact movie shape embedded in cart and order
// responses: enough to render a line item without a second lookup.
type MovieSummary struct {
	ID            uint64          `json:"id"`
	UUID          uuid.UUID       `json:"uuid"`
	Name          string          `json:"name"`
	Year          int             `json:"year"`
	Time          int             `json:"time"`
	Price         decimal.Decimal `json:"price"`
	Certification string          `json:"certification"`
	Genres        []string        `json:"genres"`
}
