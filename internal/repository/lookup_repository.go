package repository

import (
	"context"
	"database/sql"

	"github.com/cinemarket/movie-storefront/internal/model"
)

// nameTable is the shared implementation behind the four catalog
// lookup repositories (genres, stars, directors, certifications).
// Each is a flat (id, unique name) table; only the movie join table
// differs.
type nameTable struct {
	db        *sql.DB
	table     string
	joinTable string // "" when the relation is a direct FK (certifications)
	joinFK    string
}

func (t *nameTable) create(ctx context.Context, name string) (uint64, error) {
	res, err := t.db.ExecContext(ctx, "INSERT INTO "+t.table+" (name) VALUES (?)", name)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (t *nameTable) get(ctx context.Context, id uint64) (uint64, string, error) {
	var name string
	err := t.db.QueryRowContext(ctx, "SELECT name FROM "+t.table+" WHERE id=? LIMIT 1", id).Scan(&name)
	if err == sql.ErrNoRows {
		return 0, "", ErrNotFound
	}
	return id, name, err
}

func (t *nameTable) list(ctx context.Context, skip, limit int) ([]uint64, []string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.db.QueryContext(ctx,
		"SELECT id, name FROM "+t.table+" ORDER BY name LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var (
		ids   []uint64
		names []string
	)
	for rows.Next() {
		var (
			id   uint64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		names = append(names, name)
	}
	return ids, names, rows.Err()
}

func (t *nameTable) update(ctx context.Context, id uint64, name string) error {
	res, err := t.db.ExecContext(ctx, "UPDATE "+t.table+" SET name=? WHERE id=?", name, id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := t.db.QueryRowContext(ctx, "SELECT 1 FROM "+t.table+" WHERE id=?", id).Scan(&exists); err != nil {
			return ErrNotFound
		}
	}
	return nil
}

func (t *nameTable) delete(ctx context.Context, id uint64) error {
	if t.joinTable != "" {
		if _, err := t.db.ExecContext(ctx,
			"DELETE FROM "+t.joinTable+" WHERE "+t.joinFK+"=?", id); err != nil {
			return err
		}
	} else {
		// Direct FK from movies: refuse deletion while referenced.
		var n int64
		if err := t.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM movies WHERE certification_id=?", id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
	}
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.table+" WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GenreRepo manages the genres table.
type GenreRepo struct{ t nameTable }

func NewGenreRepo(db *sql.DB) *GenreRepo {
	return &GenreRepo{t: nameTable{db: db, table: "genres", joinTable: "movie_genres", joinFK: "genre_id"}}
}

func (r *GenreRepo) Create(ctx context.Context, name string) (model.Genre, error) {
	id, err := r.t.create(ctx, name)
	return model.Genre{ID: id, Name: name}, err
}

func (r *GenreRepo) Get(ctx context.Context, id uint64) (model.Genre, error) {
	id, name, err := r.t.get(ctx, id)
	return model.Genre{ID: id, Name: name}, err
}

func (r *GenreRepo) Update(ctx context.Context, id uint64, name string) error {
	return r.t.update(ctx, id, name)
}

func (r *GenreRepo) Delete(ctx context.Context, id uint64) error { return r.t.delete(ctx, id) }

// GenreWithCount is a genre annotated with how many movies carry it.
type GenreWithCount struct {
	model.Genre
	MovieCount int64 `json:"movie_count"`
}

// List returns genres with per-genre movie counts.
func (r *GenreRepo) List(ctx context.Context, skip, limit int) ([]GenreWithCount, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.t.db.QueryContext(ctx,
		`SELECT g.id, g.name, COUNT(mg.movie_id)
		 FROM genres g
		 LEFT JOIN movie_genres mg ON mg.genre_id = g.id
		 GROUP BY g.id, g.name
		 ORDER BY g.name
		 LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []GenreWithCount{}
	for rows.Next() {
		var g GenreWithCount
		if err := rows.Scan(&g.ID, &g.Name, &g.MovieCount); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// StarRepo manages the stars table.
type StarRepo struct{ t nameTable }

func NewStarRepo(db *sql.DB) *StarRepo {
	return &StarRepo{t: nameTable{db: db, table: "stars", joinTable: "movie_stars", joinFK: "star_id"}}
}

func (r *StarRepo) Create(ctx context.Context, name string) (model.Star, error) {
	id, err := r.t.create(ctx, name)
	return model.Star{ID: id, Name: name}, err
}

func (r *StarRepo) Get(ctx context.Context, id uint64) (model.Star, error) {
	id, name, err := r.t.get(ctx, id)
	return model.Star{ID: id, Name: name}, err
}

func (r *StarRepo) List(ctx context.Context, skip, limit int) ([]model.Star, error) {
	ids, names, err := r.t.list(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Star, len(ids))
	for i := range ids {
		out[i] = model.Star{ID: ids[i], Name: names[i]}
	}
	return out, nil
}

func (r *StarRepo) Update(ctx context.Context, id uint64, name string) error {
	return r.t.update(ctx, id, name)
}

func (r *StarRepo) Delete(ctx context.Context, id uint64) error { return r.t.delete(ctx, id) }

// DirectorRepo manages the directors table.
type DirectorRepo struct{ t nameTable }

func NewDirectorRepo(db *sql.DB) *DirectorRepo {
	return &DirectorRepo{t: nameTable{db: db, table: "directors", joinTable: "movie_directors", joinFK: "director_id"}}
}

func (r *DirectorRepo) Create(ctx context.Context, name string) (model.Director, error) {
	id, err := r.t.create(ctx, name)
	return model.Director{ID: id, Name: name}, err
}

func (r *DirectorRepo) Get(ctx context.Context, id uint64) (model.Director, error) {
	id, name, err := r.t.get(ctx, id)
	return model.Director{ID: id, Name: name}, err
}

func (r *DirectorRepo) List(ctx context.Context, skip, limit int) ([]model.Director, error) {
	ids, names, err := r.t.list(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Director, len(ids))
	for i := range ids {
		out[i] = model.Director{ID: ids[i], Name: names[i]}
	}
	return out, nil
}

func (r *DirectorRepo) Update(ctx context.Context, id uint64, name string) error {
	return r.t.update(ctx, id, name)
}

func (r *DirectorRepo) Delete(ctx context.Context, id uint64) error { return r.t.delete(ctx, id) }

// CertificationRepo manages the certifications table. Deleting a
// certification still referenced by movies yields ErrConflict.
type CertificationRepo struct{ t nameTable }

func NewCertificationRepo(db *sql.DB) *CertificationRepo {
	return &CertificationRepo{t: nameTable{db: db, table: "certifications"}}
}

func (r *CertificationRepo) Create(ctx context.Context, name string) (model.Certification, error) {
	id, err := r.t.create(ctx, name)
	return model.Certification{ID: id, Name: name}, err
}

func (r *CertificationRepo) Get(ctx context.Context, id uint64) (model.Certification, error) {
	id, name, err := r.t.get(ctx, id)
	return model.Certification{ID: id, Name: name}, err
}

func (r *CertificationRepo) List(ctx context.Context, skip, limit int) ([]model.Certification, error) {
	ids, names, err := r.t.list(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Certification, len(ids))
	for i := range ids {
		out[i] = model.Certification{ID: ids[i], Name: names[i]}
	}
	return out, nil
}

func (r *CertificationRepo) Update(ctx context.Context, id uint64, name string) error {
	return r.t.update(ctx, id, name)
}

func (r *CertificationRepo) Delete(ctx context.Context, id uint64) error { return r.t.delete(ctx, id) }
