package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinemarket/movie-storefront/internal/model"
)

// MovieRepo provides catalog access for movies and their relations.
// Movies are linked to genres, directors and stars through join
// tables; detail loaders resolve everything so callers receive fully
// populated value objects.
type MovieRepo struct{ db *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// DB exposes the underlying handle for handler-scoped transactions.
func (r *MovieRepo) DB() *sql.DB { return r.db }

// MovieInput carries the writable movie columns plus relation IDs.
type MovieInput struct {
	Name            string
	Year            int
	Time            int
	IMDb            decimal.Decimal
	Votes           int64
	MetaScore       *decimal.Decimal
	Gross           *decimal.Decimal
	Description     string
	Price           decimal.Decimal
	CertificationID uint64
	GenreIDs        []uint64
	DirectorIDs     []uint64
	StarIDs         []uint64
}

// Create inserts a movie and its relation rows in one transaction.
// The (name, year, time) identity is unique; a duplicate yields
// ErrDuplicate.
func (r *MovieRepo) Create(ctx context.Context, in MovieInput) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO movies (uuid, name, year, time, imdb, votes, meta_score, gross, description, price, certification_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		uuid.New().String(), in.Name, in.Year, in.Time, in.IMDb, in.Votes,
		in.MetaScore, in.Gross, in.Description, in.Price, in.CertificationID)
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
	movieID := uint64(id)
	if err := replaceRelationsTx(ctx, tx, movieID, "movie_genres", "genre_id", in.GenreIDs); err != nil {
		return 0, err
	}
	if err := replaceRelationsTx(ctx, tx, movieID, "movie_directors", "director_id", in.DirectorIDs); err != nil {
		return 0, err
	}
	if err := replaceRelationsTx(ctx, tx, movieID, "movie_stars", "star_id", in.StarIDs); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return movieID, nil
}

// Update overwrites the movie columns and, when relation ID slices
// are non-nil, replaces the corresponding join rows.
func (r *MovieRepo) Update(ctx context.Context, movieID uint64, in MovieInput) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE movies
		 SET name=?, year=?, time=?, imdb=?, votes=?, meta_score=?, gross=?, description=?, price=?, certification_id=?
		 WHERE id=?`,
		in.Name, in.Year, in.Time, in.IMDb, in.Votes,
		in.MetaScore, in.Gross, in.Description, in.Price, in.CertificationID, movieID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM movies WHERE id=?", movieID).Scan(&exists); err != nil {
			return ErrNotFound
		}
	}
	if in.GenreIDs != nil {
		if err := replaceRelationsTx(ctx, tx, movieID, "movie_genres", "genre_id", in.GenreIDs); err != nil {
			return err
		}
	}
	if in.DirectorIDs != nil {
		if err := replaceRelationsTx(ctx, tx, movieID, "movie_directors", "director_id", in.DirectorIDs); err != nil {
			return err
		}
	}
	if in.StarIDs != nil {
		if err := replaceRelationsTx(ctx, tx, movieID, "movie_stars", "star_id", in.StarIDs); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a movie. It refuses with ErrConflict while the
// movie still sits in any cart; order items keep their snapshot and
// do not block deletion.
func (r *MovieRepo) Delete(ctx context.Context, movieID uint64) error {
	var inCarts int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cart_items WHERE movie_id=?", movieID).Scan(&inCarts); err != nil {
		return err
	}
	if inCarts > 0 {
		return ErrConflict
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range []string{
		"DELETE FROM movie_genres WHERE movie_id=?",
		"DELETE FROM movie_directors WHERE movie_id=?",
		"DELETE FROM movie_stars WHERE movie_id=?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, movieID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM movies WHERE id=?", movieID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID loads a movie with certification, genres, directors and
// stars resolved. Returns ErrNotFound when absent.
func (r *MovieRepo) GetByID(ctx context.Context, movieID uint64) (*model.MovieDetail, error) {
	return r.getDetail(ctx, "m.id=?", movieID)
}

// GetByUUID loads a movie by its public identifier.
func (r *MovieRepo) GetByUUID(ctx context.Context, movieUUID uuid.UUID) (*model.MovieDetail, error) {
	return r.getDetail(ctx, "m.uuid=?", movieUUID.String())
}

func (r *MovieRepo) getDetail(ctx context.Context, cond string, arg any) (*model.MovieDetail, error) {
	var (
		det       model.MovieDetail
		uuidStr   string
		metaScore sql.NullString
		gross     sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT m.id, m.uuid, m.name, m.year, m.time, m.imdb, m.votes, m.meta_score, m.gross,
		        m.description, m.price, m.certification_id, c.name
		 FROM movies m
		 JOIN certifications c ON c.id = m.certification_id
		 WHERE `+cond+` LIMIT 1`, arg).
		Scan(&det.ID, &uuidStr, &det.Name, &det.Year, &det.Time, &det.IMDb, &det.Votes,
			&metaScore, &gross, &det.Description, &det.Price, &det.CertificationID, &det.Certification)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if det.UUID, err = uuid.Parse(uuidStr); err != nil {
		return nil, err
	}
	if metaScore.Valid {
		d, err := decimal.NewFromString(metaScore.String)
		if err == nil {
			det.MetaScore = &d
		}
	}
	if gross.Valid {
		d, err := decimal.NewFromString(gross.String)
		if err == nil {
			det.Gross = &d
		}
	}
	det.Genres, err = r.relationNames(ctx, "movie_genres", "genre_id", "genres", det.ID)
	if err != nil {
		return nil, err
	}
	det.Directors, err = r.relationNames(ctx, "movie_directors", "director_id", "directors", det.ID)
	if err != nil {
		return nil, err
	}
	det.Stars, err = r.relationNames(ctx, "movie_stars", "star_id", "stars", det.ID)
	if err != nil {
		return nil, err
	}
	return &det, nil
}

// MovieListQuery defines filters, sorting and pagination for the
// public catalog listing. Zero values mean "no filter".
type MovieListQuery struct {
	Search   string // substring match on name, description, star or director
	Year     int
	MinIMDb  *decimal.Decimal
	MaxIMDb  *decimal.Decimal
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	GenreID  uint64
	Sort     string // price|-price|year|-year|votes|-votes|imdb|-imdb
	Skip     int
	Limit    int
}

// List returns a page of movies plus the total count matching the
// same filters, counted independently of skip/limit.
func (r *MovieRepo) List(ctx context.Context, q MovieListQuery) ([]model.MovieDetail, int64, error) {
	where := []string{}
	args := []any{}

	if q.Search != "" {
		needle := "%" + strings.ToLower(q.Search) + "%"
		where = append(where, `(LOWER(m.name) LIKE ? OR LOWER(m.description) LIKE ?
			OR EXISTS (SELECT 1 FROM movie_stars ms JOIN stars s ON s.id=ms.star_id WHERE ms.movie_id=m.id AND LOWER(s.name) LIKE ?)
			OR EXISTS (SELECT 1 FROM movie_directors md JOIN directors d ON d.id=md.director_id WHERE md.movie_id=m.id AND LOWER(d.name) LIKE ?))`)
		args = append(args, needle, needle, needle, needle)
	}
	if q.Year != 0 {
		where = append(where, "m.year = ?")
		args = append(args, q.Year)
	}
	if q.MinIMDb != nil {
		where = append(where, "m.imdb >= ?")
		args = append(args, *q.MinIMDb)
	}
	if q.MaxIMDb != nil {
		where = append(where, "m.imdb <= ?")
		args = append(args, *q.MaxIMDb)
	}
	if q.MinPrice != nil {
		where = append(where, "m.price >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "m.price <= ?")
		args = append(args, *q.MaxPrice)
	}
	if q.GenreID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM movie_genres mg WHERE mg.movie_id=m.id AND mg.genre_id=?)")
		args = append(args, q.GenreID)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM movies m WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "m.id ASC"
	switch q.Sort {
	case "price":
		order = "m.price ASC"
	case "-price":
		order = "m.price DESC"
	case "year":
		order = "m.year ASC"
	case "-year":
		order = "m.year DESC"
	case "votes":
		order = "m.votes ASC"
	case "-votes":
		order = "m.votes DESC"
	case "imdb":
		order = "m.imdb ASC"
	case "-imdb":
		order = "m.imdb DESC"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	dataArgs := append(append([]any{}, args...), limit, q.Skip)
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.uuid, m.name, m.year, m.time, m.imdb, m.votes, m.meta_score, m.gross,
		        m.description, m.price, m.certification_id, c.name
		 FROM movies m
		 JOIN certifications c ON c.id = m.certification_id
		 WHERE `+cond+`
		 ORDER BY `+order+`
		 LIMIT ? OFFSET ?`, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.MovieDetail, 0, limit)
	ids := make([]uint64, 0, limit)
	for rows.Next() {
		var (
			det       model.MovieDetail
			uuidStr   string
			metaScore sql.NullString
			gross     sql.NullString
		)
		if err := rows.Scan(&det.ID, &uuidStr, &det.Name, &det.Year, &det.Time, &det.IMDb, &det.Votes,
			&metaScore, &gross, &det.Description, &det.Price, &det.CertificationID, &det.Certification); err != nil {
			return nil, 0, err
		}
		if det.UUID, err = uuid.Parse(uuidStr); err != nil {
			return nil, 0, err
		}
		if metaScore.Valid {
			if d, err := decimal.NewFromString(metaScore.String); err == nil {
				det.MetaScore = &d
			}
		}
		if gross.Valid {
			if d, err := decimal.NewFromString(gross.String); err == nil {
				det.Gross = &d
			}
		}
		det.Genres = []string{}
		det.Directors = []string{}
		det.Stars = []string{}
		out = append(out, det)
		ids = append(ids, det.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.fillRelationNames(ctx, out, ids); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SummariesByIDs loads the compact movie shape for the given IDs,
// keyed by movie ID. Movies that no longer exist are simply absent
// from the result.
func (r *MovieRepo) SummariesByIDs(ctx context.Context, movieIDs []uint64) (map[uint64]model.MovieSummary, error) {
	out := make(map[uint64]model.MovieSummary, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}
	query := `SELECT m.id, m.uuid, m.name, m.year, m.time, m.price, c.name
	          FROM movies m
	          JOIN certifications c ON c.id = m.certification_id
	          WHERE m.id IN (` + placeholders(len(movieIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, query, idArgs(movieIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			s       model.MovieSummary
			uuidStr string
		)
		if err := rows.Scan(&s.ID, &uuidStr, &s.Name, &s.Year, &s.Time, &s.Price, &s.Certification); err != nil {
			return nil, err
		}
		if s.UUID, err = uuid.Parse(uuidStr); err != nil {
			return nil, err
		}
		s.Genres = []string{}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Attach genre names in a second pass.
	genreQ := `SELECT mg.movie_id, g.name
	           FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
	           WHERE mg.movie_id IN (` + placeholders(len(movieIDs)) + `)
	           ORDER BY g.name`
	grows, err := r.db.QueryContext(ctx, genreQ, idArgs(movieIDs)...)
	if err != nil {
		return nil, err
	}
	defer grows.Close()
	for grows.Next() {
		var (
			movieID uint64
			name    string
		)
		if err := grows.Scan(&movieID, &name); err != nil {
			return nil, err
		}
		if s, ok := out[movieID]; ok {
			s.Genres = append(s.Genres, name)
			out[movieID] = s
		}
	}
	return out, grows.Err()
}

func (r *MovieRepo) relationNames(ctx context.Context, joinTable, fkCol, nameTable string, movieID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT n.name FROM `+joinTable+` j JOIN `+nameTable+` n ON n.id = j.`+fkCol+`
		 WHERE j.movie_id=? ORDER BY n.name`, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *MovieRepo) fillRelationNames(ctx context.Context, movies []model.MovieDetail, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.MovieDetail, len(movies))
	for i := range movies {
		byID[movies[i].ID] = &movies[i]
	}
	type rel struct {
		joinTable, fkCol, nameTable string
		assign                      func(*model.MovieDetail, string)
	}
	rels := []rel{
		{"movie_genres", "genre_id", "genres", func(m *model.MovieDetail, n string) { m.Genres = append(m.Genres, n) }},
		{"movie_directors", "director_id", "directors", func(m *model.MovieDetail, n string) { m.Directors = append(m.Directors, n) }},
		{"movie_stars", "star_id", "stars", func(m *model.MovieDetail, n string) { m.Stars = append(m.Stars, n) }},
	}
	for _, rl := range rels {
		rows, err := r.db.QueryContext(ctx,
			`SELECT j.movie_id, n.name FROM `+rl.joinTable+` j JOIN `+rl.nameTable+` n ON n.id = j.`+rl.fkCol+`
			 WHERE j.movie_id IN (`+placeholders(len(ids))+`) ORDER BY n.name`, idArgs(ids)...)
		if err != nil {
			return err
		}
		for rows.Next() {
			var (
				movieID uint64
				name    string
			)
			if err := rows.Scan(&movieID, &name); err != nil {
				rows.Close()
				return err
			}
			if m, ok := byID[movieID]; ok {
				rl.assign(m, name)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}

func replaceRelationsTx(ctx context.Context, tx *sql.Tx, movieID uint64, joinTable, fkCol string, ids []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+joinTable+" WHERE movie_id=?", movieID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	query := "INSERT INTO " + joinTable + " (movie_id, " + fkCol + ") VALUES "
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, movieID, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
