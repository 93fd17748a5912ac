package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"GoodNewsFeed/internal/domain"
	"GoodNewsFeed/internal/ports"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    title TEXT,
    url TEXT,
    content TEXT,
    published TEXT,
    sentiment REAL,
    is_good INTEGER,
    category TEXT,
    reason TEXT,
    source_type TEXT DEFAULT 'ai_generated'
);
`

// migrations lists columns added after the first schema shape shipped.
// Opening an older database adds them instead of failing.
var migrations = map[string]string{
	"reason":      "ALTER TABLE articles ADD COLUMN reason TEXT",
	"source_type": "ALTER TABLE articles ADD COLUMN source_type TEXT DEFAULT 'ai_generated'",
}

// SQLiteStore persists articles into a single content-addressed table.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.ArticleStore = (*SQLiteStore)(nil)

// Open creates (or upgrades) the database file and returns a store with a
// single writer connection; SQLite handles one writer at a time, so the
// pool is capped accordingly.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	rows, err := db.Query(`PRAGMA table_info(articles)`)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	existing := map[string]bool{}
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &primaryKey); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan column: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate columns: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close columns: %w", err)
	}

	for column, stmt := range migrations {
		if existing[column] {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("add column %s: %w", column, err)
		}
	}

	return nil
}

// UpsertIgnore inserts the article; a duplicate id succeeds silently.
func (s *SQLiteStore) UpsertIgnore(ctx context.Context, article domain.Article) error {
	sourceType := article.SourceType
	if sourceType == "" {
		sourceType = domain.SourceRemote
	}

	query, args, err := sq.Insert("articles").
		Columns("id", "title", "url", "content", "published", "sentiment", "is_good", "category", "reason", "source_type").
		Values(
			article.ID,
			article.Title,
			nullString(article.URL),
			article.Content,
			article.Published.UTC().Format(time.RFC3339),
			nullFloat(article.Sentiment),
			nullBool(article.IsGood),
			nullCategory(article.Category),
			nullString(article.Reason),
			string(sourceType),
		).
		Suffix("ON CONFLICT(id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article %s: %w", article.ID, err)
	}
	return nil
}

// SelectUnscored returns every row the sentiment gate has not processed.
func (s *SQLiteStore) SelectUnscored(ctx context.Context) ([]domain.Article, error) {
	query, args, err := selectArticles().
		Where(sq.Expr("sentiment IS NULL")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return s.queryArticles(ctx, query, args...)
}

// SelectUnjudged returns up to limit rows still awaiting classification.
func (s *SQLiteStore) SelectUnjudged(ctx context.Context, limit int) ([]domain.Article, error) {
	query, args, err := selectArticles().
		Where(sq.Expr("is_good IS NULL")).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return s.queryArticles(ctx, query, args...)
}

// ApplySentiment records the positivity score; reject additionally marks
// the row not good in the same statement so gated rows never reach the
// classification stage half-updated.
func (s *SQLiteStore) ApplySentiment(ctx context.Context, id string, score float64, reject bool) error {
	builder := sq.Update("articles").
		Set("sentiment", score).
		Where(sq.Eq{"id": id})
	if reject {
		// is_good only ever transitions away from NULL; an already-judged
		// row keeps its verdict.
		builder = builder.Set("is_good", sq.Expr("COALESCE(is_good, 0)"))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply sentiment %s: %w", id, err)
	}
	return nil
}

// ApplyVerdict writes the final judgement. An empty category is persisted
// as NULL, which is the terminal state for rows every backend failed on.
func (s *SQLiteStore) ApplyVerdict(ctx context.Context, id string, verdict domain.Verdict) error {
	var category interface{}
	if verdict.Category != "" {
		category = string(verdict.Category)
	}
	var reason interface{}
	if verdict.Reason != "" {
		reason = verdict.Reason
	}

	query, args, err := sq.Update("articles").
		Set("is_good", boolToInt(verdict.IsGood)).
		Set("category", category).
		Set("reason", reason).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply verdict %s: %w", id, err)
	}
	return nil
}

// Prune deletes rows published strictly before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete("articles").
		Where(sq.Lt{"published": cutoff.UTC().Format(time.RFC3339)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune articles: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned: %w", err)
	}
	return removed, nil
}

// QueryGood returns good rows deduplicated by case-insensitive title.
// ROW_NUMBER over each lower(title) partition ranks the most recently
// published row first, which guards against wire-service syndication of
// the same story under identical headlines.
func (s *SQLiteStore) QueryGood(ctx context.Context, limit int, order string) ([]domain.Article, error) {
	orderClause := "published DESC"
	if order == "sentiment" {
		orderClause = "sentiment DESC"
	}

	query := fmt.Sprintf(`
WITH ranked AS (
    SELECT id, title, url, content, published, sentiment, is_good, category, reason, source_type,
           ROW_NUMBER() OVER (
               PARTITION BY lower(title)
               ORDER BY published DESC
           ) AS rn
    FROM articles
    WHERE is_good = 1
)
SELECT id, title, url, content, published, sentiment, is_good, category, reason, source_type
FROM ranked
WHERE rn = 1
ORDER BY %s
LIMIT ?`, orderClause)

	return s.queryArticles(ctx, query, limit)
}

// Count returns the number of stored rows.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

func selectArticles() sq.SelectBuilder {
	return sq.Select("id", "title", "url", "content", "published", "sentiment", "is_good", "category", "reason", "source_type").
		From("articles")
}

func (s *SQLiteStore) queryArticles(ctx context.Context, query string, args ...interface{}) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}

	return articles, nil
}

func scanArticle(rows *sql.Rows) (domain.Article, error) {
	var (
		article    domain.Article
		url        sql.NullString
		published  sql.NullString
		sentiment  sql.NullFloat64
		isGood     sql.NullInt64
		category   sql.NullString
		reason     sql.NullString
		sourceType sql.NullString
	)

	err := rows.Scan(
		&article.ID,
		&article.Title,
		&url,
		&article.Content,
		&published,
		&sentiment,
		&isGood,
		&category,
		&reason,
		&sourceType,
	)
	if err != nil {
		return domain.Article{}, fmt.Errorf("scan article: %w", err)
	}

	article.URL = url.String
	if published.Valid {
		// Tolerate timestamps written by older versions of the schema.
		if ts, err := time.Parse(time.RFC3339, published.String); err == nil {
			article.Published = ts.UTC()
		}
	}
	if sentiment.Valid {
		article.Sentiment = &sentiment.Float64
	}
	if isGood.Valid {
		good := isGood.Int64 != 0
		article.IsGood = &good
	}
	if category.Valid {
		cat := domain.Category(category.String)
		article.Category = &cat
	}
	article.Reason = reason.String
	article.SourceType = domain.SourceType(sourceType.String)
	if article.SourceType == "" {
		article.SourceType = domain.SourceRemote
	}

	return article, nil
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) interface{} {
	if v == nil {
		return nil
	}
	return boolToInt(*v)
}

func nullCategory(v *domain.Category) interface{} {
	if v == nil {
		return nil
	}
	return string(*v)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
