/*
Package sqlite provides a SQLite-backed implementation of forum.TxStore.

PURPOSE:
  Default persistent store. Implements every forum store interface with
  plain SQL over database/sql and the mattn/go-sqlite3 driver.

KEY TABLES:
  users:         accounts and nullable credit_balance
  credit_tokens: minted cookies, name is the primary key
  topics:        top-level content, seq is AUTOINCREMENT
  replies:       replies keyed by UUID text, FK to topics
  like_records:  PRIMARY KEY (target_id, user_id)
  favorites:     PRIMARY KEY (topic_seq, user_id)

CONSTRAINTS DOING REAL WORK:
  - credit_tokens.name PRIMARY KEY: final word on name uniqueness
  - idx_credit_tokens_one_active: at most one active token per owner
  - CHECK (credit_balance >= 0) and CHECK (like_count >= 0)

CONFLICTS WITHOUT ABORT:
  Token, like, and favorite inserts use ON CONFLICT DO NOTHING and inspect
  RowsAffected, so a collision is reported as a sentinel error and the
  surrounding transaction stays usable for a retry.

CONNECTIONS:
  The pool is capped at one connection. SQLite has a single writer anyway,
  and a ":memory:" database exists per connection, so a second connection
  would see an empty database.

USAGE:
  store, err := sqlite.New("./data/cookieboard.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := forum.NewCreditLedger(store)

SEE ALSO:
  - forum/store.go: Interface definitions
  - forum/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/warp/cookieboard/forum"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is the subset of *sql.DB and *sql.Tx the queries need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements forum.TxStore using SQLite.
type Store struct {
	queries
	db *sql.DB
}

var _ forum.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: queries{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		credit_balance INTEGER CHECK (credit_balance IS NULL OR credit_balance >= 0),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credit_tokens (
		name TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		issued_at TEXT NOT NULL,
		banned BOOLEAN NOT NULL DEFAULT FALSE,
		active BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_credit_tokens_owner
		ON credit_tokens(owner_id, issued_at);

	-- At most one active token per owner
	CREATE UNIQUE INDEX IF NOT EXISTS idx_credit_tokens_one_active
		ON credit_tokens(owner_id) WHERE active;

	CREATE TABLE IF NOT EXISTS topics (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		image_urls_json TEXT,
		like_count INTEGER NOT NULL DEFAULT 0 CHECK (like_count >= 0),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_topics_category
		ON topics(category, seq DESC);

	CREATE TABLE IF NOT EXISTS replies (
		id TEXT PRIMARY KEY,
		topic_seq INTEGER NOT NULL REFERENCES topics(seq) ON DELETE CASCADE,
		author_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		quote_of TEXT,
		image_urls_json TEXT,
		like_count INTEGER NOT NULL DEFAULT 0 CHECK (like_count >= 0),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_replies_topic
		ON replies(topic_seq, created_at);

	-- Like records are keyed by the client's target string, not a FK
	CREATE TABLE IF NOT EXISTS like_records (
		target_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (target_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS favorites (
		topic_seq INTEGER NOT NULL REFERENCES topics(seq) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (topic_seq, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_favorites_user
		ON favorites(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store forum.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// queries implements forum.Store against either the pool or an open tx.
type queries struct {
	q querier
}

// =============================================================================
// USER STORE
// =============================================================================

func (s queries) GetUser(ctx context.Context, id forum.UserID) (*forum.User, error) {
	var u forum.User
	var bal sql.NullInt64
	var createdAt string

	err := s.q.QueryRowContext(ctx,
		"SELECT id, email, full_name, credit_balance, created_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Email, &u.FullName, &bal, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if bal.Valid {
		b := bal.Int64
		u.CreditBalance = &b
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// GetUserForUpdate is GetUser; the write transaction already excludes other writers.
func (s queries) GetUserForUpdate(ctx context.Context, id forum.UserID) (*forum.User, error) {
	return s.GetUser(ctx, id)
}

// SaveUser inserts or updates a user.
func (s queries) SaveUser(ctx context.Context, u forum.User) error {
	query := `
		INSERT INTO users (id, email, full_name, credit_balance, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name,
			credit_balance = excluded.credit_balance
	`

	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.q.ExecContext(ctx, query,
		u.ID, u.Email, u.FullName, nullInt(u.CreditBalance), formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s queries) SetCreditBalance(ctx context.Context, id forum.UserID, balance int64) error {
	res, err := s.q.ExecContext(ctx, "UPDATE users SET credit_balance = ? WHERE id = ?", balance, id)
	if err != nil {
		return fmt.Errorf("failed to set credit balance: %w", err)
	}
	return expectRow(res, forum.ErrUserNotFound)
}

// =============================================================================
// TOKEN STORE
// =============================================================================

func (s queries) TokenNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM credit_tokens WHERE name = ?)", name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check token name: %w", err)
	}
	return exists, nil
}

// InsertToken adds a token. A taken name yields forum.ErrDuplicateTokenName.
func (s queries) InsertToken(ctx context.Context, t forum.CreditToken) error {
	query := `
		INSERT INTO credit_tokens (name, owner_id, issued_at, banned, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`

	res, err := s.q.ExecContext(ctx, query,
		t.Name, t.OwnerID, formatTime(t.IssuedAt), t.Banned, t.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return expectRow(res, forum.ErrDuplicateTokenName)
}

func (s queries) GetToken(ctx context.Context, name string) (*forum.CreditToken, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT name, owner_id, issued_at, banned, active FROM credit_tokens WHERE name = ?", name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	tokens, err := scanTokens(rows)
	if err != nil || len(tokens) == 0 {
		return nil, err
	}
	return &tokens[0], nil
}

func (s queries) ListTokens(ctx context.Context, owner forum.UserID) ([]forum.CreditToken, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT name, owner_id, issued_at, banned, active
		FROM credit_tokens
		WHERE owner_id = ?
		ORDER BY issued_at ASC, name ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return scanTokens(rows)
}

func scanTokens(rows *sql.Rows) ([]forum.CreditToken, error) {
	defer rows.Close()

	var tokens []forum.CreditToken
	for rows.Next() {
		var t forum.CreditToken
		var issuedAt string
		if err := rows.Scan(&t.Name, &t.OwnerID, &issuedAt, &t.Banned, &t.Active); err != nil {
			return nil, err
		}
		t.IssuedAt = parseTime(issuedAt)
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s queries) DeactivateTokens(ctx context.Context, owner forum.UserID) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE credit_tokens SET active = FALSE WHERE owner_id = ? AND active", owner,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate tokens: %w", err)
	}
	return nil
}

func (s queries) SetTokenActive(ctx context.Context, name string, active bool) error {
	res, err := s.q.ExecContext(ctx, "UPDATE credit_tokens SET active = ? WHERE name = ?", active, name)
	if err != nil {
		return fmt.Errorf("failed to set token active: %w", err)
	}
	return expectRow(res, forum.ErrTokenNotFound)
}

// =============================================================================
// CONTENT STORE
// =============================================================================

// CreateTopic inserts a topic and returns it with the assigned seq.
func (s queries) CreateTopic(ctx context.Context, t forum.Topic) (forum.Topic, error) {
	images, err := encodeImages(t.ImageURLs)
	if err != nil {
		return forum.Topic{}, err
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO topics (author_id, content, category, image_urls_json, like_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.AuthorID, t.Content, t.Category, images, t.LikeCount, formatTime(t.CreatedAt))
	if err != nil {
		return forum.Topic{}, fmt.Errorf("failed to create topic: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return forum.Topic{}, err
	}
	t.Seq = seq
	return t, nil
}

func (s queries) GetTopic(ctx context.Context, seq int64) (*forum.Topic, error) {
	topics, err := s.queryTopics(ctx, `
		SELECT seq, author_id, content, category, image_urls_json, like_count, created_at
		FROM topics WHERE seq = ?
	`, seq)
	if err != nil || len(topics) == 0 {
		return nil, err
	}
	return &topics[0], nil
}

// ListTopics returns topics newest first. An empty category matches all.
func (s queries) ListTopics(ctx context.Context, category string, skip, limit int) ([]forum.Topic, error) {
	return s.queryTopics(ctx, `
		SELECT seq, author_id, content, category, image_urls_json, like_count, created_at
		FROM topics
		WHERE (? = '' OR category = ?)
		ORDER BY seq DESC
		LIMIT ? OFFSET ?
	`, category, category, limit, skip)
}

func (s queries) queryTopics(ctx context.Context, query string, args ...any) ([]forum.Topic, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []forum.Topic
	for rows.Next() {
		var t forum.Topic
		var images sql.NullString
		var createdAt string
		if err := rows.Scan(&t.Seq, &t.AuthorID, &t.Content, &t.Category, &images, &t.LikeCount, &createdAt); err != nil {
			return nil, err
		}
		t.ImageURLs = decodeImages(images)
		t.CreatedAt = parseTime(createdAt)
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s queries) CreateReply(ctx context.Context, r forum.Reply) error {
	images, err := encodeImages(r.ImageURLs)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO replies (id, topic_seq, author_id, content, quote_of, image_urls_json, like_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID.String(), r.TopicSeq, r.AuthorID, r.Content, nullString(r.QuoteOf), images, r.LikeCount, formatTime(r.CreatedAt))
	if err != nil {
		if isConstraintError(err, sqlite3.ErrConstraintForeignKey) {
			return forum.ErrTopicNotFound
		}
		return fmt.Errorf("failed to create reply: %w", err)
	}
	return nil
}

func (s queries) GetReply(ctx context.Context, id uuid.UUID) (*forum.Reply, error) {
	replies, err := s.queryReplies(ctx, `
		SELECT id, topic_seq, author_id, content, quote_of, image_urls_json, like_count, created_at
		FROM replies WHERE id = ?
	`, id.String())
	if err != nil || len(replies) == 0 {
		return nil, err
	}
	return &replies[0], nil
}

// ListReplies returns a topic's replies oldest first.
func (s queries) ListReplies(ctx context.Context, topicSeq int64, skip, limit int) ([]forum.Reply, error) {
	return s.queryReplies(ctx, `
		SELECT id, topic_seq, author_id, content, quote_of, image_urls_json, like_count, created_at
		FROM replies
		WHERE topic_seq = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, topicSeq, limit, skip)
}

func (s queries) queryReplies(ctx context.Context, query string, args ...any) ([]forum.Reply, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer rows.Close()

	var replies []forum.Reply
	for rows.Next() {
		var r forum.Reply
		var id, createdAt string
		var quote, images sql.NullString
		if err := rows.Scan(&id, &r.TopicSeq, &r.AuthorID, &r.Content, &quote, &images, &r.LikeCount, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt reply id %q: %w", id, err)
		}
		r.ID = parsed
		r.QuoteOf = quote.String
		r.ImageURLs = decodeImages(images)
		r.CreatedAt = parseTime(createdAt)
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

// AdjustLikeCount adds delta to the counter, floored at 0, and returns the result.
func (s queries) AdjustLikeCount(ctx context.Context, target forum.Target, delta int64) (int64, error) {
	table, key, err := targetRow(target)
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.q.QueryRowContext(ctx,
		fmt.Sprintf("UPDATE %s SET like_count = MAX(like_count + ?, 0) WHERE %s = ? RETURNING like_count", table, key.column),
		delta, key.value,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, forum.ErrTargetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust like count: %w", err)
	}
	return count, nil
}

func (s queries) SetLikeCount(ctx context.Context, target forum.Target, n int64) error {
	table, key, err := targetRow(target)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET like_count = ? WHERE %s = ?", table, key.column),
		n, key.value,
	)
	if err != nil {
		return fmt.Errorf("failed to set like count: %w", err)
	}
	return expectRow(res, forum.ErrTargetNotFound)
}

type rowKey struct {
	column string
	value  any
}

func targetRow(target forum.Target) (string, rowKey, error) {
	switch target.Kind {
	case forum.TargetReply:
		return "replies", rowKey{column: "id", value: target.ReplyID.String()}, nil
	case forum.TargetTopic:
		return "topics", rowKey{column: "seq", value: target.TopicSeq}, nil
	}
	return "", rowKey{}, forum.ErrTargetNotFound
}

// =============================================================================
// LIKE STORE
// =============================================================================

func (s queries) LikeExists(ctx context.Context, targetID string, userID forum.UserID) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM like_records WHERE target_id = ? AND user_id = ?)",
		targetID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return exists, nil
}

func (s queries) InsertLike(ctx context.Context, rec forum.LikeRecord) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO like_records (target_id, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(target_id, user_id) DO NOTHING
	`, rec.TargetID, rec.UserID, formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert like: %w", err)
	}
	return expectRow(res, forum.ErrAlreadyLiked)
}

func (s queries) DeleteLike(ctx context.Context, targetID string, userID forum.UserID) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM like_records WHERE target_id = ? AND user_id = ?", targetID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return expectRow(res, forum.ErrNotLiked)
}

func (s queries) CountLikes(ctx context.Context, targetID string) (int64, error) {
	var n int64
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM like_records WHERE target_id = ?", targetID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return n, nil
}

func (s queries) LikeTargetIDs(ctx context.Context) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT DISTINCT target_id FROM like_records ORDER BY target_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list like targets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// FAVORITE STORE
// =============================================================================

func (s queries) FavoriteExists(ctx context.Context, topicSeq int64, userID forum.UserID) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM favorites WHERE topic_seq = ? AND user_id = ?)",
		topicSeq, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return exists, nil
}

func (s queries) InsertFavorite(ctx context.Context, f forum.Favorite) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO favorites (topic_seq, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(topic_seq, user_id) DO NOTHING
	`, f.TopicSeq, f.UserID, formatTime(f.CreatedAt))
	if err != nil {
		if isConstraintError(err, sqlite3.ErrConstraintForeignKey) {
			return forum.ErrTopicNotFound
		}
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return expectRow(res, forum.ErrAlreadyFavorited)
}

func (s queries) DeleteFavorite(ctx context.Context, topicSeq int64, userID forum.UserID) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM favorites WHERE topic_seq = ? AND user_id = ?", topicSeq, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return expectRow(res, forum.ErrNotFavorited)
}

func (s queries) ListFavorites(ctx context.Context, userID forum.UserID) ([]forum.Favorite, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT topic_seq, user_id, created_at FROM favorites
		WHERE user_id = ?
		ORDER BY topic_seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var favorites []forum.Favorite
	for rows.Next() {
		var f forum.Favorite
		var createdAt string
		if err := rows.Scan(&f.TopicSeq, &f.UserID, &createdAt); err != nil {
			return nil, err
		}
		f.CreatedAt = parseTime(createdAt)
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func encodeImages(urls []string) (sql.NullString, error) {
	if len(urls) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeImages(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var urls []string
	_ = json.Unmarshal([]byte(s.String), &urls)
	return urls
}

// expectRow maps "no row affected" onto the caller's sentinel.
func expectRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

func isConstraintError(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}
