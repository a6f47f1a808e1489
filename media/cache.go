package media

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const probeCacheSchema = `
CREATE TABLE IF NOT EXISTS probes (
	path     TEXT    NOT NULL,
	size     INTEGER NOT NULL,
	mtime    INTEGER NOT NULL,
	filename TEXT    NOT NULL,
	duration REAL    NOT NULL,
	fps      REAL    NOT NULL,
	PRIMARY KEY (path, size, mtime)
);`

// CachingProber memoizes probe results for the run, keyed by absolute path,
// and optionally persists them to a sqlite database keyed by
// (path, size, mtime) so repeated runs over the same footage skip ffprobe.
// Safe only for sequential use; the pipeline is single-threaded.
type CachingProber struct {
	inner Prober
	memo  map[string]*VideoInfo
	db    *sql.DB
	log   logrus.FieldLogger
}

// NewCachingProber wraps inner. dbPath == "" disables persistence.
func NewCachingProber(inner Prober, dbPath string, log logrus.FieldLogger) (*CachingProber, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &CachingProber{inner: inner, memo: map[string]*VideoInfo{}, log: log}
	if dbPath == "" {
		return c, nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("probe cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open probe cache: %w", err)
	}
	if _, err := db.Exec(probeCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init probe cache: %w", err)
	}
	c.db = db
	return c, nil
}

func (c *CachingProber) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *CachingProber) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if info, ok := c.memo[abs]; ok {
		return info, nil
	}

	size, mtime, statErr := statKey(abs)
	if c.db != nil && statErr == nil {
		if info, ok := c.lookup(ctx, abs, size, mtime); ok {
			c.memo[abs] = info
			return info, nil
		}
	}

	info, err := c.inner.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	c.memo[abs] = info

	if c.db != nil && statErr == nil {
		if err := c.store(ctx, abs, size, mtime, info); err != nil {
			c.log.WithField("video", abs).Warnf("probe cache write failed: %v", err)
		}
	}
	return info, nil
}

func statKey(path string) (size, mtime int64, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	return fi.Size(), fi.ModTime().Unix(), nil
}

func (c *CachingProber) lookup(ctx context.Context, path string, size, mtime int64) (*VideoInfo, bool) {
	row := c.db.QueryRowContext(ctx,
		`SELECT filename, duration, fps FROM probes WHERE path = ? AND size = ? AND mtime = ?`,
		path, size, mtime)
	info := &VideoInfo{Path: path}
	if err := row.Scan(&info.Filename, &info.Duration, &info.FPS); err != nil {
		if err != sql.ErrNoRows {
			c.log.WithField("video", path).Warnf("probe cache read failed: %v", err)
		}
		return nil, false
	}
	return info, true
}

func (c *CachingProber) store(ctx context.Context, path string, size, mtime int64, info *VideoInfo) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO probes (path, size, mtime, filename, duration, fps)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		path, size, mtime, info.Filename, info.Duration, info.FPS)
	return err
}
