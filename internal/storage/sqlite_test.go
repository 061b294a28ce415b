package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.db")

	require.NoError(t, MirrorSQLite(path, sampleRecords()))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM reviews").Scan(&count))
	assert.Equal(t, 2, count)

	var (
		rating    sql.NullInt64
		upvotes   sql.NullInt64
		sentiment string
	)

	row := db.QueryRow("SELECT rating, upvotes, sentiment FROM reviews WHERE app_name = 'doordash'")
	require.NoError(t, row.Scan(&rating, &upvotes, &sentiment))

	assert.True(t, rating.Valid)
	assert.EqualValues(t, 1, rating.Int64)
	assert.False(t, upvotes.Valid, "absent upvotes must be NULL")
	assert.Equal(t, "negative", sentiment)
}

func TestMirrorSQLite_ReplacesPreviousContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.db")

	require.NoError(t, MirrorSQLite(path, sampleRecords()))
	require.NoError(t, MirrorSQLite(path, sampleRecords()[:1]))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM reviews").Scan(&count))
	assert.Equal(t, 1, count)
}
