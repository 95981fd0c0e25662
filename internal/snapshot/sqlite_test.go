package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examind/proctor/internal/session"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSnapshot() session.Snapshot {
	return session.Snapshot{
		Answers:              map[string][]string{"q1": {"A"}, "q2": {"B", "C"}},
		CurrentQuestionIndex: 1,
		Visited:              []string{"q1", "q2"},
		MarkForReview:        map[string]bool{"q2": true},
		TimeLeft:             540,
		Started:              true,
	}
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	want := sampleSnapshot()

	require.NoError(t, store.Save("test-1", want))

	got, err := store.Load("test-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSQLiteLoadMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Load("never-saved")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteSaveOverwrites(t *testing.T) {
	store := openTestStore(t)
	first := sampleSnapshot()
	require.NoError(t, store.Save("test-1", first))

	second := first
	second.TimeLeft = 30
	second.Answers = map[string][]string{"q1": {"B"}}
	require.NoError(t, store.Save("test-1", second))

	got, err := store.Load("test-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 30, got.TimeLeft)
	assert.Equal(t, []string{"B"}, got.Answers["q1"])
}

func TestSQLiteClear(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Save("test-1", sampleSnapshot()))

	require.NoError(t, store.Clear("test-1"))

	got, err := store.Load("test-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Clearing again is not an error.
	require.NoError(t, store.Clear("test-1"))
}

func TestSQLiteStoresPerTest(t *testing.T) {
	store := openTestStore(t)
	a := sampleSnapshot()
	b := sampleSnapshot()
	b.TimeLeft = 10

	require.NoError(t, store.Save("test-a", a))
	require.NoError(t, store.Save("test-b", b))
	require.NoError(t, store.Clear("test-a"))

	gotA, err := store.Load("test-a")
	require.NoError(t, err)
	assert.Nil(t, gotA)

	gotB, err := store.Load("test-b")
	require.NoError(t, err)
	require.NotNil(t, gotB)
	assert.Equal(t, 10, gotB.TimeLeft)
}

func TestSQLiteCorruptRowTreatedAsAbsent(t *testing.T) {
	store := openTestStore(t)
	_, err := store.db.Exec(
		`INSERT INTO snapshots (test_id, state_json, updated_at) VALUES (?, ?, ?)`,
		"test-1", "{not json", 0,
	)
	require.NoError(t, err)

	got, loadErr := store.Load("test-1")
	require.NoError(t, loadErr)
	assert.Nil(t, got)
}
