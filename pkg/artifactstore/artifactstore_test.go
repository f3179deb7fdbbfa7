package artifactstore

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/cuemby/forgecore/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEvictionScenario verifies scenario S2: with maxTotalSizeBytes =
// 1000, storing three 400-byte artifacts evicts the oldest to make
// room for the newest.
func TestEvictionScenario(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0).UTC())
	s := New(Config{MaxTotalSizeBytes: 1000, Clock: fc})

	a := s.Store("job", "a", make([]byte, 400), "", nil)
	require.NotNil(t, a)
	fc.Advance(time.Second)
	b := s.Store("job", "b", make([]byte, 400), "", nil)
	require.NotNil(t, b)
	fc.Advance(time.Second)
	c := s.Store("job", "c", make([]byte, 400), "", nil)
	require.NotNil(t, c)

	assert.Nil(t, s.Get(a.ArtifactID))
	assert.NotNil(t, s.Get(b.ArtifactID))
	assert.NotNil(t, s.Get(c.ArtifactID))

	stats := s.GetStats()
	assert.Equal(t, int64(800), stats.TotalSizeBytes)
	assert.Equal(t, 2, stats.TotalArtifacts)
}

func TestChecksumIntegrity(t *testing.T) {
	s := New(Config{})
	content := []byte("hello world")
	meta := s.Store("job", "a", content, "", nil)
	require.NotNil(t, meta)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), meta.Checksum)
	assert.Equal(t, int64(len(content)), meta.SizeBytes)

	got := s.Get(meta.ArtifactID)
	require.NotNil(t, got)
	gotSum := sha256.Sum256(got.Content)
	assert.Equal(t, meta.Checksum, hex.EncodeToString(gotSum[:]))
}

func TestRejectsOversizedArtifact(t *testing.T) {
	s := New(Config{MaxArtifactSizeBytes: 10})
	meta := s.Store("job", "a", make([]byte, 20), "", nil)
	assert.Nil(t, meta)
}

func TestRejectsPerJobCap(t *testing.T) {
	s := New(Config{MaxPerJob: 1})
	require.NotNil(t, s.Store("job", "a", []byte("x"), "", nil))
	assert.Nil(t, s.Store("job", "b", []byte("y"), "", nil))
}

func TestCleanupExpired(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0).UTC())
	s := New(Config{MaxAge: time.Minute, Clock: fc})
	meta := s.Store("job", "a", []byte("x"), "", nil)
	require.NotNil(t, meta)

	fc.Advance(30 * time.Second)
	assert.Equal(t, 0, s.CleanupExpired())

	fc.Advance(time.Minute)
	assert.Equal(t, 1, s.CleanupExpired())
	assert.Nil(t, s.Get(meta.ArtifactID))
}

func TestDeleteByJob(t *testing.T) {
	s := New(Config{})
	s.Store("job", "a", []byte("1"), "", nil)
	s.Store("job", "b", []byte("2"), "", nil)
	s.Store("other", "c", []byte("3"), "", nil)

	removed := s.DeleteByJob("job")
	assert.Equal(t, 2, removed)
	assert.Empty(t, s.ListByJob("job"))
	assert.Len(t, s.ListByJob("other"), 1)
}
