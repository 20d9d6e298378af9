// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf2pages/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 24, 9, 0, 0, 0, time.UTC)

	req := types.NewConversionRequest("/data/auction.pdf", "/data/auction_images")
	ok := types.ConversionResult{
		TotalPages: 2,
		Succeeded:  true,
		SavedFiles: []types.SavedFile{
			{Filename: "page_001.png", SizeBytes: 1200},
			{Filename: "page_002.png", SizeBytes: 900},
		},
	}
	firstID, err := s.Record(ctx, req, ok, base)
	require.NoError(t, err)

	failedReq := req
	failedReq.ImageFormat = types.FormatJPEG
	failed := types.ConversionResult{ErrorDetail: "encoding page 2 (page_002.jpeg): disk full"}
	secondID, err := s.Record(ctx, failedReq, failed, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Greater(t, secondID, firstID)

	runs, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, secondID, runs[0].ID, "newest first")
	assert.False(t, runs[0].Succeeded)
	assert.Equal(t, types.FormatJPEG, runs[0].Format)
	assert.Contains(t, runs[0].ErrorDetail, "page 2")
	assert.Empty(t, runs[0].Files)

	assert.True(t, runs[1].Succeeded)
	assert.Equal(t, "/data/auction.pdf", runs[1].Source)
	assert.Equal(t, 200, runs[1].DPI)
	assert.Equal(t, "page", runs[1].Prefix)
	assert.True(t, base.Equal(runs[1].CreatedAt))
	assert.Equal(t, ok.SavedFiles, runs[1].Files)
}

func TestRecentLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	req := types.NewConversionRequest("a.pdf", "out")
	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := s.Record(ctx, req, types.ConversionResult{Succeeded: true}, start.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(context.Background(), types.NewConversionRequest("a.pdf", "out"), types.ConversionResult{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
