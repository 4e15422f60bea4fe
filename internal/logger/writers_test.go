package logger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSafeCSVWriterWritesRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades", "out.csv")

	w, err := NewSafeCSVWriter(path, time.Hour, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, w.WriteRecord([]string{"a", "b", "c"}))
	require.NoError(t, w.WriteRecord([]string{"1", "2", "3"}))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"a", "b", "c"}, records[0])
	assert.Equal(t, []string{"1", "2", "3"}, records[1])
}

func TestSafeCSVWriterConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	w, err := NewSafeCSVWriter(path, 10*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = w.WriteRecord([]string{"x", "y"})
			}
		}()
	}
	wg.Wait()

	records, _ := w.Stats()
	assert.Equal(t, uint64(400), records)
	require.NoError(t, w.Close())
}
