package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-corrector/internal/domain/entity"
	"github.com/garyjia/invoice-corrector/internal/service"
)

type fakeProcessor struct {
	mu       sync.Mutex
	seen     []string
	active   int32
	peak     int32
	failures map[string]error
}

func (f *fakeProcessor) Process(ctx context.Context, fileName string, raw []byte) (*service.Outcome, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.seen = append(f.seen, fileName)
	f.mu.Unlock()

	record := &entity.CorrectionRecord{ID: fileName, FileName: fileName, Status: entity.CorrectionStatusCorrected}
	if err := f.failures[fileName]; err != nil {
		record.Status = entity.CorrectionStatusFailed
		return &service.Outcome{Record: record}, err
	}
	return &service.Outcome{Record: record}, nil
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("<Invoice/>"), 0644))
	}
	return dir
}

func TestRunner_Run(t *testing.T) {
	dir := writeFiles(t, "c.xml", "a.xml", "b.xml", "notes.txt")
	proc := &fakeProcessor{failures: map[string]error{"b.xml": errors.New("bad document")}}

	items, err := NewRunner(proc, 2, "", zap.NewNop()).Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "a.xml", filepath.Base(items[0].Path))
	assert.Equal(t, "b.xml", filepath.Base(items[1].Path))
	assert.Equal(t, "c.xml", filepath.Base(items[2].Path))

	assert.False(t, items[0].Failed())
	assert.True(t, items[1].Failed())
	assert.Equal(t, entity.CorrectionStatusFailed, items[1].Record.Status)
	assert.NotContains(t, proc.seen, "notes.txt")
	assert.LessOrEqual(t, proc.peak, int32(2))
}

func TestRunner_CustomPattern(t *testing.T) {
	dir := writeFiles(t, "a.xml", "b.XML", "c.hrxml")
	proc := &fakeProcessor{}

	items, err := NewRunner(proc, 0, "*.hrxml", zap.NewNop()).Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c.hrxml", items[0].Record.FileName)
}

func TestRunner_MissingDirectory(t *testing.T) {
	_, err := NewRunner(&fakeProcessor{}, 1, "", zap.NewNop()).
		Run(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestRunner_Cancelled(t *testing.T) {
	dir := writeFiles(t, "a.xml", "b.xml")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(&fakeProcessor{}, 1, "", zap.NewNop()).Run(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
