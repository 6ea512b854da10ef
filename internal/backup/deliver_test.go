package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billtracker/internal/core"
)

type recordingTarget struct {
	names []string
	data  [][]byte
	err   error
}

func (r *recordingTarget) Deliver(_ context.Context, filename string, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.names = append(r.names, filename)
	r.data = append(r.data, data)
	return nil
}

var today = core.NewDate(2025, time.March, 12)

func TestFilenames(t *testing.T) {
	assert.Equal(t, "bills-backup-2025-03-12.json", ExportFilename(today))
	assert.Equal(t, "bills-2025-03-12.json", ShareFilename(today))
	assert.Equal(t, "bills-share-2025-03-12.json", ShareFallbackFilename(today))
}

func TestDeliverExport(t *testing.T) {
	download := &recordingTarget{}
	d, err := DeliverExport(context.Background(), download, []byte("{}"), today)
	require.NoError(t, err)
	assert.Equal(t, "bills-backup-2025-03-12.json", d.Filename)
	assert.False(t, d.Shared)
	assert.Equal(t, []string{"bills-backup-2025-03-12.json"}, download.names)
}

func TestDeliverExportError(t *testing.T) {
	download := &recordingTarget{err: errors.New("read-only fs")}
	_, err := DeliverExport(context.Background(), download, []byte("{}"), today)
	assert.Error(t, err)
}

func TestShare(t *testing.T) {
	tests := []struct {
		name         string
		share        Target
		wantFile     string
		wantShared   bool
		wantDownload int
	}{
		{
			name:         "share accepted",
			share:        &recordingTarget{},
			wantFile:     "bills-2025-03-12.json",
			wantShared:   true,
			wantDownload: 0,
		},
		{
			name:         "share fails falls back",
			share:        &recordingTarget{err: errors.New("container gone")},
			wantFile:     "bills-share-2025-03-12.json",
			wantDownload: 1,
		},
		{
			name:         "no share target",
			share:        nil,
			wantFile:     "bills-share-2025-03-12.json",
			wantDownload: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			download := &recordingTarget{}
			d, err := Share(context.Background(), tt.share, download, []byte("{}"), today)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFile, d.Filename)
			assert.Equal(t, tt.wantShared, d.Shared)
			assert.Len(t, download.names, tt.wantDownload)
		})
	}
}

func TestTargetFunc(t *testing.T) {
	var got string
	target := TargetFunc(func(_ context.Context, filename string, _ []byte) error {
		got = filename
		return nil
	})
	_, err := Share(context.Background(), target, &recordingTarget{}, nil, today)
	require.NoError(t, err)
	assert.Equal(t, "bills-2025-03-12.json", got)
}
