// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package status

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.TraceLevel)
	return New(dir, &logger), dir, &buf
}

func TestManager_ReadWrite(t *testing.T) {
	ctx := context.Background()
	mgr, dir, _ := newTestManager(t)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a.txt"), []byte("before"), 0o600))

	content, err := mgr.ReadFile(ctx, "sub/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "before", string(content))

	require.NoError(t, mgr.WriteFileAtomic(ctx, "sub/a.txt", []byte("after")))

	content, err = os.ReadFile(filepath.Join(dir, "sub", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "after", string(content))

	entries, err := os.ReadDir(filepath.Join(dir, "sub"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should not be left behind")
}

func TestManager_WriteFileAtomicKeepsMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}

	ctx := context.Background()
	mgr, dir, _ := newTestManager(t)

	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho old\n"), 0o755))

	require.NoError(t, mgr.WriteFileAtomic(ctx, "run.sh", []byte("#!/bin/sh\necho new\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestManager_AbsolutePaths(t *testing.T) {
	ctx := context.Background()
	mgr, dir, _ := newTestManager(t)

	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	content, err := mgr.ReadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))

	_, err = mgr.ReadFile(ctx, "../escape.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")

	_, err = mgr.ReadFile(ctx, filepath.Join(filepath.Dir(dir), "other.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestManager_ReadMissing(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, err := mgr.ReadFile(context.Background(), "missing.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestManager_Tracking(t *testing.T) {
	ctx := context.Background()
	mgr, _, buf := newTestManager(t)

	mgr.TrackFile(ctx, "b.txt", FileInfo{Status: StatusModified, Replacements: 2})
	mgr.TrackFile(ctx, "a.txt", FileInfo{Status: StatusUnchanged})
	mgr.TrackFile(ctx, "c.bin", FileInfo{Status: StatusSkipped, Error: errors.New("binary")})

	info, err := mgr.GetFileInfo(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", info.Path)
	assert.Equal(t, 2, info.Replacements)

	_, err = mgr.GetFileInfo(ctx, "nope.txt")
	assert.Error(t, err)

	files, err := mgr.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.txt", files[0].Path)
	assert.Equal(t, "b.txt", files[1].Path)
	assert.Equal(t, "c.bin", files[2].Path)

	assert.Contains(t, buf.String(), "Modified b.txt (2 replacements)")
	assert.Contains(t, buf.String(), "binary")
}

func TestManager_TrackingConcurrent(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mgr.TrackFile(ctx, filepath.ToSlash(filepath.Join("dir", string(rune('a'+i%26)), "f.txt")), FileInfo{Status: StatusModified})
		}(i)
	}
	wg.Wait()

	files, err := mgr.ListFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 26)
}

func TestManager_Progress(t *testing.T) {
	ctx := context.Background()
	mgr, _, buf := newTestManager(t)

	mgr.StartOperation(ctx, 4)
	mgr.UpdateProgress(ctx, 2)
	mgr.FinishOperation(ctx)

	assert.Contains(t, buf.String(), "Progress: 2/4 (50%)")
	assert.Contains(t, buf.String(), "Progress: 4/4 (100%)")
}

func TestNew_NilLogger(t *testing.T) {
	mgr := New(t.TempDir(), nil)
	assert.NotPanics(t, func() {
		mgr.TrackFile(context.Background(), "a.txt", FileInfo{Status: StatusModified})
	})
}
