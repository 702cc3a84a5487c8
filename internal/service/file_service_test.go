package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa-go/internal/model"
)

func TestListFilesEmptyRegistry(t *testing.T) {
	svc := NewFileService(newFakeFileRepo(), newFakeIndex(), newFakeObjects(), nil)

	resp, err := svc.ListFiles()
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotNil(t, resp.Files)
	assert.Empty(t, resp.Files)
}

func TestListFilesReturnsRows(t *testing.T) {
	repo := newFakeFileRepo()
	repo.rows["f1"] = model.File{FileID: "f1", FileName: "a.pdf"}
	repo.rows["f2"] = model.File{FileID: "f2", FileName: "b.xlsx"}

	svc := NewFileService(repo, newFakeIndex(), newFakeObjects(), nil)

	resp, err := svc.ListFiles()
	require.NoError(t, err)
	assert.Len(t, resp.Files, 2)
}

func TestDeleteFileRemovesVectorsRowAndObject(t *testing.T) {
	repo := newFakeFileRepo()
	repo.rows["f1"] = model.File{FileID: "f1", FileName: "a.pdf"}
	index := newFakeIndex()
	objects := newFakeObjects()

	svc := NewFileService(repo, index, objects, nil)

	require.NoError(t, svc.DeleteFile(context.Background(), "f1"))

	assert.Equal(t, []string{"f1"}, index.deleted)
	assert.Empty(t, repo.rows)
	require.Len(t, objects.removed, 1)
	assert.Equal(t, "originals/f1/a.pdf", objects.removed[0])
}

func TestDeleteFileUnknownIDIsNoOp(t *testing.T) {
	index := newFakeIndex()
	objects := newFakeObjects()

	svc := NewFileService(newFakeFileRepo(), index, objects, nil)

	require.NoError(t, svc.DeleteFile(context.Background(), "ghost"))
	// Vector deletion still runs: orphaned vectors must not survive a
	// registry row that never existed.
	assert.Equal(t, []string{"ghost"}, index.deleted)
	assert.Empty(t, objects.removed)
}

func TestDeleteFileVectorFailurePreservesRow(t *testing.T) {
	repo := newFakeFileRepo()
	repo.rows["f1"] = model.File{FileID: "f1", FileName: "a.pdf"}
	index := newFakeIndex()
	index.deleteByFile = errors.New("elasticsearch down")

	svc := NewFileService(repo, index, newFakeObjects(), nil)

	err := svc.DeleteFile(context.Background(), "f1")
	require.Error(t, err)
	// The registry row stays so the delete can be retried.
	assert.Contains(t, repo.rows, "f1")
}

func TestDeleteFileObjectFailureIsTolerated(t *testing.T) {
	repo := newFakeFileRepo()
	repo.rows["f1"] = model.File{FileID: "f1", FileName: "a.pdf"}
	objects := newFakeObjects()
	objects.removeErr = errors.New("minio down")

	svc := NewFileService(repo, newFakeIndex(), objects, nil)

	require.NoError(t, svc.DeleteFile(context.Background(), "f1"))
	assert.Empty(t, repo.rows)
}

func TestDownloadURLKnownFile(t *testing.T) {
	repo := newFakeFileRepo()
	repo.rows["f1"] = model.File{FileID: "f1", FileName: "a.pdf"}

	svc := NewFileService(repo, newFakeIndex(), newFakeObjects(), nil)

	url, err := svc.DownloadURL(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "https://store.example/originals/f1/a.pdf", url)
}

func TestDownloadURLUnknownFile(t *testing.T) {
	svc := NewFileService(newFakeFileRepo(), newFakeIndex(), newFakeObjects(), nil)

	_, err := svc.DownloadURL(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrFileNotFound)
}
