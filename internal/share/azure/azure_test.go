package azure

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	createErr error
	uploadErr error
	created   []string
	uploaded  map[string][]byte
	headers   []string
}

func (f *fakeClient) CreateContainer(_ context.Context, name string, _ *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error) {
	f.created = append(f.created, name)
	return azblob.CreateContainerResponse{}, f.createErr
}

func (f *fakeClient) UploadBuffer(_ context.Context, container, name string, buf []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	if f.uploadErr != nil {
		return azblob.UploadBufferResponse{}, f.uploadErr
	}
	if f.uploaded == nil {
		f.uploaded = map[string][]byte{}
	}
	f.uploaded[container+"/"+name] = buf
	if o != nil && o.HTTPHeaders != nil && o.HTTPHeaders.BlobContentType != nil {
		f.headers = append(f.headers, *o.HTTPHeaders.BlobContentType)
	}
	return azblob.UploadBufferResponse{}, nil
}

func TestDeliverUploads(t *testing.T) {
	fc := &fakeClient{}
	target := newTarget(fc, "backups", nil)

	require.NoError(t, target.Deliver(context.Background(), "bills-2025-03-12.json", []byte(`{"bills":[]}`)))
	assert.Equal(t, []string{"backups"}, fc.created)
	assert.Equal(t, []byte(`{"bills":[]}`), fc.uploaded["backups/bills-2025-03-12.json"])
	assert.Equal(t, []string{"application/json"}, fc.headers)
}

func TestDeliverIgnoresContainerCreateFailure(t *testing.T) {
	fc := &fakeClient{createErr: errors.New("forbidden")}
	target := newTarget(fc, "backups", nil)

	require.NoError(t, target.Deliver(context.Background(), "a.json", []byte("{}")))
	assert.Contains(t, fc.uploaded, "backups/a.json")
}

func TestDeliverUploadFailure(t *testing.T) {
	fc := &fakeClient{uploadErr: errors.New("network down")}
	target := newTarget(fc, "backups", nil)

	err := target.Deliver(context.Background(), "a.json", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backups/a.json")
}

func TestNewRequiresSettings(t *testing.T) {
	_, err := New("", "backups", nil)
	assert.Error(t, err)
	_, err = New("UseDevelopmentStorage=true", "", nil)
	assert.Error(t, err)
}
