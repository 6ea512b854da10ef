// Package azure delivers backup files to an Azure Blob Storage container.
package azure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	applog "billtracker/internal/log"
)

const contentType = "application/json"

// client is the subset of *azblob.Client the target needs.
type client interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// Target uploads each delivered file as a block blob named after the file.
type Target struct {
	client    client
	container string
	logger    *slog.Logger
}

// New connects with a storage account connection string. The container is
// created on first delivery if it does not exist.
func New(connectionString, container string, logger *slog.Logger) (*Target, error) {
	if connectionString == "" {
		return nil, errors.New("azure storage connection string is required")
	}
	if container == "" {
		return nil, errors.New("azure share container is required")
	}
	c, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return newTarget(c, container, logger), nil
}

func newTarget(c client, container string, logger *slog.Logger) *Target {
	return &Target{
		client:    c,
		container: container,
		logger:    applog.WithComponent(logger, applog.ComponentShare),
	}
}

// Deliver uploads data to <container>/<filename>.
func (t *Target) Deliver(ctx context.Context, filename string, data []byte) error {
	if _, err := t.client.CreateContainer(ctx, t.container, nil); err != nil &&
		!bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		t.logger.WarnContext(ctx, "Failed to create container",
			applog.FieldTarget, t.container, applog.FieldError, err)
	}

	ct := contentType
	_, err := t.client.UploadBuffer(ctx, t.container, filename, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s/%s: %w", t.container, filename, err)
	}

	t.logger.InfoContext(ctx, "Uploaded backup",
		applog.FieldTarget, t.container,
		applog.FieldFilename, filename,
		"size_bytes", len(data))
	return nil
}
