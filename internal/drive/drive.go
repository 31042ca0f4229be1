// Package drive implements the remote file store on the Google Drive API:
// folder lookup, paged listing, in-memory download and file upload.
package drive

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sirupsen/logrus"
)

// File is one stored file as returned by folder listing.
type File struct {
	ID   string
	Name string
}

// Client wraps the Drive service with the operations the pipeline needs.
type Client struct {
	svc *gdrive.Service
	log *logrus.Entry
}

// NewClient builds a Drive client.
func NewClient(ctx context.Context, log *logrus.Entry, opts ...option.ClientOption) (*Client, error) {
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Client{svc: svc, log: log}, nil
}

// FindFolder returns the ID of the first non-trashed folder with the given
// name, or an error if none exists.
func (c *Client) FindFolder(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf(
		"mimeType='application/vnd.google-apps.folder' and name='%s' and trashed=false",
		strings.ReplaceAll(name, "'", `\'`),
	)

	resp, err := c.svc.Files.List().
		Q(query).
		Spaces("drive").
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("folder lookup failed: %w", err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("folder %q not found", name)
	}

	c.log.WithFields(logrus.Fields{
		"folder":    name,
		"folder_id": resp.Files[0].Id,
	}).Info("found target folder")
	return resp.Files[0].Id, nil
}

// ListFolder returns all non-trashed files in a folder, following page
// tokens until the listing is exhausted. Order is the listing order the
// store returns; the pipeline's row/color coupling relies on it staying
// stable for the duration of one run.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]File, error) {
	var files []File
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
			Spaces("drive").
			Fields("nextPageToken, files(id, name)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("folder listing failed: %w", err)
		}
		for _, f := range resp.Files {
			files = append(files, File{ID: f.Id, Name: f.Name})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return files, nil
		}
	}
}

// Download fetches a file's content into memory.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download of %s failed: %w", fileID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download of %s failed: %w", fileID, err)
	}

	c.log.WithFields(logrus.Fields{
		"file_id": fileID,
		"bytes":   len(data),
	}).Debug("file downloaded in memory")
	return data, nil
}

// Upload stores a local file in the given folder under its base name and
// returns the remote file ID.
func (c *Client) Upload(ctx context.Context, localPath, folderID string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	meta := &gdrive.File{
		Name:    filepath.Base(localPath),
		Parents: []string{folderID},
	}

	mimeType := mime.TypeByExtension(filepath.Ext(localPath))
	mediaOpts := []googleapi.MediaOption{}
	if mimeType != "" {
		mediaOpts = append(mediaOpts, googleapi.ContentType(mimeType))
	}

	created, err := c.svc.Files.Create(meta).
		Media(f, mediaOpts...).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload of %s failed: %w", localPath, err)
	}

	c.log.WithFields(logrus.Fields{
		"file":      meta.Name,
		"remote_id": created.Id,
	}).Info("file uploaded")
	return created.Id, nil
}
