package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// CloudStorageClient uploads chat and profile media to the app's bucket and
// returns public download URLs.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName, credentialsPath string) (*CloudStorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// UploadChatImage stores a chat attachment under chat_images/{roomID}/.
func (c *CloudStorageClient) UploadChatImage(ctx context.Context, roomID string, file io.Reader, contentType string) (string, error) {
	objectName := fmt.Sprintf("chat_images/%s/chat_%s_%s%s", roomID, roomID, uuid.New().String(), extensionFor(contentType))
	return c.upload(ctx, objectName, file, contentType)
}

// UploadProfileImage stores the user's avatar at a fixed path so a re-upload
// replaces the previous one.
func (c *CloudStorageClient) UploadProfileImage(ctx context.Context, userID string, file io.Reader, contentType string) (string, error) {
	objectName := fmt.Sprintf("profile_images/%s%s", userID, extensionFor(contentType))
	return c.upload(ctx, objectName, file, contentType)
}

func (c *CloudStorageClient) upload(ctx context.Context, objectName string, file io.Reader, contentType string) (string, error) {
	obj := c.client.Bucket(c.bucketName).Object(objectName)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, file); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy file to storage: %v", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload: %v", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to set ACL: %v", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectName), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
