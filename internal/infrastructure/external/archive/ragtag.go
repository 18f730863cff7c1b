package archive

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/pkg/config"
)

// RagtagMirror reads the Ragtag archive through its S3-compatible content
// bucket. Objects are laid out as "{videoID}/{fileName}".
type RagtagMirror struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewRagtagMirror creates the mirror from configuration. Anonymous access
// works for public buckets, keys are only needed for private mirrors.
func NewRagtagMirror(cfg *config.RagtagConfig, logger *zap.Logger) (*RagtagMirror, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &minio.Options{Secure: cfg.UseSSL}
	if cfg.AccessKeyID != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ragtag client: %w", err)
	}

	return &RagtagMirror{client: client, bucket: cfg.BucketName, logger: logger}, nil
}

func (m *RagtagMirror) Name() string { return "ragtag" }

// ListFiles lists the video's archived files.
func (m *RagtagMirror) ListFiles(ctx context.Context, videoID string) ([]File, error) {
	prefix := videoID + "/"

	var files []File
	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if object.Err != nil {
			return nil, apperrors.ErrExternalAPIFailed("ragtag", object.Err)
		}
		name := object.Key[len(prefix):]
		if name == "" {
			continue
		}
		files = append(files, File{
			Type: Classify(videoID, name),
			Name: name,
			Size: object.Size,
		})
	}

	if len(files) == 0 {
		return nil, apperrors.ErrNotFound("video " + videoID + " in ragtag archive")
	}
	return files, nil
}

// Download fetches one archived file whole.
func (m *RagtagMirror) Download(ctx context.Context, videoID, fileName string) ([]byte, error) {
	objectName := videoID + "/" + fileName
	m.logger.Info("downloading from ragtag archive",
		zap.String("video_id", videoID), zap.String("file", fileName))

	object, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.ErrExternalAPIFailed("ragtag", err)
	}
	defer object.Close()

	raw, err := io.ReadAll(object)
	if err != nil {
		return nil, apperrors.ErrExternalAPIFailed("ragtag", err)
	}
	return raw, nil
}
