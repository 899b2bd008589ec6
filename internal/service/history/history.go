package history

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/cogniscreen/internal/history"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type Export struct {
	Name        string
	ContentType string
	Body        []byte
}

type Upload struct {
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

// Uploader is the object storage used for shared exports.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignDownload(ctx context.Context, key string) (string, error)
}

type Service interface {
	List(ctx context.Context, client string, limit int) ([]history.Record, error)
	Get(ctx context.Context, client, id string) (history.Record, error)
	Clear(ctx context.Context, client string) error
	Export(ctx context.Context, client, format string) (Export, error)
	Upload(ctx context.Context, client, format string) (Upload, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type historyService struct {
	log      *history.Log
	uploader Uploader
	loc      *time.Location
	now      func() time.Time
}

// New builds the service. uploader may be nil, which disables Upload.
func New(log *history.Log, uploader Uploader) Service {
	return &historyService{log: log, uploader: uploader, loc: time.Local, now: time.Now}
}

func (s *historyService) List(ctx context.Context, client string, limit int) ([]history.Record, error) {
	records, err := s.log.List(ctx, client, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if records == nil {
		records = []history.Record{}
	}
	return records, nil
}

func (s *historyService) Get(ctx context.Context, client, id string) (history.Record, error) {
	return s.log.Get(ctx, client, id)
}

func (s *historyService) Clear(ctx context.Context, client string) error {
	return s.log.Clear(ctx, client)
}

func (s *historyService) Export(ctx context.Context, client, format string) (Export, error) {
	if format == "" {
		format = history.FormatCSV
	}
	if format != history.FormatCSV && format != history.FormatXLSX {
		return Export{}, ErrUnsupportedFormat
	}

	records, err := s.log.List(ctx, client, 0)
	if err != nil {
		return Export{}, fmt.Errorf("list history: %w", err)
	}

	var buf bytes.Buffer
	if err := history.Write(&buf, format, records, s.loc); err != nil {
		return Export{}, err
	}
	return Export{
		Name:        history.FileName(format, s.now().In(s.loc)),
		ContentType: history.ContentType(format),
		Body:        buf.Bytes(),
	}, nil
}

// Upload stores an export in object storage under
// exports/{client}/{uuid}/{file} and returns a presigned download URL.
func (s *historyService) Upload(ctx context.Context, client, format string) (Upload, error) {
	if s.uploader == nil {
		return Upload{}, ErrUploadDisabled
	}

	exp, err := s.Export(ctx, client, format)
	if err != nil {
		return Upload{}, err
	}

	key := path.Join("exports", client, uuid.NewString(), exp.Name)
	if err := s.uploader.Upload(ctx, key, exp.ContentType, bytes.NewReader(exp.Body), int64(len(exp.Body))); err != nil {
		return Upload{}, err
	}
	url, err := s.uploader.PresignDownload(ctx, key)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Key: key, Name: exp.Name, URL: url, CreatedAt: s.now().UTC()}, nil
}
