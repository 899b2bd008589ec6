package history

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/internal/history"
	"github.com/Alijeyrad/cogniscreen/internal/prediction"
	"github.com/Alijeyrad/cogniscreen/internal/store"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

type fakeUploader struct {
	key         string
	contentType string
	body        string
}

func (f *fakeUploader) Upload(_ context.Context, key, contentType string, body io.Reader, size int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.key, f.contentType, f.body = key, contentType, string(b)
	return nil
}

func (f *fakeUploader) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://s3.example.test/" + key + "?sig=x", nil
}

func setup(t *testing.T, up Uploader) (*history.Log, Service) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := history.NewLog(kv.NewRedis(rdb), store.NewKeyspace("test"), 50)
	svc := New(log, up).(*historyService)
	svc.loc = time.UTC
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return log, svc
}

func TestExport(t *testing.T) {
	log, svc := setup(t, nil)
	ctx := context.Background()

	_, err := svc.Export(ctx, "c1", "")
	assert.ErrorIs(t, err, history.ErrEmpty)

	_, err = log.Add(ctx, "c1", assessment.FormData{"age": "72"}, prediction.Result{RiskLevel: prediction.RiskLow})
	require.NoError(t, err)

	exp, err := svc.Export(ctx, "c1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "dementia_assessment_history_2024-06-01.csv", exp.Name)
	assert.Equal(t, "text/csv", exp.ContentType)
	assert.True(t, strings.HasPrefix(string(exp.Body), "Date,Risk Level"))

	exp, err = svc.Export(ctx, "c1", "xlsx")
	require.NoError(t, err)
	assert.NotEmpty(t, exp.Body)

	_, err = svc.Export(ctx, "c1", "pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestUpload(t *testing.T) {
	_, disabled := setup(t, nil)
	_, err := disabled.Upload(context.Background(), "c1", "csv")
	assert.ErrorIs(t, err, ErrUploadDisabled)

	up := &fakeUploader{}
	log, svc := setup(t, up)
	ctx := context.Background()
	_, err = log.Add(ctx, "c1", assessment.FormData{"gender": "F"}, prediction.Result{RiskLevel: prediction.RiskHigh})
	require.NoError(t, err)

	res, err := svc.Upload(ctx, "c1", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "exports/c1/"))
	assert.True(t, strings.HasSuffix(res.Key, "/dementia_assessment_history_2024-06-01.csv"))
	assert.Equal(t, res.Key, up.key)
	assert.Equal(t, "text/csv", up.contentType)
	assert.Contains(t, up.body, "High Risk")
	assert.Contains(t, res.URL, res.Key)
}

func TestListEmptyIsNotNil(t *testing.T) {
	_, svc := setup(t, nil)
	records, err := svc.List(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
