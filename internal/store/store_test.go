package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/internal/prediction"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

func setupKV(t *testing.T) (*miniredis.Miniredis, kv.Store) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, kv.NewRedis(rdb)
}

// failingStore rejects every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("down") }
func (failingStore) Ping(context.Context) error           { return errors.New("down") }

func TestKeyspace(t *testing.T) {
	assert.Equal(t, "cogniscreen:c1:userHistory", NewKeyspace("cogniscreen:").Key("c1", KeyHistory))
	assert.Equal(t, "c1:userHistory", NewKeyspace("").Key("c1", KeyHistory))
}

func TestDrafts_RoundTripAndExpiry(t *testing.T) {
	mr, s := setupKV(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	d := NewDrafts(s, NewKeyspace("t"), 24*time.Hour)
	d.now = func() time.Time { return now }

	draft := assessment.Draft{Section: 1, FormData: assessment.FormData{"mmse": "25"}, Timestamp: now.UnixMilli()}
	d.Save(ctx, "c1", draft)
	assert.True(t, mr.Exists("t:c1:medicalAssessmentDraft"))

	got, ok := d.Load(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, draft, got)

	_, ok = d.Load(ctx, "c2")
	assert.False(t, ok, "drafts are scoped per client")

	now = now.Add(23 * time.Hour)
	_, ok = d.Load(ctx, "c1")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok = d.Load(ctx, "c1")
	assert.False(t, ok, "a 25h old draft is not offered")

	d.Clear(ctx, "c1")
	assert.False(t, mr.Exists("t:c1:medicalAssessmentDraft"))
}

func TestDrafts_FailuresAreSilent(t *testing.T) {
	d := NewDrafts(failingStore{}, NewKeyspace("t"), 0)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		d.Save(ctx, "c1", assessment.Draft{})
		d.Clear(ctx, "c1")
	})
	_, ok := d.Load(ctx, "c1")
	assert.False(t, ok)
}

func TestDrafts_Autosave(t *testing.T) {
	_, s := setupKV(t)
	ctx := context.Background()
	d := NewDrafts(s, NewKeyspace("t"), 0)

	f := assessment.NewForm()
	f.Subscribe(d.Autosave(ctx, "c1", f))

	_, err := f.SetField("mmse", "27")
	require.NoError(t, err)
	_, err = f.SetField("cdr", "0")
	require.NoError(t, err)
	require.NoError(t, f.Next())

	got, ok := d.Load(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, assessment.SectionImaging, got.Section)
	assert.Equal(t, assessment.FormData{"mmse": "27", "cdr": "0"}, got.FormData)
}

func TestSnapshots(t *testing.T) {
	_, s := setupKV(t)
	ctx := context.Background()
	snap := NewSnapshots(s, NewKeyspace("t"))

	_, err := snap.Last(ctx, "c1")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	data := assessment.FormData{"age": "80"}
	res := prediction.NewEstimator(nil).Estimate(data)
	snap.SaveData(ctx, "c1", data)
	snap.SaveResult(ctx, "c1", res)

	got, err := snap.Last(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, data, got.Data)
	assert.Equal(t, res.RiskLevel, got.Result.RiskLevel)
	assert.Equal(t, *res.Confidence, *got.Result.Confidence)
}

func TestSessions(t *testing.T) {
	mr, s := setupKV(t)
	ctx := context.Background()
	sessions := NewSessions(s, NewKeyspace("t"), time.Hour)

	st := assessment.State{Section: 1, Values: map[string]string{"mmse": "20"}}
	sess, err := sessions.Create(ctx, "c1", st)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	got, err := sessions.Load(ctx, "c1", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, st, got.State)

	_, err = sessions.Load(ctx, "c2", sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = sessions.Load(ctx, "c1", "not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got.State.Section = 2
	require.NoError(t, sessions.Save(ctx, "c1", got))
	got, err = sessions.Load(ctx, "c1", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.Section(2), got.State.Section)

	other, err := sessions.Create(ctx, "c1", st)
	require.NoError(t, err)
	require.NoError(t, sessions.Delete(ctx, "c1", other.ID))
	_, err = sessions.Load(ctx, "c1", other.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	mr.FastForward(2 * time.Hour)
	_, err = sessions.Load(ctx, "c1", sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
