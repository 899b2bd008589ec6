package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/cogniscreen/config"
	form "github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/internal/events"
	"github.com/Alijeyrad/cogniscreen/internal/history"
	"github.com/Alijeyrad/cogniscreen/internal/prediction"
	"github.com/Alijeyrad/cogniscreen/internal/store"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

type stubSubmitter struct {
	calls int
	got   map[string]string
}

func (s *stubSubmitter) Submit(_ context.Context, data map[string]string) prediction.Result {
	s.calls++
	s.got = data
	conf := 88.0
	return prediction.Result{Prediction: 0, RiskLevel: prediction.RiskLow, Confidence: &conf, Source: prediction.SourceRemote}
}

type fixture struct {
	svc     Service
	sub     *stubSubmitter
	history *history.Log
	drafts  *store.Drafts
}

func setup(t *testing.T) fixture {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := kv.NewRedis(rdb)
	keys := store.NewKeyspace("test")
	cfg := config.AssessmentConfig{HistoryLimit: 50, RedirectDelayMs: 2000, ResultsPath: "/results.html"}

	f := fixture{
		sub:     &stubSubmitter{},
		history: history.NewLog(s, keys, cfg.HistoryLimit),
		drafts:  store.NewDrafts(s, keys, cfg.DraftMaxAge()),
	}
	f.svc = New(cfg, f.drafts, store.NewSessions(s, keys, time.Hour), store.NewSnapshots(s, keys), f.history, f.sub, events.NewPublisher(nil, "test"))
	return f
}

var complete = map[form.Section]map[string]string{
	form.SectionCognitive:    {"mmse": "27", "cdr": "0"},
	form.SectionImaging:      {"nwbv": "0.75", "etiv": "1500", "asf": "1.2"},
	form.SectionDemographics: {"age": "68", "education": "16", "gender": "M", "ses": "2"},
}

func fill(t *testing.T, f fixture, id string, sec form.Section) {
	t.Helper()
	for name, v := range complete[sec] {
		_, err := f.svc.SetField(context.Background(), "c1", id, name, v)
		require.NoError(t, err)
	}
}

func TestStartAndSetField(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, start.Draft)
	assert.Equal(t, form.SectionCognitive, start.Session.Section)
	assert.Equal(t, "Cognitive Assessment", start.Session.Title)

	res, err := f.svc.SetField(ctx, "c1", start.Session.ID, "mmse", " 17 ")
	require.NoError(t, err)
	assert.True(t, res.Verdict.Valid)
	assert.Equal(t, "Score suggests moderate cognitive impairment", res.Verdict.Warning)
	assert.Equal(t, "17", res.Session.Data["mmse"])
	assert.Equal(t, 1, res.Session.Progress.Completed)

	res, err = f.svc.SetField(ctx, "c1", start.Session.ID, "mmse", "31")
	require.NoError(t, err)
	assert.Equal(t, "Value must not exceed 30", res.Verdict.Error)
	assert.NotContains(t, res.Session.Data, "mmse")

	_, err = f.svc.Get(ctx, "c2", start.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNextIsGated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start, err := f.svc.Start(ctx, "c1")
	require.NoError(t, err)
	id := start.Session.ID

	view, err := f.svc.Next(ctx, "c1", id)
	var secErr *form.SectionError
	require.ErrorAs(t, err, &secErr)
	assert.Equal(t, "mmse", secErr.Focus())
	assert.Equal(t, form.SectionCognitive, view.Section)

	_, err = f.svc.GoTo(ctx, "c1", id, 2)
	assert.ErrorIs(t, err, form.ErrSectionLocked)

	fill(t, f, id, form.SectionCognitive)
	view, err = f.svc.Next(ctx, "c1", id)
	require.NoError(t, err)
	assert.Equal(t, form.SectionImaging, view.Section)

	view, err = f.svc.Previous(ctx, "c1", id)
	require.NoError(t, err)
	assert.Equal(t, form.SectionCognitive, view.Section)

	view, err = f.svc.Get(ctx, "c1", id)
	require.NoError(t, err)
	assert.Equal(t, form.SectionCognitive, view.Section, "navigation is persisted")
}

func TestDraftResume(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, "c1")
	require.NoError(t, err)
	fill(t, f, first.Session.ID, form.SectionCognitive)
	_, err = f.svc.Next(ctx, "c1", first.Session.ID)
	require.NoError(t, err)

	second, err := f.svc.Start(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, second.Draft)
	assert.Equal(t, form.SectionImaging, second.Draft.Section)
	assert.Equal(t, 2, second.Draft.Fields)

	view, err := f.svc.ResumeDraft(ctx, "c1", second.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, form.SectionImaging, view.Section)
	assert.Equal(t, "27", view.Data["mmse"])

	other, err := f.svc.Start(ctx, "c2")
	require.NoError(t, err)
	_, err = f.svc.ResumeDraft(ctx, "c2", other.Session.ID)
	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestSubmit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start, err := f.svc.Start(ctx, "c1")
	require.NoError(t, err)
	id := start.Session.ID

	_, err = f.svc.Submit(ctx, "c1", id)
	assert.ErrorIs(t, err, form.ErrNotFinalSection)

	_, err = f.svc.Result(ctx, "c1")
	assert.ErrorIs(t, err, ErrNoResult)

	for _, sec := range []form.Section{form.SectionCognitive, form.SectionImaging, form.SectionDemographics} {
		fill(t, f, id, sec)
		if !sec.Last() {
			_, err = f.svc.Next(ctx, "c1", id)
			require.NoError(t, err)
		}
	}

	out, err := f.svc.Submit(ctx, "c1", id)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sub.calls)
	assert.Equal(t, "68", f.sub.got["age"])
	assert.Equal(t, "/results.html", out.RedirectTo)
	assert.Equal(t, 2000, out.RedirectAfterMs)
	assert.NotEmpty(t, out.RecordID)

	_, ok := f.drafts.Load(ctx, "c1")
	assert.False(t, ok, "draft is discarded after submit")

	sub, err := f.svc.Result(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, prediction.RiskLow, sub.Result.RiskLevel)
	assert.Len(t, sub.Data, 9)

	records, err := f.history.List(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, out.RecordID, records[0].ID)

	_, err = f.svc.SetField(ctx, "c1", id, "age", "70")
	assert.ErrorIs(t, err, form.ErrAlreadySubmitted)
	_, err = f.svc.Submit(ctx, "c1", id)
	assert.ErrorIs(t, err, form.ErrAlreadySubmitted)
	assert.Equal(t, 1, f.sub.calls)
}

func TestComplete_Empty(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Complete(context.Background(), "c1", form.FormData{})
	assert.True(t, errors.Is(err, ErrEmptySubmission))
	assert.Zero(t, f.sub.calls)
}

func TestSubmit_RejectedCarriesSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start, err := f.svc.Start(ctx, "c1")
	require.NoError(t, err)
	id := start.Session.ID

	for _, sec := range []form.Section{form.SectionCognitive, form.SectionImaging} {
		fill(t, f, id, sec)
		_, err = f.svc.Next(ctx, "c1", id)
		require.NoError(t, err)
	}
	_, err = f.svc.SetField(ctx, "c1", id, "age", "68")
	require.NoError(t, err)

	out, err := f.svc.Submit(ctx, "c1", id)
	var se *form.SectionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "education", se.Focus())
	require.NotNil(t, out.Session)
	assert.Equal(t, id, out.Session.ID)
	assert.Equal(t, form.SectionDemographics, out.Session.Section)
	assert.Equal(t, "68", out.Session.Values["age"])
	assert.False(t, out.Session.Submitted)
	assert.Zero(t, f.sub.calls)

	_, err = f.svc.Submit(ctx, "c1", "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDiscard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start, err := f.svc.Start(ctx, "c1")
	require.NoError(t, err)
	id := start.Session.ID
	_, err = f.svc.SetField(ctx, "c1", id, "mmse", "27")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Discard(ctx, "c2", id), ErrSessionNotFound)
	require.NoError(t, f.svc.Discard(ctx, "c1", id))

	_, err = f.svc.Get(ctx, "c1", id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Discard(ctx, "c1", id), ErrSessionNotFound)

	_, ok := f.drafts.Load(ctx, "c1")
	assert.True(t, ok, "discarding a session keeps the draft")
}
