package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Alijeyrad/cogniscreen/config"
	form "github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/internal/events"
	"github.com/Alijeyrad/cogniscreen/internal/history"
	"github.com/Alijeyrad/cogniscreen/internal/prediction"
	"github.com/Alijeyrad/cogniscreen/internal/store"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// View is the rendered state of a session.
type View struct {
	ID        string                  `json:"id"`
	Section   form.Section            `json:"section"`
	Title     string                  `json:"title"`
	Values    map[string]string       `json:"values"`
	Data      form.FormData           `json:"form_data"`
	Verdicts  map[string]form.Verdict `json:"verdicts"`
	Progress  form.Progress           `json:"progress"`
	Submitted bool                    `json:"submitted"`
}

// DraftOffer describes a restorable draft without applying it.
type DraftOffer struct {
	Section form.Section  `json:"section"`
	Title   string        `json:"title"`
	Fields  int           `json:"fields"`
	SavedAt time.Time     `json:"saved_at"`
	Data    form.FormData `json:"form_data"`
}

type StartResponse struct {
	Session View        `json:"session"`
	Draft   *DraftOffer `json:"draft,omitempty"`
}

type FieldResponse struct {
	Verdict form.Verdict `json:"verdict"`
	Session View         `json:"session"`
}

// Outcome is what a completed submission hands back to the caller. Session
// is set for session submits, including rejected ones.
type Outcome struct {
	Data            form.FormData     `json:"assessment_data"`
	Result          prediction.Result `json:"prediction_result"`
	RecordID        string            `json:"record_id,omitempty"`
	RedirectTo      string            `json:"redirect_to"`
	RedirectAfterMs int               `json:"redirect_after_ms"`
	Session         *View             `json:"session,omitempty"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

// Submitter produces a result for submitted form data. It never fails.
type Submitter interface {
	Submit(ctx context.Context, data map[string]string) prediction.Result
}

type Service interface {
	Fields() []form.FieldRule
	Field(name string) (form.FieldRule, bool)
	Validate(name, value string) form.Verdict

	Start(ctx context.Context, client string) (StartResponse, error)
	Get(ctx context.Context, client, id string) (View, error)
	SetField(ctx context.Context, client, id, name, value string) (FieldResponse, error)
	Next(ctx context.Context, client, id string) (View, error)
	Previous(ctx context.Context, client, id string) (View, error)
	GoTo(ctx context.Context, client, id string, section int) (View, error)
	ResumeDraft(ctx context.Context, client, id string) (View, error)
	Submit(ctx context.Context, client, id string) (Outcome, error)
	// Discard deletes a session. The client's draft is left alone.
	Discard(ctx context.Context, client, id string) error

	// Draft returns the restorable draft for client, if any.
	Draft(ctx context.Context, client string) (*DraftOffer, error)
	// Autosave returns a listener persisting f as the client's draft.
	Autosave(ctx context.Context, client string, f *form.Form) form.Listener
	// Complete runs the post-submit pipeline for an already validated form.
	Complete(ctx context.Context, client string, data form.FormData) (Outcome, error)
	Result(ctx context.Context, client string) (store.Submission, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type assessmentService struct {
	cfg       config.AssessmentConfig
	drafts    *store.Drafts
	sessions  *store.Sessions
	snapshots *store.Snapshots
	history   *history.Log
	predictor Submitter
	events    *events.Publisher
}

func New(
	cfg config.AssessmentConfig,
	drafts *store.Drafts,
	sessions *store.Sessions,
	snapshots *store.Snapshots,
	log *history.Log,
	predictor Submitter,
	pub *events.Publisher,
) Service {
	return &assessmentService{
		cfg:       cfg,
		drafts:    drafts,
		sessions:  sessions,
		snapshots: snapshots,
		history:   log,
		predictor: predictor,
		events:    pub,
	}
}

func (s *assessmentService) Fields() []form.FieldRule {
	return form.Rules()
}

func (s *assessmentService) Field(name string) (form.FieldRule, bool) {
	return form.Rule(name)
}

func (s *assessmentService) Validate(name, value string) form.Verdict {
	return form.Validate(name, value)
}

func (s *assessmentService) Start(ctx context.Context, client string) (StartResponse, error) {
	f := form.NewForm()
	sess, err := s.sessions.Create(ctx, client, f.State())
	if err != nil {
		return StartResponse{}, err
	}
	offer, _ := s.Draft(ctx, client)
	return StartResponse{Session: render(sess.ID, f), Draft: offer}, nil
}

func (s *assessmentService) Draft(ctx context.Context, client string) (*DraftOffer, error) {
	d, ok := s.drafts.Load(ctx, client)
	if !ok {
		return nil, ErrNoDraft
	}
	return &DraftOffer{
		Section: d.Section,
		Title:   d.Section.Title(),
		Fields:  len(d.FormData),
		SavedAt: d.SavedAt().UTC(),
		Data:    d.FormData,
	}, nil
}

func (s *assessmentService) Autosave(ctx context.Context, client string, f *form.Form) form.Listener {
	return s.drafts.Autosave(ctx, client, f)
}

func (s *assessmentService) Get(ctx context.Context, client, id string) (View, error) {
	sess, f, err := s.open(ctx, client, id)
	if err != nil {
		return View{}, err
	}
	return render(sess.ID, f), nil
}

func (s *assessmentService) SetField(ctx context.Context, client, id, name, value string) (FieldResponse, error) {
	var verdict form.Verdict
	view, err := s.mutate(ctx, client, id, func(f *form.Form) error {
		v, err := f.SetField(name, value)
		verdict = v
		return err
	})
	if err != nil {
		return FieldResponse{}, err
	}
	return FieldResponse{Verdict: verdict, Session: view}, nil
}

func (s *assessmentService) Next(ctx context.Context, client, id string) (View, error) {
	return s.mutate(ctx, client, id, func(f *form.Form) error { return f.Next() })
}

func (s *assessmentService) Previous(ctx context.Context, client, id string) (View, error) {
	return s.mutate(ctx, client, id, func(f *form.Form) error { return f.Previous() })
}

func (s *assessmentService) GoTo(ctx context.Context, client, id string, section int) (View, error) {
	return s.mutate(ctx, client, id, func(f *form.Form) error { return f.GoTo(form.Section(section)) })
}

func (s *assessmentService) ResumeDraft(ctx context.Context, client, id string) (View, error) {
	d, ok := s.drafts.Load(ctx, client)
	if !ok {
		return View{}, ErrNoDraft
	}
	return s.mutate(ctx, client, id, func(f *form.Form) error { return f.Restore(d) })
}

func (s *assessmentService) Submit(ctx context.Context, client, id string) (Outcome, error) {
	var data form.FormData
	view, err := s.mutate(ctx, client, id, func(f *form.Form) error {
		d, err := f.Submit()
		data = d
		return err
	})
	if err != nil {
		if view.ID == "" {
			return Outcome{}, err
		}
		return Outcome{Session: &view}, err
	}

	out, err := s.Complete(ctx, client, data)
	if err != nil {
		return Outcome{}, err
	}
	out.Session = &view
	return out, nil
}

func (s *assessmentService) Discard(ctx context.Context, client, id string) error {
	if _, _, err := s.open(ctx, client, id); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, client, id)
}

func (s *assessmentService) Complete(ctx context.Context, client string, data form.FormData) (Outcome, error) {
	if len(data) == 0 {
		return Outcome{}, ErrEmptySubmission
	}

	s.drafts.Clear(ctx, client)
	s.snapshots.SaveData(ctx, client, data)

	res := s.predictor.Submit(ctx, data)
	s.snapshots.SaveResult(ctx, client, res)

	out := Outcome{
		Data:            data,
		Result:          res,
		RedirectTo:      s.cfg.ResultsPath,
		RedirectAfterMs: int(s.cfg.RedirectDelay() / time.Millisecond),
	}

	rec, err := s.history.Add(ctx, client, data, res)
	if err != nil {
		slog.WarnContext(ctx, "history not recorded", "client", client, "error", err)
	} else {
		out.RecordID = rec.ID
	}

	s.events.AssessmentCompleted(ctx, events.Completed{
		Client:     client,
		RecordID:   out.RecordID,
		RiskLevel:  res.RiskLevel,
		Prediction: res.Prediction,
		Source:     string(res.Source),
		Confidence: res.Confidence,
		At:         time.Now().UTC(),
	})

	slog.InfoContext(ctx, "assessment submitted",
		"client", client,
		"risk_level", res.RiskLevel,
		"source", res.Source,
	)
	return out, nil
}

func (s *assessmentService) Result(ctx context.Context, client string) (store.Submission, error) {
	sub, err := s.snapshots.Last(ctx, client)
	if errors.Is(err, kv.ErrNotFound) {
		return store.Submission{}, ErrNoResult
	}
	if err != nil {
		return store.Submission{}, fmt.Errorf("load result: %w", err)
	}
	return sub, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *assessmentService) open(ctx context.Context, client, id string) (store.Session, *form.Form, error) {
	sess, err := s.sessions.Load(ctx, client, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return store.Session{}, nil, ErrSessionNotFound
	}
	if err != nil {
		return store.Session{}, nil, err
	}
	return sess, form.FromState(sess.State), nil
}

// mutate rehydrates the session, applies op with autosave attached and
// writes the session back. A rejected section change is still persisted
// so the caller sees the same state on the next request.
func (s *assessmentService) mutate(ctx context.Context, client, id string, op func(*form.Form) error) (View, error) {
	sess, f, err := s.open(ctx, client, id)
	if err != nil {
		return View{}, err
	}
	f.Subscribe(s.drafts.Autosave(ctx, client, f))

	opErr := op(f)

	sess.State = f.State()
	if err := s.sessions.Save(ctx, client, sess); err != nil {
		return View{}, err
	}
	return render(sess.ID, f), opErr
}

func render(id string, f *form.Form) View {
	st := f.State()
	verdicts := make(map[string]form.Verdict, len(st.Values))
	for name := range st.Values {
		verdicts[name] = f.Verdict(name)
	}
	return View{
		ID:        id,
		Section:   st.Section,
		Title:     st.Section.Title(),
		Values:    st.Values,
		Data:      f.Data(),
		Verdicts:  verdicts,
		Progress:  f.Progress(),
		Submitted: st.Submitted,
	}
}
