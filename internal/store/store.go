// Package store persists assessment state under per-client logical keys:
// the autosaved draft, the last submission snapshot and server-side form
// sessions. History lives in package history on the same keyspace.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/internal/prediction"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

const (
	KeyAssessmentData   = "assessmentData"
	KeyPredictionResult = "predictionResult"
	KeyHistory          = "userHistory"
	KeyDraft            = "medicalAssessmentDraft"
	keySessionPrefix    = "formSession:"
)

// Keyspace builds fully qualified keys: {prefix}:{client}:{name}.
type Keyspace struct {
	prefix string
}

func NewKeyspace(prefix string) Keyspace {
	return Keyspace{prefix: strings.TrimSuffix(prefix, ":")}
}

func (k Keyspace) Key(client, name string) string {
	if k.prefix == "" {
		return client + ":" + name
	}
	return k.prefix + ":" + client + ":" + name
}

// Drafts is the autosave slot. Write failures are logged and dropped so
// that editing never fails because storage is down.
type Drafts struct {
	kv     kv.Store
	keys   Keyspace
	maxAge time.Duration
	now    func() time.Time
}

func NewDrafts(s kv.Store, keys Keyspace, maxAge time.Duration) *Drafts {
	if maxAge <= 0 {
		maxAge = assessment.DraftMaxAge
	}
	return &Drafts{kv: s, keys: keys, maxAge: maxAge, now: time.Now}
}

func (d *Drafts) Save(ctx context.Context, client string, draft assessment.Draft) {
	// The stored entry outlives the offer window a little; Load decides freshness.
	if err := kv.SetJSON(ctx, d.kv, d.keys.Key(client, KeyDraft), draft, d.maxAge+time.Hour); err != nil {
		slog.WarnContext(ctx, "draft autosave failed", "client", client, "error", err)
	}
}

// Load returns the saved draft only when it is younger than the max age.
func (d *Drafts) Load(ctx context.Context, client string) (assessment.Draft, bool) {
	var draft assessment.Draft
	if err := kv.GetJSON(ctx, d.kv, d.keys.Key(client, KeyDraft), &draft); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			slog.WarnContext(ctx, "draft load failed", "client", client, "error", err)
		}
		return assessment.Draft{}, false
	}
	if d.now().Sub(draft.SavedAt()) >= d.maxAge {
		return assessment.Draft{}, false
	}
	return draft, true
}

func (d *Drafts) Clear(ctx context.Context, client string) {
	if err := d.kv.Delete(ctx, d.keys.Key(client, KeyDraft)); err != nil {
		slog.WarnContext(ctx, "draft clear failed", "client", client, "error", err)
	}
}

// Autosave returns a form listener that persists a draft on every field
// or section change.
func (d *Drafts) Autosave(ctx context.Context, client string, f *assessment.Form) assessment.Listener {
	return func(e assessment.Event) {
		switch e.Type {
		case assessment.EventFieldChanged, assessment.EventSectionChanged, assessment.EventRestored:
			d.Save(ctx, client, f.Draft(d.now()))
		}
	}
}

// Submission is the last submitted form and its result.
type Submission struct {
	Data   assessment.FormData `json:"assessmentData"`
	Result prediction.Result   `json:"predictionResult"`
}

// Snapshots holds the assessmentData and predictionResult slots the
// results page reads.
type Snapshots struct {
	kv   kv.Store
	keys Keyspace
}

func NewSnapshots(s kv.Store, keys Keyspace) *Snapshots {
	return &Snapshots{kv: s, keys: keys}
}

func (s *Snapshots) SaveData(ctx context.Context, client string, data assessment.FormData) {
	if err := kv.SetJSON(ctx, s.kv, s.keys.Key(client, KeyAssessmentData), data, 0); err != nil {
		slog.WarnContext(ctx, "assessment snapshot failed", "client", client, "error", err)
	}
}

func (s *Snapshots) SaveResult(ctx context.Context, client string, res prediction.Result) {
	if err := kv.SetJSON(ctx, s.kv, s.keys.Key(client, KeyPredictionResult), res, 0); err != nil {
		slog.WarnContext(ctx, "prediction snapshot failed", "client", client, "error", err)
	}
}

// Last returns the most recent submission. Both slots must be present.
func (s *Snapshots) Last(ctx context.Context, client string) (Submission, error) {
	var sub Submission
	if err := kv.GetJSON(ctx, s.kv, s.keys.Key(client, KeyAssessmentData), &sub.Data); err != nil {
		return Submission{}, err
	}
	if err := kv.GetJSON(ctx, s.kv, s.keys.Key(client, KeyPredictionResult), &sub.Result); err != nil {
		return Submission{}, err
	}
	return sub, nil
}
