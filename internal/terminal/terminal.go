// Package terminal renders the assessment form on a line-oriented terminal.
//
// The form controller knows nothing about rendering: Runner subscribes a
// printing listener next to the autosave listener and prompts field by
// field, section by section. Completion goes through the same service
// pipeline as the HTTP API.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	form "github.com/Alijeyrad/cogniscreen/internal/assessment"
	"github.com/Alijeyrad/cogniscreen/internal/prediction"
	"github.com/Alijeyrad/cogniscreen/internal/service/assessment"
)

// ErrQuit is returned when the user leaves before submitting. The draft
// is kept.
var ErrQuit = errors.New("assessment abandoned")

const (
	cmdBack = "<"
	cmdQuit = "q"
)

// optional inputs read by the fallback estimator, asked on the last section
var extras = []struct{ name, label string }{
	{"memory_names", "Names recalled (0-10, optional)"},
	{"math_test", "Answer to 100 - 21 (optional)"},
	{"family_history", "Family history (e.g. dementia, none; optional)"},
}

type Runner struct {
	svc    assessment.Service
	client string
	in     *bufio.Scanner
	out    io.Writer
	sleep  func(time.Duration)
}

func NewRunner(svc assessment.Service, client string, in io.Reader, out io.Writer) *Runner {
	return &Runner{
		svc:    svc,
		client: client,
		in:     bufio.NewScanner(in),
		out:    out,
		sleep:  time.Sleep,
	}
}

// Run drives one assessment to completion and prints the result.
func (r *Runner) Run(ctx context.Context) (assessment.Outcome, error) {
	f := form.NewForm()
	f.Subscribe(r.render)
	f.Subscribe(r.svc.Autosave(ctx, r.client, f))

	if err := r.offerDraft(ctx, f); err != nil {
		return assessment.Outcome{}, err
	}

	for !f.Submitted() {
		if err := ctx.Err(); err != nil {
			return assessment.Outcome{}, err
		}
		if err := r.section(f); err != nil {
			return assessment.Outcome{}, err
		}
	}

	out, err := r.svc.Complete(ctx, r.client, f.Data())
	if err != nil {
		return assessment.Outcome{}, err
	}

	fmt.Fprintln(r.out, "\nAnalyzing assessment...")
	r.sleep(time.Duration(out.RedirectAfterMs) * time.Millisecond)
	PrintResult(r.out, out.Result)
	if out.RecordID != "" {
		fmt.Fprintf(r.out, "Saved to history as %s\n", out.RecordID)
	}
	return out, nil
}

func (r *Runner) offerDraft(ctx context.Context, f *form.Form) error {
	offer, err := r.svc.Draft(ctx, r.client)
	if err != nil || offer == nil {
		return nil
	}

	fmt.Fprintf(r.out, "Found a saved draft from %s (%s, %d fields).\n",
		humanize.Time(offer.SavedAt), offer.Title, offer.Fields)
	answer, err := r.ask("Resume it? [y/N]: ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		return nil
	}
	return f.Restore(form.Draft{
		Section:   offer.Section,
		FormData:  offer.Data,
		Timestamp: offer.SavedAt.UnixMilli(),
	})
}

// section prompts every field of the active section, then tries to leave
// it. After a rejection only the failing fields are asked again.
func (r *Runner) section(f *form.Form) error {
	sec := f.Section()
	p := f.Progress()
	fmt.Fprintf(r.out, "\n== %s (%d/%d) ==  %d%% complete\n", sec.Title(), int(sec)+1, form.SectionCount, p.CompletionRate)

	names := make([]string, 0, len(form.RulesFor(sec)))
	for _, rule := range form.RulesFor(sec) {
		names = append(names, rule.Name)
	}

	for {
		for _, name := range names {
			moved, err := r.field(f, name)
			if err != nil || moved {
				return err
			}
		}
		if sec.Last() {
			for _, x := range extras {
				if err := r.extra(f, x.name, x.label); err != nil {
					return err
				}
			}
		}

		var err error
		if sec.Last() {
			_, err = f.Submit()
		} else {
			err = f.Next()
		}

		var se *form.SectionError
		if !errors.As(err, &se) {
			return err
		}
		names = names[:0]
		for _, fe := range se.Fields {
			names = append(names, fe.Field)
		}
	}
}

// field prompts one ruled field until it holds a valid value. moved
// reports that the user went back a section.
func (r *Runner) field(f *form.Form, name string) (moved bool, err error) {
	rule, _ := form.Rule(name)
	for {
		answer, err := r.ask(prompt(rule, f.Value(name)))
		if err != nil {
			return false, err
		}
		switch answer {
		case cmdQuit:
			return false, ErrQuit
		case cmdBack:
			if f.Section() == 0 {
				continue
			}
			return true, f.Previous()
		case "":
			if f.Verdict(name).Valid {
				return false, nil
			}
		}

		v, err := f.SetField(name, answer)
		if err != nil {
			return false, err
		}
		if v.Valid {
			return false, nil
		}
	}
}

func (r *Runner) extra(f *form.Form, name, label string) error {
	current := f.Value(name)
	q := label + ": "
	if current != "" {
		q = fmt.Sprintf("%s [%s]: ", label, current)
	}
	answer, err := r.ask(q)
	if err != nil {
		return err
	}
	if answer == cmdQuit {
		return ErrQuit
	}
	if answer == "" {
		return nil
	}
	_, err = f.SetField(name, answer)
	return err
}

func (r *Runner) ask(q string) (string, error) {
	fmt.Fprint(r.out, q)
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", err
		}
		return "", ErrQuit
	}
	return strings.TrimSpace(r.in.Text()), nil
}

// render is the form listener that reports verdicts and navigation.
func (r *Runner) render(e form.Event) {
	switch e.Type {
	case form.EventFieldChanged:
		switch {
		case e.Verdict.Error != "":
			fmt.Fprintf(r.out, "  ! %s\n", e.Verdict.Error)
		case e.Verdict.Warning != "":
			fmt.Fprintf(r.out, "  ~ %s\n", e.Verdict.Warning)
		}
	case form.EventSectionRejected:
		fmt.Fprintln(r.out, form.ErrSectionIncomplete.Error()+":")
		for _, fe := range e.Rejection.Fields {
			label := fe.Field
			if rule, ok := form.Rule(fe.Field); ok {
				label = rule.Label
			}
			fmt.Fprintf(r.out, "  - %s: %s\n", label, fe.Message)
		}
	case form.EventRestored:
		fmt.Fprintf(r.out, "Draft restored, continuing at %s.\n", e.To.Title())
	}
}

func prompt(rule form.FieldRule, current string) string {
	var b strings.Builder
	b.WriteString(rule.Label)
	if rule.Min != nil && rule.Max != nil {
		fmt.Fprintf(&b, " (%s-%s)", bound(*rule.Min), bound(*rule.Max))
	}
	if current != "" {
		fmt.Fprintf(&b, " [%s]", current)
	}
	b.WriteString(": ")
	return b.String()
}

func bound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PrintResult writes a result the way the results page lays it out. A
// fallback estimate looks exactly like a remote one.
func PrintResult(w io.Writer, res prediction.Result) {
	fmt.Fprintf(w, "\nRisk level:   %s\n", res.RiskLevel)
	fmt.Fprintf(w, "Confidence:   %s\n", orNA(res.Confidence, "%.0f%%"))
	fmt.Fprintf(w, "Memory:       %s\n", orNA(res.MemoryScore, "%.1f"))
	fmt.Fprintf(w, "Cognitive:    %s\n", orNA(res.CognitiveScore, "%.1f"))
	fmt.Fprintf(w, "Attention:    %s\n", orNA(res.AttentionScore, "%.1f"))
	fmt.Fprintf(w, "Language:     %s\n", orNA(res.LanguageScore, "%.1f"))
}

func orNA(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}
