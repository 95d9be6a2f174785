package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"signline/internal/config"
	"signline/internal/db"
	"signline/internal/domain"
	"signline/internal/engine"
	"signline/internal/migrate"
	"signline/internal/repo"
)

type fakeCatalog struct {
	fields map[string][]domain.SignatureField
	errs   map[string]error
}

func (f *fakeCatalog) Fields(_ context.Context, templateID string) ([]domain.SignatureField, error) {
	if err, ok := f.errs[templateID]; ok {
		return nil, err
	}
	return f.fields[templateID], nil
}

type fakeSubmitter struct {
	fail    map[string]error
	calls   []string
	layouts map[string][]domain.SignatureField
}

func (f *fakeSubmitter) Submit(_ context.Context, documentID, _, _, _ string, layout []domain.SignatureField) error {
	f.calls = append(f.calls, documentID)
	f.layouts[documentID] = layout
	if err, ok := f.fail[documentID]; ok {
		return err
	}
	return nil
}

type testEnv struct {
	Engine    engine.Engine
	Catalog   *fakeCatalog
	Submitter *fakeSubmitter
	Ctx       context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cat := &fakeCatalog{fields: map[string][]domain.SignatureField{
		"tpl-nda": {
			{ID: "sig-1", Type: domain.FieldSignature, Page: 1, XPercent: 10, YPercent: 80, WidthPercent: 20, HeightPercent: 5, Required: true},
			{ID: "date-1", Type: domain.FieldDate, Page: 1, XPercent: 40, YPercent: 80, WidthPercent: 10, HeightPercent: 4, Required: true},
		},
		"tpl-lease": {
			{ID: "init-1", Type: domain.FieldInitial, Page: 1, XPercent: 5, YPercent: 5, WidthPercent: 8, HeightPercent: 4, Required: true},
			{ID: "sig-1", Type: domain.FieldSignature, Page: 2, XPercent: 10, YPercent: 90, WidthPercent: 20, HeightPercent: 5, Required: true},
		},
	}}
	sub := &fakeSubmitter{fail: map[string]error{}, layouts: map[string][]domain.SignatureField{}}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	eng.Catalog = cat
	eng.Submitter = sub
	return testEnv{Engine: eng, Catalog: cat, Submitter: sub, Ctx: context.Background()}
}

func startSession(t *testing.T, env testEnv) domain.Session {
	t.Helper()
	s, degraded, err := env.Engine.StartSession(env.Ctx, engine.SessionCreateOptions{
		ID:         "sess-1",
		SignerID:   "signer-1",
		SignerName: "Ada Lovelace",
		Documents: []engine.DocumentInput{
			{ID: "doc-nda", Name: "NDA", TemplateID: "tpl-nda"},
			{ID: "doc-lease", Name: "Lease", TemplateID: "tpl-lease"},
		},
		ActorID: "host-1",
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if len(degraded) != 0 {
		t.Fatalf("unexpected degraded docs: %v", degraded)
	}
	return s
}

// adoptTyped walks the session into signing through a typed adoption.
func adoptTyped(t *testing.T, env testEnv, sessionID string) {
	t.Helper()
	s, err := env.Engine.StartSigning(env.Ctx, sessionID, "signer-1")
	if err != nil {
		t.Fatalf("start signing: %v", err)
	}
	if s.Step != domain.StepAdopt {
		t.Fatalf("first-time signer should land in adopt, got %s", s.Step)
	}
	s, err = env.Engine.Adopt(env.Ctx, engine.AdoptOptions{
		SessionID: sessionID,
		Method:    domain.MethodType,
		Signature: "Ada Lovelace",
		Initials:  "AL",
		ActorID:   "signer-1",
	})
	if err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if s.Step != domain.StepSigning {
		t.Fatalf("adopt should move to signing, got %s", s.Step)
	}
}

func completeAll(t *testing.T, env testEnv, sessionID string) {
	t.Helper()
	states, err := env.Engine.Repo.ListFieldStates(env.Ctx, sessionID)
	if err != nil {
		t.Fatal(err)
	}
	for _, fs := range states {
		value := ""
		if fs.Type == domain.FieldDate {
			value = "2026-03-01"
		}
		if _, err := env.Engine.CompleteField(env.Ctx, engine.CompleteFieldOptions{
			SessionID: sessionID, FieldID: fs.ID, Value: value, ActorID: "signer-1",
		}); err != nil {
			t.Fatalf("complete %s: %v", fs.ID, err)
		}
	}
}

func TestSessionWalkEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	if s.Step != domain.StepLanding {
		t.Fatalf("new session step = %s", s.Step)
	}
	adoptTyped(t, env, s.ID)

	// Walk order: doc-nda first, pages ascending within each document.
	states, err := env.Engine.Repo.ListFieldStates(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"doc-nda_sig-1", "doc-nda_date-1", "doc-lease_init-1", "doc-lease_sig-1"}
	for i, want := range wantOrder {
		if states[i].ID != want {
			t.Fatalf("walk order[%d] = %s, want %s", i, states[i].ID, want)
		}
	}

	completeAll(t, env, s.ID)

	view, err := env.Engine.View(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.CompletedCount != 4 || view.RequiredCount != 4 || view.ProgressPercent != 100 {
		t.Fatalf("counts = %d/%d (%d%%)", view.CompletedCount, view.RequiredCount, view.ProgressPercent)
	}
	if !view.ReviewReady {
		t.Fatalf("review should be offered once every required field is done")
	}

	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatalf("enter review: %v", err)
	}
	if _, err := env.Engine.SetConsent(env.Ctx, s.ID, true, "signer-1"); err != nil {
		t.Fatalf("consent: %v", err)
	}
	res, err := env.Engine.Finish(env.Ctx, engine.FinishOptions{SessionID: s.ID, ActorID: "signer-1"})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res.Session.Step != domain.StepComplete || res.Session.CompletedAt == nil {
		t.Fatalf("session not complete: %+v", res.Session)
	}
	if len(res.Submitted) != 2 {
		t.Fatalf("submitted = %v", res.Submitted)
	}
	// Documents go out in session order.
	if env.Submitter.calls[0] != "doc-nda" || env.Submitter.calls[1] != "doc-lease" {
		t.Fatalf("submit order = %v", env.Submitter.calls)
	}
}

func TestStartSigningSkipsAdoptWithSavedSignature(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)

	// Same signer, second session: the saved default short-circuits adopt.
	s2, _, err := env.Engine.StartSession(env.Ctx, engine.SessionCreateOptions{
		ID:       "sess-2",
		SignerID: "signer-1",
		Documents: []engine.DocumentInput{
			{ID: "doc-nda", TemplateID: "tpl-nda"},
		},
		ActorID: "host-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	s2, err = env.Engine.StartSigning(env.Ctx, s2.ID, "signer-1")
	if err != nil {
		t.Fatal(err)
	}
	if s2.Step != domain.StepSigning {
		t.Fatalf("returning signer should skip adopt, got %s", s2.Step)
	}
}

func TestAdoptValidation(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	if _, err := env.Engine.StartSigning(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		opts engine.AdoptOptions
	}{
		{"empty signature", engine.AdoptOptions{Method: domain.MethodType, Initials: "AL"}},
		{"empty initials", engine.AdoptOptions{Method: domain.MethodType, Signature: "Ada"}},
		{"initials too long", engine.AdoptOptions{Method: domain.MethodType, Signature: "Ada", Initials: "ABCDE"}},
		{"draw missing image", engine.AdoptOptions{Method: domain.MethodDraw, Signature: "img"}},
		{"upload missing image", engine.AdoptOptions{Method: domain.MethodUpload, Initials: "img"}},
	}
	for _, tc := range cases {
		tc.opts.SessionID = s.ID
		tc.opts.ActorID = "signer-1"
		if _, err := env.Engine.Adopt(env.Ctx, tc.opts); !errors.Is(err, engine.ErrPrecondition) {
			t.Fatalf("%s: err = %v, want precondition", tc.name, err)
		}
	}

	if _, err := env.Engine.Adopt(env.Ctx, engine.AdoptOptions{
		SessionID: s.ID, Method: domain.MethodType, Signature: "Ada", Initials: "AL", Font: "papyrus", ActorID: "signer-1",
	}); err == nil {
		t.Fatalf("unknown font should be rejected")
	}
}

func TestSignatureFieldsAutoFillFromAdoption(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)

	fs, err := env.Engine.CompleteField(env.Ctx, engine.CompleteFieldOptions{
		SessionID: s.ID, FieldID: "doc-nda_sig-1", Value: "ignored", ActorID: "signer-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if fs.Value == nil || *fs.Value != "Ada Lovelace" {
		t.Fatalf("signature value = %v, want adopted signature", fs.Value)
	}
	fs, err = env.Engine.CompleteField(env.Ctx, engine.CompleteFieldOptions{
		SessionID: s.ID, FieldID: "doc-lease_init-1", ActorID: "signer-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if fs.Value == nil || *fs.Value != "AL" {
		t.Fatalf("initial value = %v, want adopted initials", fs.Value)
	}
}

func TestCompleteFieldIdempotentOverwrite(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)

	first, err := env.Engine.CompleteField(env.Ctx, engine.CompleteFieldOptions{
		SessionID: s.ID, FieldID: "doc-nda_date-1", Value: "2026-03-01", ActorID: "signer-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	view, _ := env.Engine.View(env.Ctx, s.ID)
	before := view.CompletedCount

	second, err := env.Engine.CompleteField(env.Ctx, engine.CompleteFieldOptions{
		SessionID: s.ID, FieldID: "doc-nda_date-1", Value: "2026-03-02", ActorID: "signer-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !first.Completed || !second.Completed {
		t.Fatalf("both completions should report completed")
	}
	if *second.Value != "2026-03-02" {
		t.Fatalf("value = %s, want overwrite", *second.Value)
	}
	view, _ = env.Engine.View(env.Ctx, s.ID)
	if view.CompletedCount != before {
		t.Fatalf("completed count moved %d -> %d on re-completion", before, view.CompletedCount)
	}
}

func TestCompleteFieldRequiresValue(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)
	_, err := env.Engine.CompleteField(env.Ctx, engine.CompleteFieldOptions{
		SessionID: s.ID, FieldID: "doc-nda_date-1", ActorID: "signer-1",
	})
	if !errors.Is(err, engine.ErrPrecondition) {
		t.Fatalf("err = %v, want precondition", err)
	}
}

func TestEnterReviewGatedOnRequiredFields(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); !errors.Is(err, engine.ErrPrecondition) {
		t.Fatalf("err = %v, want precondition while fields incomplete", err)
	}
	completeAll(t, env, s.ID)
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatalf("enter review after completion: %v", err)
	}
}

func TestMoveField(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)

	// Incomplete field: silently ignored, no override committed.
	committed, err := env.Engine.MoveField(env.Ctx, s.ID, "doc-nda_sig-1", 50, 50, "signer-1")
	if err != nil || committed {
		t.Fatalf("moving incomplete field: committed=%v err=%v", committed, err)
	}

	if _, err := env.Engine.CompleteField(env.Ctx, engine.CompleteFieldOptions{
		SessionID: s.ID, FieldID: "doc-nda_sig-1", ActorID: "signer-1",
	}); err != nil {
		t.Fatal(err)
	}
	committed, err = env.Engine.MoveField(env.Ctx, s.ID, "doc-nda_sig-1", 120, -5, "signer-1")
	if err != nil || !committed {
		t.Fatalf("moving completed field: committed=%v err=%v", committed, err)
	}
	view, err := env.Engine.View(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	pos := view.Positions["doc-nda_sig-1"]
	if pos.X != 100 || pos.Y != 0 {
		t.Fatalf("position = %+v, want clamped to (100, 0)", pos)
	}
	// Untouched field keeps its catalog position.
	if p := view.Positions["doc-nda_date-1"]; p.X != 40 || p.Y != 80 {
		t.Fatalf("catalog position = %+v", p)
	}
}

func TestJumpToCursor(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)
	s, err := env.Engine.JumpTo(env.Ctx, s.ID, "doc-lease_sig-1", "signer-1")
	if err != nil {
		t.Fatal(err)
	}
	if s.FieldIndex != 3 || s.DocumentIndex != 1 {
		t.Fatalf("cursor = doc %d field %d", s.DocumentIndex, s.FieldIndex)
	}
	if _, err := env.Engine.JumpTo(env.Ctx, s.ID, "doc-nda_missing", "signer-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("jump to unknown field: %v", err)
	}
}

func TestFinishRequiresConsent(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)
	completeAll(t, env, s.ID)
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.Finish(env.Ctx, engine.FinishOptions{SessionID: s.ID, ActorID: "signer-1"})
	if !errors.Is(err, engine.ErrPrecondition) {
		t.Fatalf("err = %v, want consent precondition", err)
	}
}

func TestFinishPartialFailureAndRetry(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)
	completeAll(t, env, s.ID)
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetConsent(env.Ctx, s.ID, true, "signer-1"); err != nil {
		t.Fatal(err)
	}

	env.Submitter.fail["doc-lease"] = errors.New("intake unavailable")
	res, err := env.Engine.Finish(env.Ctx, engine.FinishOptions{SessionID: s.ID, ActorID: "signer-1"})
	if !errors.Is(err, engine.ErrSubmissionFailed) {
		t.Fatalf("err = %v, want submission failure", err)
	}
	if len(res.Submitted) != 1 || res.Submitted[0] != "doc-nda" {
		t.Fatalf("submitted = %v", res.Submitted)
	}
	if _, ok := res.Failed["doc-lease"]; !ok {
		t.Fatalf("failed = %v", res.Failed)
	}
	got, err := env.Engine.Repo.GetSession(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Step != domain.StepReview {
		t.Fatalf("partial failure must keep the session in review, got %s", got.Step)
	}

	// Retry: the signed document is skipped, only the failure is re-sent.
	delete(env.Submitter.fail, "doc-lease")
	env.Submitter.calls = nil
	res, err = env.Engine.Finish(env.Ctx, engine.FinishOptions{SessionID: s.ID, ActorID: "signer-1"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(env.Submitter.calls) != 1 || env.Submitter.calls[0] != "doc-lease" {
		t.Fatalf("retry calls = %v, want only the failed document", env.Submitter.calls)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "doc-nda" {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	if res.Session.Step != domain.StepComplete {
		t.Fatalf("session step = %s after full success", res.Session.Step)
	}
}

func TestFinishSkipsDocumentWithoutFields(t *testing.T) {
	env := newTestEnv(t)
	// doc-cover has no template, so it contributes no fields and carries
	// nothing to submit.
	s, _, err := env.Engine.StartSession(env.Ctx, engine.SessionCreateOptions{
		ID:         "sess-cover",
		SignerID:   "signer-1",
		SignerName: "Ada Lovelace",
		Documents: []engine.DocumentInput{
			{ID: "doc-nda", Name: "NDA", TemplateID: "tpl-nda"},
			{ID: "doc-cover", Name: "Cover Letter"},
		},
		ActorID: "host-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	adoptTyped(t, env, s.ID)
	completeAll(t, env, s.ID)
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetConsent(env.Ctx, s.ID, true, "signer-1"); err != nil {
		t.Fatal(err)
	}
	res, err := env.Engine.Finish(env.Ctx, engine.FinishOptions{SessionID: s.ID, ActorID: "signer-1"})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(env.Submitter.calls) != 1 || env.Submitter.calls[0] != "doc-nda" {
		t.Fatalf("submit calls = %v, want only the document with completed fields", env.Submitter.calls)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "doc-cover" {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	if res.Session.Step != domain.StepComplete {
		t.Fatalf("session step = %s", res.Session.Step)
	}
}

func TestFinishSubmitsPatchedLayout(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)
	completeAll(t, env, s.ID)
	if _, err := env.Engine.MoveField(env.Ctx, s.ID, "doc-nda_sig-1", 33, 44, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetConsent(env.Ctx, s.ID, true, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Finish(env.Ctx, engine.FinishOptions{SessionID: s.ID, ActorID: "signer-1"}); err != nil {
		t.Fatal(err)
	}

	byID := map[string]domain.SignatureField{}
	for _, f := range env.Submitter.layouts["doc-nda"] {
		byID[f.ID] = f
	}
	moved, ok := byID["sig-1"]
	if !ok {
		t.Fatalf("layout missing sig-1: %v", env.Submitter.layouts["doc-nda"])
	}
	if moved.XPercent != 33 || moved.YPercent != 44 {
		t.Fatalf("moved field position = (%v, %v), want the override", moved.XPercent, moved.YPercent)
	}
	// Width and height always come from the catalog.
	if moved.WidthPercent != 20 || moved.HeightPercent != 5 {
		t.Fatalf("moved field size = (%v, %v), want catalog size", moved.WidthPercent, moved.HeightPercent)
	}
	if untouched := byID["date-1"]; untouched.XPercent != 40 || untouched.YPercent != 80 {
		t.Fatalf("untouched field position = (%v, %v)", untouched.XPercent, untouched.YPercent)
	}
}

func TestStartSigningHonorsSavedReuseConfig(t *testing.T) {
	env := newTestEnv(t)
	allow := false
	env.Engine.Config.Adoption.AllowSavedReuse = &allow
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)

	// Same signer, reuse disabled: the saved default must not skip adopt.
	s2, _, err := env.Engine.StartSession(env.Ctx, engine.SessionCreateOptions{
		ID:       "sess-2",
		SignerID: "signer-1",
		Documents: []engine.DocumentInput{
			{ID: "doc-nda", TemplateID: "tpl-nda"},
		},
		ActorID: "host-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	s2, err = env.Engine.StartSigning(env.Ctx, s2.ID, "signer-1")
	if err != nil {
		t.Fatal(err)
	}
	if s2.Step != domain.StepAdopt {
		t.Fatalf("step = %s, want adopt when saved reuse is off", s2.Step)
	}
}

func TestBackToSigningPreservesState(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	adoptTyped(t, env, s.ID)
	completeAll(t, env, s.ID)
	if _, err := env.Engine.MoveField(env.Ctx, s.ID, "doc-nda_sig-1", 33, 44, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.BackToSigning(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}
	view, err := env.Engine.View(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.CompletedCount != 4 {
		t.Fatalf("going back cleared completions: %d", view.CompletedCount)
	}
	if p := view.Positions["doc-nda_sig-1"]; p.X != 33 || p.Y != 44 {
		t.Fatalf("going back cleared override: %+v", p)
	}
}

func TestStartSessionDegradedDocument(t *testing.T) {
	env := newTestEnv(t)
	env.Catalog.errs = map[string]error{"tpl-lease": errors.New("catalog down")}
	s, degraded, err := env.Engine.StartSession(env.Ctx, engine.SessionCreateOptions{
		ID:       "sess-deg",
		SignerID: "signer-1",
		Documents: []engine.DocumentInput{
			{ID: "doc-nda", TemplateID: "tpl-nda"},
			{ID: "doc-lease", TemplateID: "tpl-lease"},
		},
		ActorID: "host-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(degraded) != 1 || degraded[0] != "doc-lease" {
		t.Fatalf("degraded = %v", degraded)
	}
	states, err := env.Engine.Repo.ListFieldStates(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, fs := range states {
		if fs.DocumentID == "doc-lease" {
			t.Fatalf("degraded document contributed field %s", fs.ID)
		}
	}
}

func TestStepConflicts(t *testing.T) {
	env := newTestEnv(t)
	s := startSession(t, env)
	// Completing a field during landing is a step conflict.
	if _, err := env.Engine.CompleteField(env.Ctx, engine.CompleteFieldOptions{
		SessionID: s.ID, FieldID: "doc-nda_date-1", Value: "x", ActorID: "signer-1",
	}); !errors.Is(err, engine.ErrStepConflict) {
		t.Fatalf("err = %v, want step conflict", err)
	}
	// Review from landing is not a legal transition.
	adoptTyped(t, env, s.ID)
	completeAll(t, env, s.ID)
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.EnterReview(env.Ctx, s.ID, "signer-1"); !errors.Is(err, engine.ErrStepConflict) {
		t.Fatalf("err = %v, want step conflict on double review", err)
	}
}

func TestProgressZeroWithNoRequiredFields(t *testing.T) {
	env := newTestEnv(t)
	env.Catalog.fields["tpl-empty"] = nil
	s, _, err := env.Engine.StartSession(env.Ctx, engine.SessionCreateOptions{
		ID:       "sess-empty",
		SignerID: "signer-1",
		Documents: []engine.DocumentInput{
			{ID: "doc-plain", TemplateID: "tpl-empty"},
		},
		ActorID: "host-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	view, err := env.Engine.View(env.Ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.ProgressPercent != 0 {
		t.Fatalf("progress = %d, want 0 when nothing is required", view.ProgressPercent)
	}
	if !view.ReviewReady {
		t.Fatalf("no required fields means review is immediately available")
	}
}
