package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"signline/internal/catalog"
	"signline/internal/config"
	"signline/internal/domain"
	"signline/internal/events"
	"signline/internal/overlay"
	"signline/internal/repo"
)

// ErrPrecondition marks inputs that gate an action rather than fail it: an
// empty required value, missing adoption inputs, an unchecked consent box.
var ErrPrecondition = errors.New("precondition not met")

// ErrStepConflict marks an operation attempted in the wrong session step.
var ErrStepConflict = errors.New("step conflict")

// Resolver returns a renderable content URL for a document.
type Resolver interface {
	ResolveRenderableURL(ctx context.Context, documentID string) (string, error)
}

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	Catalog   catalog.Source
	Submitter Submitter
	Resolver  Resolver
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// DocumentInput describes one document supplied by the host at session start.
type DocumentInput struct {
	ID         string
	Name       string
	ContentURL string
	TemplateID string
	Stage      *int
	Sequence   *int
	DependsOn  string
}

// SessionCreateOptions are parameters for starting a signing session.
type SessionCreateOptions struct {
	ID         string
	SignerID   string
	SignerName string
	Documents  []DocumentInput
	ActorID    string
}

// StartSession loads the field catalog for every document, flattens the
// fields into walk order and persists the session. Catalog failures degrade
// the affected document instead of aborting; the degraded ids are returned
// for the host to surface.
func (e Engine) StartSession(ctx context.Context, opts SessionCreateOptions) (domain.Session, []string, error) {
	if e.Config == nil {
		return domain.Session{}, nil, errors.New("config not loaded")
	}
	if opts.SignerID == "" {
		return domain.Session{}, nil, errors.New("signer is required")
	}
	if len(opts.Documents) == 0 {
		return domain.Session{}, nil, errors.New("at least one document is required")
	}
	if e.Catalog == nil {
		return domain.Session{}, nil, errors.New("catalog source not configured")
	}
	now := e.now().UTC().Format(time.RFC3339)
	id := opts.ID
	if id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(opts.SignerID+"|"+now+"|"+opts.Documents[0].ID)).String()
	}
	docs := make([]domain.Document, 0, len(opts.Documents))
	for i, in := range opts.Documents {
		if in.ID == "" {
			return domain.Session{}, nil, fmt.Errorf("document %d missing id", i)
		}
		d := domain.Document{
			ID:         in.ID,
			SessionID:  id,
			Name:       in.Name,
			ContentURL: in.ContentURL,
			Status:     "pending",
			Stage:      in.Stage,
			Sequence:   in.Sequence,
			Position:   i,
		}
		if in.TemplateID != "" {
			tpl := in.TemplateID
			d.TemplateID = &tpl
		}
		if in.DependsOn != "" {
			dep := in.DependsOn
			d.DependsOn = &dep
		}
		if d.ContentURL == "" && e.Resolver != nil {
			if resolved, err := e.Resolver.ResolveRenderableURL(ctx, d.ID); err == nil {
				d.ContentURL = resolved
			}
		}
		docs = append(docs, d)
	}

	loaded := catalog.Load(ctx, e.Catalog, docs)

	s := domain.Session{
		ID:         id,
		SignerID:   opts.SignerID,
		SignerName: opts.SignerName,
		Step:       domain.StepLanding,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, nil, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertSession(ctx, tx, s); err != nil {
		return domain.Session{}, nil, fmt.Errorf("insert session: %w", err)
	}
	for _, d := range docs {
		if err := e.Repo.InsertDocument(ctx, tx, d); err != nil {
			return domain.Session{}, nil, fmt.Errorf("insert document %s: %w", d.ID, err)
		}
		for _, f := range loaded.Fields[d.ID] {
			if err := e.Repo.InsertSignatureField(ctx, tx, id, f); err != nil {
				return domain.Session{}, nil, fmt.Errorf("insert field %s: %w", f.ID, err)
			}
		}
	}
	for i, fs := range loaded.States {
		fs.SessionID = id
		if err := e.Repo.InsertFieldState(ctx, tx, fs, i); err != nil {
			return domain.Session{}, nil, fmt.Errorf("insert field state %s: %w", fs.ID, err)
		}
	}
	if err := e.Events.Append(ctx, tx, "session.started", id, "session", id, opts.ActorID, events.EventPayload{
		"signer_id": opts.SignerID,
		"documents": len(docs),
		"fields":    len(loaded.States),
		"degraded":  loaded.Degraded,
	}); err != nil {
		return domain.Session{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, nil, err
	}
	return s, loaded.Degraded, nil
}

func ensureStepTransition(oldStep, newStep string) error {
	switch oldStep {
	case domain.StepLanding:
		if newStep == domain.StepAdopt || newStep == domain.StepSigning {
			return nil
		}
	case domain.StepAdopt:
		if newStep == domain.StepSigning || newStep == domain.StepLanding {
			return nil
		}
	case domain.StepSigning:
		if newStep == domain.StepReview {
			return nil
		}
	case domain.StepReview:
		if newStep == domain.StepSigning || newStep == domain.StepComplete {
			return nil
		}
	}
	return fmt.Errorf("%w: invalid step transition %s -> %s", ErrStepConflict, oldStep, newStep)
}

// StartSigning moves a landing session forward: straight to signing when the
// signer already has an adopted default and config allows reusing it,
// through adopt otherwise.
func (e Engine) StartSigning(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return s, err
	}
	target := domain.StepAdopt
	if e.Config.SavedReuseAllowed() {
		if _, err := e.Repo.GetDefaultSignature(ctx, s.SignerID); err == nil {
			target = domain.StepSigning
		} else if !errors.Is(err, repo.ErrNotFound) {
			return s, err
		}
	}
	return e.transition(ctx, s, target, actorID)
}

// BackToLanding returns an adopt-step session to landing.
func (e Engine) BackToLanding(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return s, err
	}
	return e.transition(ctx, s, domain.StepLanding, actorID)
}

// EnterReview moves a signing session to review once every required field is
// complete.
func (e Engine) EnterReview(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return s, err
	}
	states, err := e.Repo.ListFieldStates(ctx, sessionID)
	if err != nil {
		return s, err
	}
	for _, fs := range states {
		if fs.Required && !fs.Completed {
			return s, fmt.Errorf("%w: field %s not completed", ErrPrecondition, fs.ID)
		}
	}
	return e.transition(ctx, s, domain.StepReview, actorID)
}

// BackToSigning returns a review session to signing. Completed fields are
// never cleared.
func (e Engine) BackToSigning(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return s, err
	}
	return e.transition(ctx, s, domain.StepSigning, actorID)
}

func (e Engine) transition(ctx context.Context, s domain.Session, target, actorID string) (domain.Session, error) {
	if err := ensureStepTransition(s.Step, target); err != nil {
		return s, err
	}
	from := s.Step
	s.Step = target
	s.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if target == domain.StepSigning {
		e.advanceCursor(ctx, &s)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSession(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "session.step.changed", s.ID, "session", s.ID, actorID, events.EventPayload{
		"from": from,
		"to":   target,
	}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// SetConsent records the review consent acknowledgement.
func (e Engine) SetConsent(ctx context.Context, sessionID string, consent bool, actorID string) (domain.Session, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return s, err
	}
	if s.Step != domain.StepReview {
		return s, fmt.Errorf("%w: consent is set during review, session is %s", ErrStepConflict, s.Step)
	}
	s.Consent = consent
	s.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSession(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "session.consent", s.ID, "session", s.ID, actorID, events.EventPayload{"consent": consent}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// CompleteFieldOptions are parameters for completing one field.
type CompleteFieldOptions struct {
	SessionID string
	FieldID   string
	Value     string
	ActorID   string
}

// CompleteField records the signer's input for a field. Fields of type
// signature/initial take their value from the adopted signature and ignore
// the caller value; every other type requires non-empty input. Completing an
// already-completed field overwrites its value only.
func (e Engine) CompleteField(ctx context.Context, opts CompleteFieldOptions) (domain.FieldState, error) {
	s, err := e.Repo.GetSession(ctx, opts.SessionID)
	if err != nil {
		return domain.FieldState{}, err
	}
	if s.Step != domain.StepSigning {
		return domain.FieldState{}, fmt.Errorf("%w: fields are completed during signing, session is %s", ErrStepConflict, s.Step)
	}
	fs, err := e.Repo.GetFieldState(ctx, opts.SessionID, opts.FieldID)
	if err != nil {
		return fs, err
	}
	value := opts.Value
	switch fs.Type {
	case domain.FieldSignature, domain.FieldInitial:
		adopted, err := e.Repo.GetDefaultSignature(ctx, s.SignerID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return fs, fmt.Errorf("%w: no adopted signature", ErrPrecondition)
			}
			return fs, err
		}
		if fs.Type == domain.FieldSignature {
			value = adopted.SignatureValue
		} else {
			value = adopted.InitialsValue
		}
	default:
		if value == "" {
			return fs, fmt.Errorf("%w: value required for %s field", ErrPrecondition, fs.Type)
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	s.UpdatedAt = now
	e.advanceCursorTx(ctx, &s, fs.ID)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return fs, err
	}
	defer tx.Rollback()
	if err := e.Repo.CompleteFieldState(ctx, tx, opts.SessionID, fs.ID, value, now); err != nil {
		return fs, err
	}
	wasCompleted := fs.Completed
	fs.Completed = true
	fs.Value = &value
	fs.CompletedAt = &now
	if err := e.Repo.UpdateSession(ctx, tx, s); err != nil {
		return fs, err
	}
	if err := e.Events.Append(ctx, tx, "field.completed", s.ID, "field", fs.ID, opts.ActorID, events.EventPayload{
		"field_type":  fs.Type,
		"document_id": fs.DocumentID,
		"overwrite":   wasCompleted,
	}); err != nil {
		return fs, err
	}
	if err := tx.Commit(); err != nil {
		return fs, err
	}
	return fs, nil
}

// JumpTo moves the cursor to any field, complete or not.
func (e Engine) JumpTo(ctx context.Context, sessionID, fieldID, actorID string) (domain.Session, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return s, err
	}
	if s.Step != domain.StepSigning {
		return s, fmt.Errorf("%w: cursor moves during signing, session is %s", ErrStepConflict, s.Step)
	}
	states, err := e.Repo.ListFieldStates(ctx, sessionID)
	if err != nil {
		return s, err
	}
	docs, err := e.Repo.ListDocuments(ctx, sessionID)
	if err != nil {
		return s, err
	}
	found := false
	for i, fs := range states {
		if fs.ID == fieldID {
			s.FieldIndex = i
			s.DocumentIndex = documentIndex(docs, fs.DocumentID)
			found = true
			break
		}
	}
	if !found {
		return s, repo.ErrNotFound
	}
	s.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSession(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "session.cursor.moved", s.ID, "field", fieldID, actorID, nil); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// advanceCursor points the session at the first incomplete field, scanning
// forward from the current document and wrapping to earlier documents.
func (e Engine) advanceCursor(ctx context.Context, s *domain.Session) {
	e.advanceCursorTx(ctx, s, "")
}

func (e Engine) advanceCursorTx(ctx context.Context, s *domain.Session, justCompleted string) {
	states, err := e.Repo.ListFieldStates(ctx, s.ID)
	if err != nil || len(states) == 0 {
		return
	}
	docs, err := e.Repo.ListDocuments(ctx, s.ID)
	if err != nil {
		return
	}
	incomplete := func(fs domain.FieldState) bool {
		return !fs.Completed && fs.ID != justCompleted
	}
	start := s.FieldIndex
	if start < 0 || start >= len(states) {
		start = 0
	}
	// Forward from the cursor first, then wrap.
	for off := 0; off < len(states); off++ {
		i := (start + off) % len(states)
		if incomplete(states[i]) {
			s.FieldIndex = i
			s.DocumentIndex = documentIndex(docs, states[i].DocumentID)
			return
		}
	}
}

func documentIndex(docs []domain.Document, documentID string) int {
	for i, d := range docs {
		if d.ID == documentID {
			return i
		}
	}
	return 0
}

// MoveField commits a position override for a completed field, clamped to
// [0,100] per axis. Moving an incomplete field is ignored, not an error.
func (e Engine) MoveField(ctx context.Context, sessionID, fieldID string, x, y float64, actorID string) (bool, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if s.Step != domain.StepSigning && s.Step != domain.StepReview {
		return false, fmt.Errorf("%w: fields move during signing or review, session is %s", ErrStepConflict, s.Step)
	}
	fs, err := e.Repo.GetFieldState(ctx, sessionID, fieldID)
	if err != nil {
		return false, err
	}
	if !fs.Completed {
		return false, nil
	}
	pos := overlay.Clamp(overlay.Position{X: x, Y: y})
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertOverride(ctx, tx, domain.FieldPosition{
		SessionID: sessionID,
		FieldID:   fieldID,
		XPercent:  pos.X,
		YPercent:  pos.Y,
		UpdatedAt: now,
	}); err != nil {
		return false, err
	}
	if err := e.Events.Append(ctx, tx, "field.moved", sessionID, "field", fieldID, actorID, events.EventPayload{
		"x_percent": pos.X,
		"y_percent": pos.Y,
	}); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// SessionView is the host-visible state for UI binding.
type SessionView struct {
	Session         domain.Session
	Documents       []domain.Document
	Fields          []domain.FieldState
	Positions       map[string]overlay.Position
	CompletedCount  int
	RequiredCount   int
	ProgressPercent int
	ReviewReady     bool
	CurrentFieldID  string
}

// View assembles the full host-visible session state: counts, progress, the
// field list in walk order and the effective position of every field.
func (e Engine) View(ctx context.Context, sessionID string) (SessionView, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	docs, err := e.Repo.ListDocuments(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	states, err := e.Repo.ListFieldStates(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	overrides, err := e.Repo.ListOverrides(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	committed := make(map[string]overlay.Position, len(overrides))
	for _, o := range overrides {
		committed[o.FieldID] = overlay.Position{X: o.XPercent, Y: o.YPercent}
	}
	positions := make(map[string]overlay.Position, len(states))
	for _, d := range docs {
		fields, err := e.Repo.ListSignatureFields(ctx, sessionID, d.ID)
		if err != nil {
			return SessionView{}, err
		}
		for _, f := range fields {
			positions[catalog.CompositeID(d.ID, f.ID)] = overlay.Effective(f, committed)
		}
	}
	completed, required, err := e.Repo.FieldCounts(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	view := SessionView{
		Session:        s,
		Documents:      docs,
		Fields:         states,
		Positions:      positions,
		CompletedCount: completed,
		RequiredCount:  required,
	}
	view.ProgressPercent = progressPercent(completed, required)
	view.ReviewReady = reviewReady(states)
	if s.FieldIndex >= 0 && s.FieldIndex < len(states) {
		view.CurrentFieldID = states[s.FieldIndex].ID
	}
	return view, nil
}

func progressPercent(completed, required int) int {
	if required == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(required) * 100))
}

func reviewReady(states []domain.FieldState) bool {
	for _, fs := range states {
		if fs.Required && !fs.Completed {
			return false
		}
	}
	return true
}
