package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signline/internal/domain"
	"signline/internal/events"
	"signline/internal/overlay"
	"signline/internal/repo"
)

// Submitter dispatches one document's finalized signature data to the
// intake collaborator.
type Submitter interface {
	Submit(ctx context.Context, documentID, signerName, signaturePayload, userAgent string, layout []domain.SignatureField) error
}

// ErrSubmissionFailed reports that at least one document submission failed.
// The session stays in review; a retry re-submits only what failed.
var ErrSubmissionFailed = errors.New("submission failed")

// FinishOptions are parameters for the final submission pass.
type FinishOptions struct {
	SessionID string
	UserAgent string
	ActorID   string
}

// FinishResult summarizes the per-document outcome of one Finish call.
type FinishResult struct {
	Session   domain.Session
	Submitted []string
	Skipped   []string
	Failed    map[string]string
}

// Finish submits every document in order and completes the session. Consent
// and full completion of required fields gate the call. Documents already
// marked signed are skipped, so a retry after partial failure only re-sends
// what failed. Documents with no completed fields (field-less or degraded)
// carry nothing to submit and are skipped too. Any failure leaves the
// session in review and returns ErrSubmissionFailed with per-document detail
// in the result.
func (e Engine) Finish(ctx context.Context, opts FinishOptions) (FinishResult, error) {
	s, err := e.Repo.GetSession(ctx, opts.SessionID)
	if err != nil {
		return FinishResult{}, err
	}
	if s.Step != domain.StepReview {
		return FinishResult{Session: s}, fmt.Errorf("%w: finish happens during review, session is %s", ErrStepConflict, s.Step)
	}
	if !s.Consent {
		return FinishResult{Session: s}, fmt.Errorf("%w: consent not given", ErrPrecondition)
	}
	states, err := e.Repo.ListFieldStates(ctx, s.ID)
	if err != nil {
		return FinishResult{Session: s}, err
	}
	if !reviewReady(states) {
		return FinishResult{Session: s}, fmt.Errorf("%w: required fields incomplete", ErrPrecondition)
	}
	if e.Submitter == nil {
		return FinishResult{Session: s}, errors.New("submitter not configured")
	}
	docs, err := e.Repo.ListDocuments(ctx, s.ID)
	if err != nil {
		return FinishResult{Session: s}, err
	}
	overrides, err := e.Repo.ListOverrides(ctx, s.ID)
	if err != nil {
		return FinishResult{Session: s}, err
	}
	committed := make(map[string]overlay.Position, len(overrides))
	for _, o := range overrides {
		committed[o.FieldID] = overlay.Position{X: o.XPercent, Y: o.YPercent}
	}
	adopted, err := e.Repo.GetDefaultSignature(ctx, s.SignerID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return FinishResult{Session: s}, err
	}
	completedByDoc := make(map[string]int)
	for _, fs := range states {
		if fs.Completed {
			completedByDoc[fs.DocumentID]++
		}
	}

	res := FinishResult{Session: s, Failed: make(map[string]string)}
	for _, d := range docs {
		if d.Status == "signed" || completedByDoc[d.ID] == 0 {
			res.Skipped = append(res.Skipped, d.ID)
			continue
		}
		layout, err := e.patchedLayout(ctx, s.ID, d.ID, committed)
		if err != nil {
			return res, err
		}
		now := e.now().UTC().Format(time.RFC3339)
		sub := domain.Submission{SessionID: s.ID, DocumentID: d.ID, AttemptedAt: now}
		if err := e.Submitter.Submit(ctx, d.ID, s.SignerName, adopted.SignatureValue, opts.UserAgent, layout); err != nil {
			sub.Status = "failed"
			sub.Error = err.Error()
			res.Failed[d.ID] = err.Error()
			if rerr := e.recordSubmission(ctx, sub, "", opts.ActorID); rerr != nil {
				return res, rerr
			}
			continue
		}
		sub.Status = "submitted"
		res.Submitted = append(res.Submitted, d.ID)
		if err := e.recordSubmission(ctx, sub, "signed", opts.ActorID); err != nil {
			return res, err
		}
	}
	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%w: %d of %d documents", ErrSubmissionFailed, len(res.Failed), len(docs))
	}

	now := e.now().UTC().Format(time.RFC3339)
	s.Step = domain.StepComplete
	s.UpdatedAt = now
	s.CompletedAt = &now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSession(ctx, tx, s); err != nil {
		return res, err
	}
	if err := e.Events.Append(ctx, tx, "session.completed", s.ID, "session", s.ID, opts.ActorID, events.EventPayload{
		"documents": len(docs),
		"submitted": len(res.Submitted),
		"skipped":   len(res.Skipped),
	}); err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	res.Session = s
	return res, nil
}

// patchedLayout returns the document's catalog fields with committed position
// overrides substituted for x/y. Width and height always come from the
// catalog.
func (e Engine) patchedLayout(ctx context.Context, sessionID, documentID string, committed map[string]overlay.Position) ([]domain.SignatureField, error) {
	fields, err := e.Repo.ListSignatureFields(ctx, sessionID, documentID)
	if err != nil {
		return nil, err
	}
	for i, f := range fields {
		p := overlay.Effective(f, committed)
		fields[i].XPercent = p.X
		fields[i].YPercent = p.Y
	}
	return fields, nil
}

// recordSubmission persists one submission attempt in its own transaction so
// a later failure cannot roll back an already-dispatched document.
func (e Engine) recordSubmission(ctx context.Context, sub domain.Submission, docStatus, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertSubmission(ctx, tx, sub); err != nil {
		return err
	}
	if docStatus != "" {
		if err := e.Repo.SetDocumentStatus(ctx, tx, sub.SessionID, sub.DocumentID, docStatus); err != nil {
			return err
		}
	}
	evt := "document.submitted"
	payload := events.EventPayload{"status": sub.Status}
	if sub.Status == "failed" {
		evt = "document.submit_failed"
		payload["error"] = sub.Error
	}
	if err := e.Events.Append(ctx, tx, evt, sub.SessionID, "document", sub.DocumentID, actorID, payload); err != nil {
		return err
	}
	return tx.Commit()
}
