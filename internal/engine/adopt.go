package engine

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"signline/internal/domain"
	"signline/internal/events"
)

// AdoptOptions are parameters for adopting a signature and initials pair.
// For the type method Signature and Initials carry literal text; for draw
// and upload they carry encoded image payloads.
type AdoptOptions struct {
	SessionID string
	Method    string
	Signature string
	Initials  string
	Font      string
	ActorID   string
}

// Adopt validates and stores the signer's default signature, then moves the
// session into signing. Adopting again overwrites the signer's default;
// fields already completed keep the value they were completed with.
func (e Engine) Adopt(ctx context.Context, opts AdoptOptions) (domain.Session, error) {
	s, err := e.Repo.GetSession(ctx, opts.SessionID)
	if err != nil {
		return s, err
	}
	if s.Step != domain.StepAdopt {
		return s, fmt.Errorf("%w: adoption happens during adopt, session is %s", ErrStepConflict, s.Step)
	}
	if !domain.ValidMethod(opts.Method) {
		return s, fmt.Errorf("unknown adoption method %q", opts.Method)
	}
	font := opts.Font
	switch opts.Method {
	case domain.MethodType:
		if opts.Signature == "" {
			return s, fmt.Errorf("%w: typed signature must not be empty", ErrPrecondition)
		}
		if opts.Initials == "" {
			return s, fmt.Errorf("%w: typed initials must not be empty", ErrPrecondition)
		}
		maxLen := e.Config.Adoption.InitialsMaxLen
		if n := utf8.RuneCountInString(opts.Initials); n > maxLen {
			return s, fmt.Errorf("%w: initials exceed %d characters", ErrPrecondition, maxLen)
		}
		if font == "" {
			font = e.Config.Adoption.DefaultFont
		}
		if !knownFont(e.Config.Adoption.Fonts, font) {
			return s, fmt.Errorf("unknown font %q", font)
		}
	default:
		// draw and upload carry image payloads, no font.
		if opts.Signature == "" || opts.Initials == "" {
			return s, fmt.Errorf("%w: both signature and initials images are required", ErrPrecondition)
		}
		font = ""
	}
	now := e.now().UTC().Format(time.RFC3339)
	adopted := domain.AdoptedSignature{
		SignerID:        s.SignerID,
		SignatureValue:  opts.Signature,
		SignatureMethod: opts.Method,
		InitialsValue:   opts.Initials,
		InitialsMethod:  opts.Method,
		Font:            font,
		UpdatedAt:       now,
	}
	s.Step = domain.StepSigning
	s.UpdatedAt = now
	e.advanceCursor(ctx, &s)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertDefaultSignature(ctx, tx, adopted); err != nil {
		return s, err
	}
	if err := e.Repo.UpdateSession(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "signature.adopted", s.ID, "signer", s.SignerID, opts.ActorID, events.EventPayload{
		"method": opts.Method,
		"font":   font,
	}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	return s, nil
}

// AdoptedSignature returns the signer's current default, if any.
func (e Engine) AdoptedSignature(ctx context.Context, sessionID string) (domain.AdoptedSignature, error) {
	s, err := e.Repo.GetSession(ctx, sessionID)
	if err != nil {
		return domain.AdoptedSignature{}, err
	}
	return e.Repo.GetDefaultSignature(ctx, s.SignerID)
}

func knownFont(fonts []string, font string) bool {
	for _, f := range fonts {
		if f == font {
			return true
		}
	}
	return false
}
