package repo

import (
	"context"
	"database/sql"

	"signline/internal/domain"
)

// GetDefaultSignature returns a signer's saved signature/initials pair.
func (r Repo) GetDefaultSignature(ctx context.Context, signerID string) (domain.AdoptedSignature, error) {
	var a domain.AdoptedSignature
	var font sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT signer_id,signature_value,signature_method,initials_value,initials_method,font,updated_at
FROM adopted_signatures WHERE signer_id=?`, signerID).
		Scan(&a.SignerID, &a.SignatureValue, &a.SignatureMethod, &a.InitialsValue, &a.InitialsMethod, &font, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if font.Valid {
		a.Font = font.String
	}
	return a, nil
}

// UpsertDefaultSignature replaces the signer's saved default.
func (r Repo) UpsertDefaultSignature(ctx context.Context, tx *sql.Tx, a domain.AdoptedSignature) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO adopted_signatures(signer_id,signature_value,signature_method,initials_value,initials_method,font,updated_at)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT(signer_id) DO UPDATE SET
  signature_value=excluded.signature_value,
  signature_method=excluded.signature_method,
  initials_value=excluded.initials_value,
  initials_method=excluded.initials_method,
  font=excluded.font,
  updated_at=excluded.updated_at`,
		a.SignerID, a.SignatureValue, a.SignatureMethod, a.InitialsValue, a.InitialsMethod, nullable(a.Font), a.UpdatedAt)
	return err
}

// DeleteDefaultSignature removes a signer's saved default.
func (r Repo) DeleteDefaultSignature(ctx context.Context, signerID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM adopted_signatures WHERE signer_id=?`, signerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
