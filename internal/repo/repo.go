package repo

import (
	"context"
	"database/sql"
	"errors"

	"signline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertSession(ctx context.Context, tx *sql.Tx, s domain.Session) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sessions(id,signer_id,signer_name,step,consent,document_index,field_index,created_at,updated_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.SignerID, s.SignerName, s.Step, boolInt(s.Consent), s.DocumentIndex, s.FieldIndex, s.CreatedAt, s.UpdatedAt, nullableStringPtr(s.CompletedAt))
	return err
}

func (r Repo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	var consent int
	var completedAt sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,signer_id,signer_name,step,consent,document_index,field_index,created_at,updated_at,completed_at FROM sessions WHERE id=?`, id).
		Scan(&s.ID, &s.SignerID, &s.SignerName, &s.Step, &consent, &s.DocumentIndex, &s.FieldIndex, &s.CreatedAt, &s.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.Consent = consent != 0
	if completedAt.Valid {
		s.CompletedAt = &completedAt.String
	}
	return s, nil
}

func (r Repo) UpdateSession(ctx context.Context, tx *sql.Tx, s domain.Session) error {
	_, err := tx.ExecContext(ctx, `UPDATE sessions SET step=?, consent=?, document_index=?, field_index=?, updated_at=?, completed_at=? WHERE id=?`,
		s.Step, boolInt(s.Consent), s.DocumentIndex, s.FieldIndex, s.UpdatedAt, nullableStringPtr(s.CompletedAt), s.ID)
	return err
}

func (r Repo) ListSessions(ctx context.Context, signerID string, limit int) ([]domain.Session, error) {
	query := `SELECT id,signer_id,signer_name,step,consent,document_index,field_index,created_at,updated_at,completed_at FROM sessions`
	var args []any
	if signerID != "" {
		query += ` WHERE signer_id=?`
		args = append(args, signerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Session
	for rows.Next() {
		var s domain.Session
		var consent int
		var completedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.SignerID, &s.SignerName, &s.Step, &consent, &s.DocumentIndex, &s.FieldIndex, &s.CreatedAt, &s.UpdatedAt, &completedAt); err != nil {
			return nil, err
		}
		s.Consent = consent != 0
		if completedAt.Valid {
			s.CompletedAt = &completedAt.String
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) InsertDocument(ctx context.Context, tx *sql.Tx, d domain.Document) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO session_documents(session_id,id,name,content_url,template_id,status,stage,seq,depends_on,position)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		d.SessionID, d.ID, d.Name, d.ContentURL, nullableStringPtr(d.TemplateID), d.Status, nullableIntPtr(d.Stage), nullableIntPtr(d.Sequence), nullableStringPtr(d.DependsOn), d.Position)
	return err
}

func (r Repo) ListDocuments(ctx context.Context, sessionID string) ([]domain.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT session_id,id,name,content_url,template_id,status,stage,seq,depends_on,position FROM session_documents WHERE session_id=? ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func scanDocument(rows *sql.Rows) (domain.Document, error) {
	var d domain.Document
	var templateID, dependsOn sql.NullString
	var stage, seq sql.NullInt64
	err := rows.Scan(&d.SessionID, &d.ID, &d.Name, &d.ContentURL, &templateID, &d.Status, &stage, &seq, &dependsOn, &d.Position)
	if err != nil {
		return d, err
	}
	if templateID.Valid {
		d.TemplateID = &templateID.String
	}
	if dependsOn.Valid {
		d.DependsOn = &dependsOn.String
	}
	if stage.Valid {
		v := int(stage.Int64)
		d.Stage = &v
	}
	if seq.Valid {
		v := int(seq.Int64)
		d.Sequence = &v
	}
	return d, nil
}

func (r Repo) SetDocumentStatus(ctx context.Context, tx *sql.Tx, sessionID, documentID, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE session_documents SET status=? WHERE session_id=? AND id=?`, status, sessionID, documentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertSignatureField(ctx context.Context, tx *sql.Tx, sessionID string, f domain.SignatureField) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO signature_fields(session_id,document_id,id,field_type,signer_role,page,x_percent,y_percent,width_percent,height_percent,label,required,position)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sessionID, f.DocumentID, f.ID, f.Type, nullable(f.SignerRole), f.Page, f.XPercent, f.YPercent, f.WidthPercent, f.HeightPercent, f.Label, boolInt(f.Required), f.Position)
	return err
}

func (r Repo) ListSignatureFields(ctx context.Context, sessionID, documentID string) ([]domain.SignatureField, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT document_id,id,field_type,signer_role,page,x_percent,y_percent,width_percent,height_percent,label,required,position
FROM signature_fields WHERE session_id=? AND document_id=? ORDER BY position ASC`, sessionID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SignatureField
	for rows.Next() {
		var f domain.SignatureField
		var role sql.NullString
		var required int
		if err := rows.Scan(&f.DocumentID, &f.ID, &f.Type, &role, &f.Page, &f.XPercent, &f.YPercent, &f.WidthPercent, &f.HeightPercent, &f.Label, &required, &f.Position); err != nil {
			return nil, err
		}
		if role.Valid {
			f.SignerRole = role.String
		}
		f.Required = required != 0
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r Repo) InsertFieldState(ctx context.Context, tx *sql.Tx, fs domain.FieldState, position int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO field_states(session_id,id,document_id,field_id,field_type,page,label,required,completed,value,completed_at,position)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		fs.SessionID, fs.ID, fs.DocumentID, fs.FieldID, fs.Type, fs.Page, fs.Label, boolInt(fs.Required), boolInt(fs.Completed), nullableStringPtr(fs.Value), nullableStringPtr(fs.CompletedAt), position)
	return err
}

func (r Repo) GetFieldState(ctx context.Context, sessionID, id string) (domain.FieldState, error) {
	var fs domain.FieldState
	var required, completed int
	var value, completedAt sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT session_id,id,document_id,field_id,field_type,page,label,required,completed,value,completed_at
FROM field_states WHERE session_id=? AND id=?`, sessionID, id).
		Scan(&fs.SessionID, &fs.ID, &fs.DocumentID, &fs.FieldID, &fs.Type, &fs.Page, &fs.Label, &required, &completed, &value, &completedAt)
	if err == sql.ErrNoRows {
		return fs, ErrNotFound
	}
	if err != nil {
		return fs, err
	}
	fs.Required = required != 0
	fs.Completed = completed != 0
	if value.Valid {
		fs.Value = &value.String
	}
	if completedAt.Valid {
		fs.CompletedAt = &completedAt.String
	}
	return fs, nil
}

// ListFieldStates returns the session's field states in flattened walk order.
func (r Repo) ListFieldStates(ctx context.Context, sessionID string) ([]domain.FieldState, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT session_id,id,document_id,field_id,field_type,page,label,required,completed,value,completed_at
FROM field_states WHERE session_id=? ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FieldState
	for rows.Next() {
		var fs domain.FieldState
		var required, completed int
		var value, completedAt sql.NullString
		if err := rows.Scan(&fs.SessionID, &fs.ID, &fs.DocumentID, &fs.FieldID, &fs.Type, &fs.Page, &fs.Label, &required, &completed, &value, &completedAt); err != nil {
			return nil, err
		}
		fs.Required = required != 0
		fs.Completed = completed != 0
		if value.Valid {
			fs.Value = &value.String
		}
		if completedAt.Valid {
			fs.CompletedAt = &completedAt.String
		}
		res = append(res, fs)
	}
	return res, rows.Err()
}

func (r Repo) CompleteFieldState(ctx context.Context, tx *sql.Tx, sessionID, id, value, completedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE field_states SET completed=1, value=?, completed_at=? WHERE session_id=? AND id=?`,
		value, completedAt, sessionID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FieldCounts returns (completed, required) counts for a session.
func (r Repo) FieldCounts(ctx context.Context, sessionID string) (int, int, error) {
	var completed, required int
	err := r.DB.QueryRowContext(ctx, `SELECT
COALESCE(SUM(CASE WHEN completed=1 THEN 1 ELSE 0 END),0),
COALESCE(SUM(CASE WHEN required=1 THEN 1 ELSE 0 END),0)
FROM field_states WHERE session_id=?`, sessionID).Scan(&completed, &required)
	return completed, required, err
}

func (r Repo) UpsertOverride(ctx context.Context, tx *sql.Tx, p domain.FieldPosition) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO position_overrides(session_id,field_id,x_percent,y_percent,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(session_id,field_id) DO UPDATE SET x_percent=excluded.x_percent, y_percent=excluded.y_percent, updated_at=excluded.updated_at`,
		p.SessionID, p.FieldID, p.XPercent, p.YPercent, p.UpdatedAt)
	return err
}

func (r Repo) ListOverrides(ctx context.Context, sessionID string) ([]domain.FieldPosition, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT session_id,field_id,x_percent,y_percent,updated_at FROM position_overrides WHERE session_id=?`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FieldPosition
	for rows.Next() {
		var p domain.FieldPosition
		if err := rows.Scan(&p.SessionID, &p.FieldID, &p.XPercent, &p.YPercent, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpsertSubmission(ctx context.Context, tx *sql.Tx, s domain.Submission) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO submissions(session_id,document_id,status,error,attempted_at) VALUES (?,?,?,?,?)
ON CONFLICT(session_id,document_id) DO UPDATE SET status=excluded.status, error=excluded.error, attempted_at=excluded.attempted_at`,
		s.SessionID, s.DocumentID, s.Status, nullable(s.Error), s.AttemptedAt)
	return err
}

func (r Repo) ListSubmissions(ctx context.Context, sessionID string) ([]domain.Submission, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT session_id,document_id,status,COALESCE(error,''),attempted_at FROM submissions WHERE session_id=?`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Submission
	for rows.Next() {
		var s domain.Submission
		if err := rows.Scan(&s.SessionID, &s.DocumentID, &s.Status, &s.Error, &s.AttemptedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, limit int, sessionID, evtType string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if sessionID != "" {
		clauses = append(clauses, "session_id=?")
		args = append(args, sessionID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	query := `SELECT id,ts,type,session_id,entity_kind,entity_id,actor_id,payload_json FROM events WHERE ` + joinAnd(clauses) + ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id,ts,type,session_id,entity_kind,entity_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`
	return r.queryEvents(ctx, query, cursor, limit)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id)
	return id, err
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var sessionID, entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &sessionID, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if sessionID.Valid {
			e.SessionID = sessionID.String
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
