package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

// Settings acessa a linha singleton (id = 1) e as preferências de UI
type Settings struct{ db *sql.DB }

func NewSettings(db *sql.DB) *Settings { return &Settings{db: db} }

// Load lê a configuração; Policy.Kind fica vazio, quem define é o processo
func (s *Settings) Load(ctx context.Context) (lottery.Settings, error) {
	const q = `SELECT credential_hash, unit_prize, min_stake, theme FROM settings WHERE id = 1`

	var (
		out  lottery.Settings
		hash sql.NullString
	)
	err := s.db.QueryRowContext(ctx, q).Scan(&hash, &out.Policy.UnitPrize, &out.MinStake, &out.Theme)
	if errors.Is(err, sql.ErrNoRows) {
		return lottery.Settings{}, storageErr("load settings", errors.New("settings row missing, run migrations"))
	}
	if err != nil {
		return lottery.Settings{}, storageErr("load settings", err)
	}
	if hash.Valid {
		h := hash.String
		out.CredentialHash = &h
	}
	return out, nil
}

func (s *Settings) Update(ctx context.Context, unitPrize, minStake int64, theme string) error {
	const q = `
		UPDATE settings
		SET unit_prize = $1, min_stake = $2, theme = $3, updated_at = NOW()
		WHERE id = 1`
	if _, err := s.db.ExecContext(ctx, q, unitPrize, minStake, theme); err != nil {
		return storageErr("update settings", err)
	}
	return nil
}

// SetCredentialHash grava o hash; nil volta a liberar o acesso sem senha
func (s *Settings) SetCredentialHash(ctx context.Context, hash *string) error {
	var v sql.NullString
	if hash != nil {
		v = sql.NullString{String: *hash, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE settings SET credential_hash = $1, updated_at = NOW() WHERE id = 1`, v); err != nil {
		return storageErr("set credential", err)
	}
	return nil
}

func (s *Settings) GetPreference(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM ui_preferences WHERE key = $1`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("get preference", err)
	}
	return json.RawMessage(b), true, nil
}

func (s *Settings) PutPreference(ctx context.Context, key string, value json.RawMessage) error {
	const q = `
		INSERT INTO ui_preferences (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET
		  value      = EXCLUDED.value,
		  updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, string(value)); err != nil {
		return storageErr("put preference", err)
	}
	return nil
}

func (s *Settings) ListPreferences(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM ui_preferences ORDER BY key`)
	if err != nil {
		return nil, storageErr("list preferences", err)
	}
	defer rows.Close()

	out := map[string]json.RawMessage{}
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, storageErr("list preferences scan", err)
		}
		out[k] = json.RawMessage(v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list preferences rows", err)
	}
	return out, nil
}
