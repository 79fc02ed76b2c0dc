package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
)

// PostgresStore хранит сессии в таблице portal_sessions.
type PostgresStore struct {
	db     *sqlx.DB
	sealer *Sealer
}

func NewPostgresStore(db *sqlx.DB, sealer *Sealer) *PostgresStore {
	return &PostgresStore{db: db, sealer: sealer}
}

type sessionRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	UserEmail       string         `db:"user_email"`
	UserName        string         `db:"user_name"`
	UserRole        string         `db:"user_role"`
	TokenSealed     []byte         `db:"token_sealed"`
	ProviderProfile sql.NullString `db:"provider_profile"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	ExpiresAt       time.Time      `db:"expires_at"`
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]*Session, error) {
	var rows []sessionRow
	query := `
		SELECT id, user_id, user_email, user_name, user_role, token_sealed,
		       provider_profile, created_at, updated_at, expires_at
		FROM portal_sessions
		WHERE expires_at > NOW()
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("session: не удалось загрузить сессии: %w", err)
	}

	out := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sess, err := s.fromRow(row)
		if err != nil {
			// Сессия с битым токеном просто не восстанавливается, пользователь войдет заново.
			logger.WithComponent("session").WithError(err).WithField("session_id", row.ID).Warn("пропускаем сессию")
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess *Session) error {
	sealed, err := s.sealer.Seal(sess.BackendToken)
	if err != nil {
		return err
	}

	var profile sql.NullString
	if sess.ProviderProfile != nil {
		raw, err := json.Marshal(sess.ProviderProfile)
		if err != nil {
			return fmt.Errorf("session: не удалось сериализовать профиль: %w", err)
		}
		profile = sql.NullString{String: string(raw), Valid: true}
	}

	row := sessionRow{
		ID:              sess.ID,
		UserID:          sess.User.ID,
		UserEmail:       sess.User.Email,
		UserName:        sess.User.Name,
		UserRole:        string(sess.User.Role),
		TokenSealed:     sealed,
		ProviderProfile: profile,
		CreatedAt:       sess.CreatedAt,
		UpdatedAt:       sess.UpdatedAt,
		ExpiresAt:       sess.ExpiresAt,
	}

	query := `
		INSERT INTO portal_sessions (
			id, user_id, user_email, user_name, user_role, token_sealed,
			provider_profile, created_at, updated_at, expires_at
		) VALUES (
			:id, :user_id, :user_email, :user_name, :user_role, :token_sealed,
			:provider_profile, :created_at, :updated_at, :expires_at
		)
		ON CONFLICT (id) DO UPDATE SET
			user_email = EXCLUDED.user_email,
			user_name = EXCLUDED.user_name,
			user_role = EXCLUDED.user_role,
			token_sealed = EXCLUDED.token_sealed,
			provider_profile = EXCLUDED.provider_profile,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("session: не удалось сохранить сессию: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("session: не удалось удалить сессию: %w", err)
	}
	return nil
}

func (s *PostgresStore) fromRow(row sessionRow) (*Session, error) {
	token, err := s.sealer.Open(row.TokenSealed)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID: row.ID,
		User: models.User{
			ID:    row.UserID,
			Email: row.UserEmail,
			Name:  row.UserName,
			Role:  models.Role(row.UserRole),
		},
		BackendToken: token,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		ExpiresAt:    row.ExpiresAt,
	}

	if row.ProviderProfile.Valid {
		var p models.Provider
		if err := json.Unmarshal([]byte(row.ProviderProfile.String), &p); err != nil {
			return nil, fmt.Errorf("session: битый provider_profile: %w", err)
		}
		sess.ProviderProfile = &p
	}
	return sess, nil
}
