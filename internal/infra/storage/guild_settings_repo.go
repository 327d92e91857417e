package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/jose-valero/voice-bouncer/internal/domain"
)

const settingsColumns = `guild_id, guild_name, private_vc_id, waiting_vc_id, text_channel_id, enabled, created_at, updated_at`

type GuildSettingsRepo struct{ db *sql.DB }

func NewGuildSettingsRepo(db *sql.DB) *GuildSettingsRepo { return &GuildSettingsRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettings(row rowScanner) (domain.GuildSettings, error) {
	var s domain.GuildSettings
	err := row.Scan(&s.GuildID, &s.GuildName, &s.PrivateRoomID, &s.WaitingRoomID, &s.NoticeChannelID,
		&s.Enabled, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Get devuelve ErrNotFound si el guild nunca corrió /bouncersetup.
func (r *GuildSettingsRepo) Get(ctx context.Context, guildID string) (domain.GuildSettings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx, `
SELECT `+settingsColumns+`
  FROM guild_settings
 WHERE guild_id = $1
`, guildID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GuildSettings{}, ErrNotFound
	}
	return s, err
}

// Update hace upsert solo de los campos presentes en el patch.
func (r *GuildSettingsRepo) Update(ctx context.Context, guildID string, p domain.GuildSettingsPatch) (domain.GuildSettings, error) {
	cols, args := patchColumns(p)
	q := upsertQuery(cols)
	s, err := scanSettings(r.db.QueryRowContext(ctx, q, append([]any{guildID}, args...)...))
	if err != nil {
		return domain.GuildSettings{}, fmt.Errorf("upsert guild_settings: %w", err)
	}
	return s, nil
}

func (r *GuildSettingsRepo) Delete(ctx context.Context, guildID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM guild_settings WHERE guild_id = $1`, guildID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListByGuildIDs trae varias filas de una (los guilds sin fila no aparecen).
func (r *GuildSettingsRepo) ListByGuildIDs(ctx context.Context, ids []string) ([]domain.GuildSettings, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+settingsColumns+`
  FROM guild_settings
 WHERE guild_id = ANY($1)
 ORDER BY guild_id
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GuildSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// patchColumns arma (columna, valor) en orden fijo para los campos no-nil.
func patchColumns(p domain.GuildSettingsPatch) ([]string, []any) {
	cols := make([]string, 0, 5)
	args := make([]any, 0, 5)
	if p.GuildName != nil {
		cols = append(cols, "guild_name")
		args = append(args, *p.GuildName)
	}
	if p.PrivateRoomID != nil {
		cols = append(cols, "private_vc_id")
		args = append(args, *p.PrivateRoomID)
	}
	if p.WaitingRoomID != nil {
		cols = append(cols, "waiting_vc_id")
		args = append(args, *p.WaitingRoomID)
	}
	if p.NoticeChannelID != nil {
		cols = append(cols, "text_channel_id")
		args = append(args, *p.NoticeChannelID)
	}
	if p.Enabled != nil {
		cols = append(cols, "enabled")
		args = append(args, *p.Enabled)
	}
	return cols, args
}

// upsertQuery: $1 es siempre guild_id, las columnas del patch van de $2 en adelante.
// Sin columnas igual crea la fila (defaults) y la devuelve.
func upsertQuery(cols []string) string {
	insertCols := append([]string{"guild_id"}, cols...)
	placeholders := make([]string, len(insertCols))
	for i := range insertCols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	sets = append(sets, "updated_at = NOW()")

	return `
INSERT INTO guild_settings (` + strings.Join(insertCols, ", ") + `)
VALUES (` + strings.Join(placeholders, ", ") + `)
ON CONFLICT (guild_id) DO UPDATE SET
  ` + strings.Join(sets, ",\n  ") + `
RETURNING ` + settingsColumns
}

// SettingsStore adapta el repo a service.SettingsWriter: sin fila = guild sin configurar.
type SettingsStore struct{ *GuildSettingsRepo }

func NewSettingsStore(repo *GuildSettingsRepo) SettingsStore { return SettingsStore{repo} }

func (s SettingsStore) Get(ctx context.Context, guildID string) (domain.GuildSettings, error) {
	st, err := s.GuildSettingsRepo.Get(ctx, guildID)
	if errors.Is(err, ErrNotFound) {
		return domain.GuildSettings{GuildID: guildID}, nil
	}
	return st, err
}
