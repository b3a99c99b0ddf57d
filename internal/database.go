package internal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DatabaseManager persists the identity cache and a history of
// reconciled status records in PostgreSQL. Like the cache, it is
// disabled-friendly: without a database the reconciler still runs,
// it just loses history and warm identity lookups across restarts.
type DatabaseManager struct {
	DB      *sql.DB
	Enabled bool
	logger  *Logger
}

type StatusRecord struct {
	CycleID       string      `json:"cycleId"`
	State         PlayerState `json:"state"`
	Champion      string      `json:"champion"`
	MatchID       string      `json:"matchId"`
	Kills         int         `json:"kills"`
	Deaths        int         `json:"deaths"`
	Assists       int         `json:"assists"`
	KDA           float64     `json:"kda"`
	Rank          string      `json:"rank"`
	SummonerLevel int         `json:"summonerLevel"`
	Error         string      `json:"error,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

func NewDatabaseManager(cfg *Config, logger *Logger) *DatabaseManager {
	if !cfg.DatabaseEnabled {
		logger.Info("database_disabled").
			Component("database").
			Operation("connect").
			Log()
		return &DatabaseManager{Enabled: false, logger: logger}
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDb,
		cfg.PostgresSSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("database_open_failed").
			Component("database").
			Operation("connect").
			Err(err).
			Log()
		return &DatabaseManager{Enabled: false, logger: logger}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Error("database_ping_failed").
			Component("database").
			Operation("connect").
			Err(err).
			Log()
		return &DatabaseManager{Enabled: false, logger: logger}
	}

	logger.Info("database_connected").
		Component("database").
		Operation("connect").
		Log()

	return &DatabaseManager{
		DB:      db,
		Enabled: true,
		logger:  logger,
	}
}

// SaveIdentity upserts the resolved identity so restarts skip the
// account lookup entirely.
func (dm *DatabaseManager) SaveIdentity(identity *PlayerIdentity) error {
	if !dm.Enabled {
		return nil
	}

	query := `
		INSERT INTO player_identity (region, game_name, tag_line, puuid)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (region, game_name, tag_line) DO UPDATE SET
			puuid = $4,
			last_updated = CURRENT_TIMESTAMP
	`

	_, err := dm.DB.Exec(query, identity.Region, identity.GameName, identity.TagLine, identity.PUUID)
	if err != nil {
		dm.logger.Error("identity_save_failed").
			Component("database").
			Operation("save_identity").
			Player(identity.PUUID, identity.Region).
			Err(err).
			Log()
		return err
	}

	return nil
}

func (dm *DatabaseManager) GetIdentity(region, gameName, tagLine string) (*PlayerIdentity, error) {
	if !dm.Enabled {
		return nil, fmt.Errorf("database not enabled")
	}

	identity := PlayerIdentity{Region: region, GameName: gameName, TagLine: tagLine}
	query := `
		SELECT puuid FROM player_identity
		WHERE region = $1 AND game_name = $2 AND tag_line = $3
	`

	err := dm.DB.QueryRow(query, region, gameName, tagLine).Scan(&identity.PUUID)
	if err != nil {
		return nil, err
	}
	if identity.PUUID == "" {
		return nil, sql.ErrNoRows
	}

	return &identity, nil
}

// SaveStatus appends one row per refresh cycle outcome.
func (dm *DatabaseManager) SaveStatus(cycleID string, status *ReconciledStatus) error {
	if !dm.Enabled {
		return nil
	}

	query := `
		INSERT INTO status_history
			(cycle_id, state, champion, match_id, kills, deaths, assists, kda, rank, summoner_level, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := dm.DB.Exec(query,
		cycleID,
		string(status.State),
		status.Champion,
		status.MatchID,
		status.Kills,
		status.Deaths,
		status.Assists,
		status.KDA,
		status.Ranked.Rank(),
		status.SummonerLevel,
		status.Error,
	)
	if err != nil {
		dm.logger.Error("status_save_failed").
			Component("database").
			Operation("save_status").
			Cycle(cycleID).
			State(status.State).
			Err(err).
			Log()
		return err
	}

	return nil
}

func (dm *DatabaseManager) GetStatusHistory(limit int) ([]StatusRecord, error) {
	if !dm.Enabled {
		return nil, fmt.Errorf("database not enabled")
	}
	if limit < 1 {
		limit = 50
	}

	query := `
		SELECT cycle_id, state, champion, match_id, kills, deaths, assists, kda, rank, summoner_level, error, created_at
		FROM status_history
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := dm.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StatusRecord
	for rows.Next() {
		var rec StatusRecord
		var state string
		if err := rows.Scan(
			&rec.CycleID,
			&state,
			&rec.Champion,
			&rec.MatchID,
			&rec.Kills,
			&rec.Deaths,
			&rec.Assists,
			&rec.KDA,
			&rec.Rank,
			&rec.SummonerLevel,
			&rec.Error,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.State = PlayerState(state)
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (dm *DatabaseManager) GetHistoryStats() (map[string]interface{}, error) {
	if !dm.Enabled {
		return map[string]interface{}{
			"enabled": false,
		}, nil
	}

	var total, recent int
	dm.DB.QueryRow("SELECT COUNT(*) FROM status_history").Scan(&total)
	dm.DB.QueryRow("SELECT COUNT(*) FROM status_history WHERE created_at > NOW() - INTERVAL '24 hours'").Scan(&recent)

	return map[string]interface{}{
		"enabled":    true,
		"total_rows": total,
		"last_24h":   recent,
	}, nil
}

func (dm *DatabaseManager) Close() {
	if dm.Enabled && dm.DB != nil {
		dm.DB.Close()
	}
}
