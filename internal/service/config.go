package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/care"
	"github.com/fancyplanties/planty/internal/db"
)

const (
	ConfigOwnerID        = "owner_id"
	ConfigSoonWindowDays = "soon_window_days"
)

var configKeys = map[string]func(string) error{
	ConfigOwnerID: func(v string) error {
		if _, err := uuid.Parse(v); err != nil {
			return fmt.Errorf("owner_id must be a uuid: %w", err)
		}
		return nil
	},
	ConfigSoonWindowDays: func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("soon_window_days must be a positive integer")
		}
		return nil
	},
}

func normalizeConfigKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", fmt.Errorf("config key is required")
	}
	if _, ok := configKeys[key]; !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return key, nil
}

func (s *Service) SetConfig(ctx context.Context, key, value string) error {
	key, err := normalizeConfigKey(key)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if err := configKeys[key](value); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value, db.FormatTime(s.now()))
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	s.logger.Info("config updated", zap.String("key", key))
	return nil
}

func (s *Service) GetConfig(ctx context.Context, key string) (string, bool, error) {
	key, err := normalizeConfigKey(key)
	if err != nil {
		return "", false, err
	}
	return getConfig(ctx, s.db, key)
}

func getConfig(ctx context.Context, q queryer, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Service) ListConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config: %w", err)
	}
	return out, nil
}

// ownerID is the local user's id, seeded by migrations.
func (s *Service) ownerID(ctx context.Context, q queryer) (string, error) {
	v, _, err := getConfig(ctx, q, ConfigOwnerID)
	return v, err
}

// classifier honours a per-database soon_window_days over the process
// default. A corrupt stored value is logged and ignored.
func (s *Service) classifier(ctx context.Context) (care.Classifier, error) {
	v, ok, err := getConfig(ctx, s.db, ConfigSoonWindowDays)
	if err != nil {
		return care.Classifier{}, err
	}
	window := s.soonWindow
	if ok {
		if days, convErr := strconv.Atoi(v); convErr == nil && days > 0 {
			window = time.Duration(days) * 24 * time.Hour
		} else {
			s.logger.Warn("ignoring invalid soon_window_days", zap.String("value", v))
		}
	}
	return care.NewClassifier(window), nil
}
