package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/buildyoursmartcart/smartcart/internal/models"
)

// EnsureCounter лениво создаёт счётчик расхода для пары (пользователь, функция)
// и обновляет лимит, если тариф пользователя изменился с момента создания.
func (s *Storage) EnsureCounter(ctx context.Context, userUID string, feature models.FeatureKind, limit int, periodStart time.Time) error {
	const op = "storage.EnsureCounter"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO usage_counters (user_uid, feature_kind, used, usage_limit, period_start)
			  VALUES ($1, $2, 0, $3, $4)
			  ON CONFLICT (user_uid, feature_kind)
			  DO UPDATE SET usage_limit = EXCLUDED.usage_limit`
	_, err := s.DB.ExecContext(ctx, query, userUID, feature, limit, periodStart)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetCounter возвращает счётчик расхода для пары (пользователь, функция).
func (s *Storage) GetCounter(ctx context.Context, userUID string, feature models.FeatureKind) (*models.UsageCounter, error) {
	const op = "storage.GetCounter"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, feature_kind, used, usage_limit, period_start
			  FROM usage_counters
			  WHERE user_uid = $1 AND feature_kind = $2`
	var c models.UsageCounter
	row := s.DB.QueryRowContext(ctx, query, userUID, feature)
	if err := row.Scan(&c.UserUID, &c.FeatureKind, &c.Used, &c.Limit, &c.PeriodStart); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// ResetCounterIfRolled сбрасывает счётчик на границе нового периода.
// boundary — начало текущего периода, вычисленное шагами по месяцу от
// сохранённого начала (period.CurrentBoundary); границу считает только
// Go-слой, запрос лишь сравнивает даты. Сброс условный: строка меняется
// только если сохранённое начало периода отстаёт от границы, поэтому
// конкурирующие вызовы не затирают расход свежего периода. Возвращает
// true, если сброс выполнил именно этот вызов.
func (s *Storage) ResetCounterIfRolled(ctx context.Context, userUID string, feature models.FeatureKind, boundary time.Time) (bool, error) {
	const op = "storage.ResetCounterIfRolled"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_counters
			  SET used = 0, period_start = $3
			  WHERE user_uid = $1 AND feature_kind = $2
			    AND period_start < $3`
	result, err := s.DB.ExecContext(ctx, query, userUID, feature, boundary)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// ConsumeUnit атомарно списывает одну единицу квоты. Проверка лимита и
// инкремент выполняются одним условным UPDATE, так что два конкурирующих
// запроса не могут оба пройти через последнюю оставшуюся единицу.
// Возвращает признак успеха и значение счётчика после списания.
func (s *Storage) ConsumeUnit(ctx context.Context, userUID string, feature models.FeatureKind) (bool, int, error) {
	const op = "storage.ConsumeUnit"
	select {
	case <-ctx.Done():
		return false, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_counters
			  SET used = used + 1
			  WHERE user_uid = $1 AND feature_kind = $2 AND used < usage_limit
			  RETURNING used`
	var used int
	err := s.DB.QueryRowContext(ctx, query, userUID, feature).Scan(&used)
	if err != nil {
		if isNoRows(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	return true, used, nil
}

// ListCounters возвращает все счётчики пользователя для отображения квот.
func (s *Storage) ListCounters(ctx context.Context, userUID string) ([]*models.UsageCounter, error) {
	const op = "storage.ListCounters"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, feature_kind, used, usage_limit, period_start
			  FROM usage_counters
			  WHERE user_uid = $1
			  ORDER BY feature_kind`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UsageCounter
	for rows.Next() {
		var c models.UsageCounter
		if err := rows.Scan(&c.UserUID, &c.FeatureKind, &c.Used, &c.Limit, &c.PeriodStart); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
