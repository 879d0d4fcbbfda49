package trackerrepo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	"github.com/urbansims/microgreens/internal/domain/tracker"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS seeds (
	id BIGSERIAL PRIMARY KEY,
	seed_type TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	latin_name TEXT NOT NULL DEFAULT '',
	difficulty TEXT NOT NULL DEFAULT '',
	seed_count_per_gram TEXT NOT NULL DEFAULT '',
	soaking_duration_hours DOUBLE PRECISION,
	blackout_time_days DOUBLE PRECISION,
	germination_days DOUBLE PRECISION,
	harvest_days DOUBLE PRECISION,
	soaking_req TEXT NOT NULL DEFAULT '',
	watering_req TEXT NOT NULL DEFAULT '',
	suggested_seed_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_yield_grams DOUBLE PRECISION NOT NULL DEFAULT 0,
	ideal_temp DOUBLE PRECISION NOT NULL DEFAULT 0,
	ideal_humidity DOUBLE PRECISION NOT NULL DEFAULT 0,
	temp_tolerance DOUBLE PRECISION NOT NULL DEFAULT 0,
	humidity_tolerance DOUBLE PRECISION NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	taste TEXT NOT NULL DEFAULT '',
	nutrition TEXT NOT NULL DEFAULT '',
	care_instructions TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS crops (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	seed_id BIGINT NOT NULL REFERENCES seeds(id),
	start_datetime TIMESTAMPTZ NOT NULL,
	tray_size TEXT NOT NULL,
	number_of_trays INTEGER NOT NULL DEFAULT 1,
	status TEXT NOT NULL DEFAULT 'active',
	cost DOUBLE PRECISION,
	light_hours DOUBLE PRECISION,
	custom_settings JSONB NOT NULL DEFAULT '{}',
	notification_settings JSONB NOT NULL DEFAULT '{}',
	harvested_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_crops_user ON crops(user_id);
CREATE INDEX IF NOT EXISTS idx_crops_seed ON crops(seed_id);

CREATE TABLE IF NOT EXISTS daily_logs (
	id BIGSERIAL PRIMARY KEY,
	crop_id BIGINT NOT NULL REFERENCES crops(id) ON DELETE CASCADE,
	day_number INTEGER NOT NULL,
	watered BOOLEAN NOT NULL DEFAULT FALSE,
	actions_recorded TEXT[] NOT NULL DEFAULT '{}',
	temperature DOUBLE PRECISION,
	humidity DOUBLE PRECISION,
	photo_path TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	predicted_yield DOUBLE PRECISION,
	logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (crop_id, day_number)
);

CREATE TABLE IF NOT EXISTS harvests (
	id BIGSERIAL PRIMARY KEY,
	crop_id BIGINT NOT NULL UNIQUE REFERENCES crops(id) ON DELETE CASCADE,
	actual_weight DOUBLE PRECISION NOT NULL,
	predicted_weight DOUBLE PRECISION NOT NULL,
	accuracy_percent DOUBLE PRECISION NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	harvested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS training_data (
	id BIGSERIAL PRIMARY KEY,
	crop_id BIGINT NOT NULL UNIQUE REFERENCES crops(id) ON DELETE CASCADE,
	seed_type TEXT NOT NULL,
	daily_logs JSONB NOT NULL,
	final_yield DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresRepository persists the tracker data in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the tracker tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

const seedColumns = `id, seed_type, name, latin_name, difficulty, seed_count_per_gram,
	soaking_duration_hours, blackout_time_days, germination_days, harvest_days,
	soaking_req, watering_req, suggested_seed_weight, avg_yield_grams, ideal_temp, ideal_humidity,
	temp_tolerance, humidity_tolerance, description, taste, nutrition, care_instructions, source_url`

func scanSeed(row pgx.Row) (cultivation.Seed, error) {
	var s cultivation.Seed
	err := row.Scan(&s.ID, &s.SeedType, &s.Name, &s.LatinName, &s.Difficulty, &s.SeedCountPerGram,
		&s.SoakingDurationHours, &s.BlackoutTimeDays, &s.GerminationDays, &s.HarvestDays,
		&s.SoakingReq, &s.WateringReq, &s.SuggestedSeedWeight, &s.AvgYieldGrams, &s.IdealTemp, &s.IdealHumidity,
		&s.TempTolerance, &s.HumidityTolerance, &s.Description, &s.Taste, &s.Nutrition, &s.CareInstructions, &s.SourceURL)
	return s, err
}

func (r *PostgresRepository) ListSeeds(ctx context.Context) ([]cultivation.Seed, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+seedColumns+` FROM seeds ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seeds []cultivation.Seed
	for rows.Next() {
		seed, err := scanSeed(rows)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, seed)
	}
	return seeds, rows.Err()
}

func (r *PostgresRepository) GetSeed(ctx context.Context, id int64) (cultivation.Seed, bool, error) {
	seed, err := scanSeed(r.pool.QueryRow(ctx, `SELECT `+seedColumns+` FROM seeds WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cultivation.Seed{}, false, nil
		}
		return cultivation.Seed{}, false, err
	}
	return seed, true, nil
}

func (r *PostgresRepository) UpsertSeed(ctx context.Context, s cultivation.Seed) (cultivation.Seed, error) {
	if s.SeedType == "" {
		s.SeedType = cultivation.Slugify(s.Name)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO seeds (seed_type, name, latin_name, difficulty, seed_count_per_gram,
			soaking_duration_hours, blackout_time_days, germination_days, harvest_days,
			soaking_req, watering_req, suggested_seed_weight, avg_yield_grams, ideal_temp, ideal_humidity,
			temp_tolerance, humidity_tolerance, description, taste, nutrition, care_instructions, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (seed_type) DO UPDATE SET
			name = EXCLUDED.name, latin_name = EXCLUDED.latin_name, difficulty = EXCLUDED.difficulty,
			seed_count_per_gram = EXCLUDED.seed_count_per_gram,
			soaking_duration_hours = EXCLUDED.soaking_duration_hours,
			blackout_time_days = EXCLUDED.blackout_time_days,
			germination_days = EXCLUDED.germination_days, harvest_days = EXCLUDED.harvest_days,
			soaking_req = EXCLUDED.soaking_req, watering_req = EXCLUDED.watering_req,
			suggested_seed_weight = EXCLUDED.suggested_seed_weight, avg_yield_grams = EXCLUDED.avg_yield_grams,
			ideal_temp = EXCLUDED.ideal_temp, ideal_humidity = EXCLUDED.ideal_humidity,
			temp_tolerance = EXCLUDED.temp_tolerance, humidity_tolerance = EXCLUDED.humidity_tolerance,
			description = EXCLUDED.description, taste = EXCLUDED.taste, nutrition = EXCLUDED.nutrition,
			care_instructions = EXCLUDED.care_instructions, source_url = EXCLUDED.source_url
		RETURNING id
	`, s.SeedType, s.Name, s.LatinName, s.Difficulty, s.SeedCountPerGram,
		s.SoakingDurationHours, s.BlackoutTimeDays, s.GerminationDays, s.HarvestDays,
		s.SoakingReq, s.WateringReq, s.SuggestedSeedWeight, s.AvgYieldGrams, s.IdealTemp, s.IdealHumidity,
		s.TempTolerance, s.HumidityTolerance, s.Description, s.Taste, s.Nutrition, s.CareInstructions, s.SourceURL)
	if err := row.Scan(&s.ID); err != nil {
		return cultivation.Seed{}, err
	}
	return s, nil
}

const cropColumns = `id, user_id, seed_id, start_datetime, tray_size, number_of_trays, status,
	cost, light_hours, custom_settings, notification_settings, harvested_at, created_at`

func scanCrop(row pgx.Row) (cultivation.Crop, error) {
	var c cultivation.Crop
	err := row.Scan(&c.ID, &c.UserID, &c.SeedID, &c.StartDatetime, &c.TraySize, &c.NumberOfTrays, &c.Status,
		&c.Cost, &c.LightHours, &c.CustomSettings, &c.NotificationSettings, &c.HarvestedAt, &c.CreatedAt)
	return c, err
}

func (r *PostgresRepository) CreateCrop(ctx context.Context, c cultivation.Crop) (cultivation.Crop, error) {
	if c.CustomSettings == nil {
		c.CustomSettings = map[string]any{}
	}
	if c.NotificationSettings == nil {
		c.NotificationSettings = map[string]any{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO crops (user_id, seed_id, start_datetime, tray_size, number_of_trays, status,
			cost, light_hours, custom_settings, notification_settings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, c.UserID, c.SeedID, c.StartDatetime, c.TraySize, c.NumberOfTrays, c.Status,
		c.Cost, c.LightHours, c.CustomSettings, c.NotificationSettings, c.CreatedAt)
	if err := row.Scan(&c.ID); err != nil {
		return cultivation.Crop{}, err
	}
	c.Seed = nil
	return c, nil
}

func (r *PostgresRepository) GetCrop(ctx context.Context, id int64) (cultivation.Crop, bool, error) {
	crop, err := scanCrop(r.pool.QueryRow(ctx, `SELECT `+cropColumns+` FROM crops WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cultivation.Crop{}, false, nil
		}
		return cultivation.Crop{}, false, err
	}
	return crop, true, nil
}

func (r *PostgresRepository) ListCrops(ctx context.Context, query tracker.CropQuery) ([]cultivation.Crop, error) {
	sql := `SELECT ` + cropColumns + ` FROM crops WHERE TRUE`
	var args []any
	if query.UserID != 0 {
		args = append(args, query.UserID)
		sql += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if query.Status != "" {
		args = append(args, query.Status)
		sql += ` AND status = $` + strconv.Itoa(len(args))
	}
	if query.SeedID != 0 {
		args = append(args, query.SeedID)
		sql += ` AND seed_id = $` + strconv.Itoa(len(args))
	}
	sql += ` ORDER BY start_datetime DESC, id DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	crops := make([]cultivation.Crop, 0)
	for rows.Next() {
		crop, err := scanCrop(rows)
		if err != nil {
			return nil, err
		}
		crops = append(crops, crop)
	}
	return crops, rows.Err()
}

func (r *PostgresRepository) DeleteCrop(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM crops WHERE id = $1`, id)
	return err
}

const logColumns = `id, crop_id, day_number, watered, actions_recorded, temperature, humidity,
	photo_path, notes, predicted_yield, logged_at`

func scanLog(row pgx.Row) (cultivation.DailyLog, error) {
	var l cultivation.DailyLog
	err := row.Scan(&l.ID, &l.CropID, &l.DayNumber, &l.Watered, &l.ActionsRecorded, &l.Temperature, &l.Humidity,
		&l.PhotoPath, &l.Notes, &l.PredictedYield, &l.LoggedAt)
	return l, err
}

func (r *PostgresRepository) ListLogs(ctx context.Context, cropID int64) ([]cultivation.DailyLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+logColumns+` FROM daily_logs WHERE crop_id = $1 ORDER BY day_number`, cropID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]cultivation.DailyLog, 0)
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (r *PostgresRepository) GetLog(ctx context.Context, cropID int64, day int) (cultivation.DailyLog, bool, error) {
	log, err := scanLog(r.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM daily_logs WHERE crop_id = $1 AND day_number = $2`, cropID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cultivation.DailyLog{}, false, nil
		}
		return cultivation.DailyLog{}, false, err
	}
	return log, true, nil
}

func (r *PostgresRepository) CreateLog(ctx context.Context, l cultivation.DailyLog) (cultivation.DailyLog, error) {
	if l.ActionsRecorded == nil {
		l.ActionsRecorded = []string{}
	}
	if l.LoggedAt.IsZero() {
		l.LoggedAt = time.Now().UTC()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO daily_logs (crop_id, day_number, watered, actions_recorded, temperature, humidity,
			photo_path, notes, predicted_yield, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, l.CropID, l.DayNumber, l.Watered, l.ActionsRecorded, l.Temperature, l.Humidity,
		l.PhotoPath, l.Notes, l.PredictedYield, l.LoggedAt)
	if err := row.Scan(&l.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return cultivation.DailyLog{}, tracker.ErrDuplicateLog
		}
		return cultivation.DailyLog{}, err
	}
	return l, nil
}

func (r *PostgresRepository) UpdateLog(ctx context.Context, l cultivation.DailyLog) (cultivation.DailyLog, error) {
	if l.ActionsRecorded == nil {
		l.ActionsRecorded = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE daily_logs
		SET watered = $1, actions_recorded = $2, temperature = $3, humidity = $4,
			photo_path = $5, notes = $6, predicted_yield = $7
		WHERE crop_id = $8 AND day_number = $9
	`, l.Watered, l.ActionsRecorded, l.Temperature, l.Humidity, l.PhotoPath, l.Notes, l.PredictedYield, l.CropID, l.DayNumber)
	if err != nil {
		return cultivation.DailyLog{}, err
	}
	return l, nil
}

// HarvestCrop flips an active crop to harvested and inserts its harvest row
// in one transaction.
func (r *PostgresRepository) HarvestCrop(ctx context.Context, h cultivation.Harvest) (cultivation.Harvest, error) {
	if h.HarvestedAt.IsZero() {
		h.HarvestedAt = time.Now().UTC()
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE crops SET status = $1, harvested_at = $2 WHERE id = $3 AND status = $4`,
			cultivation.CropHarvested, h.HarvestedAt, h.CropID, cultivation.CropActive)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return tracker.ErrCropNotActive
		}
		return tx.QueryRow(ctx, `
			INSERT INTO harvests (crop_id, actual_weight, predicted_weight, accuracy_percent, notes, harvested_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, h.CropID, h.ActualWeight, h.PredictedWeight, h.AccuracyPercent, h.Notes, h.HarvestedAt).Scan(&h.ID)
	})
	if err != nil {
		return cultivation.Harvest{}, err
	}
	return h, nil
}

func (r *PostgresRepository) GetHarvest(ctx context.Context, cropID int64) (cultivation.Harvest, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, crop_id, actual_weight, predicted_weight, accuracy_percent, notes, harvested_at
		FROM harvests WHERE crop_id = $1
	`, cropID)
	var h cultivation.Harvest
	if err := row.Scan(&h.ID, &h.CropID, &h.ActualWeight, &h.PredictedWeight, &h.AccuracyPercent, &h.Notes, &h.HarvestedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cultivation.Harvest{}, false, nil
		}
		return cultivation.Harvest{}, false, err
	}
	return h, true, nil
}

func (r *PostgresRepository) SaveTrainingData(ctx context.Context, d cultivation.TrainingData) (cultivation.TrainingData, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.DailyLogs == nil {
		d.DailyLogs = []cultivation.DailyLog{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO training_data (crop_id, seed_type, daily_logs, final_yield, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (crop_id) DO UPDATE SET
			seed_type = EXCLUDED.seed_type, daily_logs = EXCLUDED.daily_logs,
			final_yield = EXCLUDED.final_yield, created_at = EXCLUDED.created_at
		RETURNING id
	`, d.CropID, d.SeedType, d.DailyLogs, d.FinalYield, d.CreatedAt)
	if err := row.Scan(&d.ID); err != nil {
		return cultivation.TrainingData{}, err
	}
	return d, nil
}

var (
	_ tracker.SeedRepository = (*PostgresRepository)(nil)
	_ tracker.CropRepository = (*PostgresRepository)(nil)
)
