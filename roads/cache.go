package roads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// RoadDistance is one cached leg lookup
type RoadDistance struct {
	ID         uint   `gorm:"primaryKey"`
	LegKey     string `gorm:"uniqueIndex;size:128;not null"`
	DistanceKm float64
	Blocked    bool
	CreatedAt  time.Time
}

func (RoadDistance) TableName() string {
	return "road_distances"
}

// CacheOptions selects the cache database
type CacheOptions struct {
	Driver string // sqlite or postgres
	DSN    string // postgres DSN, or sqlite path; empty sqlite path means in-memory
}

// OpenCache connects to the cache database and migrates the table
func OpenCache(opts CacheOptions, log zerolog.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch opts.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			SkipDefaultTransaction: true,
			Logger:                 logger.Default.LogMode(logger.Silent),
		})
	case "sqlite", "":
		dsn := opts.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
			Logger:                 logger.Default.LogMode(logger.Silent),
		})
	default:
		return nil, fmt.Errorf("unknown cache driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", opts.Driver, err)
	}

	if err := db.AutoMigrate(&RoadDistance{}); err != nil {
		return nil, fmt.Errorf("migrate road_distances: %w", err)
	}

	log.Info().Str("driver", db.Dialector.Name()).Msg("Road distance cache ready")
	return db, nil
}

// CachedProvider persists results of another provider. Distances and blocked
// answers are cached; lookup failures are not, so a later call can retry.
type CachedProvider struct {
	next      engine.RoadDistanceProvider
	db        *gorm.DB
	namespace string
	logger    zerolog.Logger
}

// NewCachedProvider wraps next. namespace separates entries from different
// routing profiles sharing one table.
func NewCachedProvider(db *gorm.DB, next engine.RoadDistanceProvider, namespace string, logger zerolog.Logger) *CachedProvider {
	return &CachedProvider{
		next:      next,
		db:        db,
		namespace: namespace,
		logger:    logger,
	}
}

// legKey rounds coordinates to 5 decimals (about a meter)
func legKey(namespace string, from, to engine.Coordinates) string {
	return fmt.Sprintf("%s|%.5f,%.5f|%.5f,%.5f",
		namespace, from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

func (c *CachedProvider) RoadDistance(ctx context.Context, from, to engine.Coordinates) (float64, error) {
	key := legKey(c.namespace, from, to)

	var row RoadDistance
	err := c.db.WithContext(ctx).Where("leg_key = ?", key).Take(&row).Error
	switch {
	case err == nil:
		if row.Blocked {
			return 0, fmt.Errorf("cached: %w", engine.ErrRouteBlocked)
		}
		return row.DistanceKm, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		c.logger.Warn().Err(err).Str("leg", key).Msg("Road cache read failed")
	}

	km, err := c.next.RoadDistance(ctx, from, to)
	blocked := errors.Is(err, engine.ErrRouteBlocked)
	if err != nil && !blocked {
		return 0, err
	}

	row = RoadDistance{LegKey: key, DistanceKm: km, Blocked: blocked}
	if werr := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; werr != nil {
		c.logger.Warn().Err(werr).Str("leg", key).Msg("Road cache write failed")
	}

	return km, err
}

// Len returns the number of cached legs
func (c *CachedProvider) Len(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(&RoadDistance{}).Count(&n).Error
	return n, err
}
