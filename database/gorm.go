package database

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sahilchouksey/coursehub-api/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GORMStore is the Postgres-backed Storage
type GORMStore struct {
	db       *gorm.DB
	users    *gormUsers
	courses  *gormCourses
	payments *gormPayments
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM(env *config.EnvironmentVariable) (*GORMStore, error) {
	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Warn)
	if env.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(postgres.Open(env.DSN()), &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		slog.Error("unable to connect to PostgreSQL with GORM", "error", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	slog.Info("connected to PostgreSQL with GORM", "host", env.DB_HOST, "db", env.DB_NAME)

	return NewGORMStore(db), nil
}

// NewGORMStore wraps an open connection
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{
		db:       db,
		users:    &gormUsers{db: db},
		courses:  &gormCourses{db: db},
		payments: &gormPayments{db: db},
	}
}

func (s *GORMStore) Users() UserStore       { return s.users }
func (s *GORMStore) Courses() CourseStore   { return s.courses }
func (s *GORMStore) Payments() PaymentStore { return s.payments }

// Init runs AutoMigrate and creates the partial index that backs the
// one-succeeded-payment-per-purchase rule
func (s *GORMStore) Init() error {
	slog.Info("running GORM AutoMigrate")

	if err := s.db.AutoMigrate(&userRow{}, &courseRow{}, &paymentRow{}); err != nil {
		slog.Error("error running AutoMigrate", "error", err)
		return err
	}

	return s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_intents_one_success
		ON payment_intents (user_id, course_id) WHERE status = 'succeeded'`).Error
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	slog.Info("closing GORM PostgreSQL connection")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	}
	return err
}

// likePattern escapes LIKE metacharacters and wraps q in wildcards
func likePattern(q string) string {
	r := []rune{'%'}
	for _, c := range q {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(append(r, '%'))
}
