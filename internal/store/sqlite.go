package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fyrsmithlabs/interviewd/internal/session"
)

// sessionModel is the GORM model for persisted sessions. The transcript
// slices are stored as JSON columns: sessions are always loaded and saved
// whole, so relational decomposition buys nothing here.
type sessionModel struct {
	ID                        string `gorm:"primaryKey"`
	Topic                     string `gorm:"not null;index:idx_sessions_topic"`
	InterviewType             string `gorm:"not null"`
	Phase                     string `gorm:"not null;index:idx_sessions_phase"`
	BaseQuestion              string `gorm:"not null"`
	FollowUps                 string `gorm:"not null;default:'[]'"`
	Clarifications            string `gorm:"not null;default:'[]'"`
	BadAnswerCount            int    `gorm:"not null;default:0"`
	ConsecutiveBadAnswerCount int    `gorm:"not null;default:0"`
	CodingClarificationCount  int    `gorm:"not null;default:0"`
	CompletionReason          string `gorm:"not null;default:''"`
	Version                   int64  `gorm:"not null;default:0"`
	CreatedAt                 time.Time
	UpdatedAt                 time.Time `gorm:"index:idx_sessions_updated"`
}

// TableName specifies the table name for GORM.
func (sessionModel) TableName() string { return "interview_sessions" }

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *gorm.DB
}

var _ Store = (*SQLiteStore)(nil)

// gormLogger adapts GORM's logging to zap. Queries are only surfaced when
// they fail or run slow.
type gormLogger struct {
	log   *zap.Logger
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{log: l.log, level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.log.Error("gorm query error",
			zap.Error(err),
			zap.Duration("duration", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	case elapsed > 200*time.Millisecond:
		l.log.Warn("slow query",
			zap.Duration("duration", elapsed),
			zap.String("sql", sql),
			zap.Int64("rows", rows),
		)
	}
}

// NewSQLite opens (or creates) the session database at path.
func NewSQLite(path string, log *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a path")
	}
	if log == nil {
		log = zap.NewNop()
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[1:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  (&gormLogger{log: log}).LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps readers from blocking the answer-processing writer.
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&sessionModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session schema: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	return &SQLiteStore{db: db}, nil
}

func (r *SQLiteStore) Create(ctx context.Context, s *session.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	model, err := toModel(s)
	if err != nil {
		return err
	}

	err = withRetry(func() error {
		return r.db.WithContext(ctx).Create(&model).Error
	}, 3)
	if err != nil {
		if isDuplicateErr(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("creating session %s: %w", s.ID, err)
	}
	return nil
}

func (r *SQLiteStore) Load(ctx context.Context, id string) (*session.Session, error) {
	var model sessionModel
	err := withRetry(func() error {
		return r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return fromModel(model)
}

func (r *SQLiteStore) Save(ctx context.Context, s *session.Session, expectedVersion int64) error {
	if err := s.Validate(); err != nil {
		return err
	}

	followUps, clarifications, err := marshalTranscript(s)
	if err != nil {
		return err
	}

	var rowsAffected int64
	err = withRetry(func() error {
		res := r.db.WithContext(ctx).Model(&sessionModel{}).
			Where("id = ? AND version = ?", s.ID, expectedVersion).
			Updates(map[string]any{
				"phase":                        s.Phase.String(),
				"follow_ups":                   followUps,
				"clarifications":               clarifications,
				"bad_answer_count":             s.BadAnswerCount,
				"consecutive_bad_answer_count": s.ConsecutiveBadAnswerCount,
				"coding_clarification_count":   s.CodingClarificationCount,
				"completion_reason":            s.CompletionReason.String(),
				"version":                      expectedVersion + 1,
				"updated_at":                   s.UpdatedAt,
			})
		rowsAffected = res.RowsAffected
		return res.Error
	}, 3)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", s.ID, err)
	}

	if rowsAffected == 0 {
		// Missing row and stale version look the same to the update.
		var count int64
		if err := r.db.WithContext(ctx).Model(&sessionModel{}).Where("id = ?", s.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("saving session %s: %w", s.ID, err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	s.Version = expectedVersion + 1
	return nil
}

func (r *SQLiteStore) List(ctx context.Context) ([]*session.Session, error) {
	var models []sessionModel
	err := withRetry(func() error {
		return r.db.WithContext(ctx).Order("created_at DESC, id").Find(&models).Error
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	out := make([]*session.Session, 0, len(models))
	for _, m := range models {
		s, err := fromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SQLiteStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func marshalTranscript(s *session.Session) (followUps, clarifications string, err error) {
	fu, err := json.Marshal(s.FollowUps)
	if err != nil {
		return "", "", fmt.Errorf("marshaling follow-ups: %w", err)
	}
	cl, err := json.Marshal(s.Clarifications)
	if err != nil {
		return "", "", fmt.Errorf("marshaling clarifications: %w", err)
	}
	return string(fu), string(cl), nil
}

func toModel(s *session.Session) (sessionModel, error) {
	followUps, clarifications, err := marshalTranscript(s)
	if err != nil {
		return sessionModel{}, err
	}
	return sessionModel{
		ID:                        s.ID,
		Topic:                     s.Topic,
		InterviewType:             s.Type.String(),
		Phase:                     s.Phase.String(),
		BaseQuestion:              s.BaseQuestion,
		FollowUps:                 followUps,
		Clarifications:            clarifications,
		BadAnswerCount:            s.BadAnswerCount,
		ConsecutiveBadAnswerCount: s.ConsecutiveBadAnswerCount,
		CodingClarificationCount:  s.CodingClarificationCount,
		CompletionReason:          s.CompletionReason.String(),
		Version:                   s.Version,
		CreatedAt:                 s.CreatedAt,
		UpdatedAt:                 s.UpdatedAt,
	}, nil
}

func fromModel(m sessionModel) (*session.Session, error) {
	s := &session.Session{
		ID:                        m.ID,
		Topic:                     m.Topic,
		Type:                      session.InterviewType(m.InterviewType),
		Phase:                     session.Phase(m.Phase),
		BaseQuestion:              m.BaseQuestion,
		BadAnswerCount:            m.BadAnswerCount,
		ConsecutiveBadAnswerCount: m.ConsecutiveBadAnswerCount,
		CodingClarificationCount:  m.CodingClarificationCount,
		CompletionReason:          session.CompletionReason(m.CompletionReason),
		Version:                   m.Version,
		CreatedAt:                 m.CreatedAt,
		UpdatedAt:                 m.UpdatedAt,
	}
	if m.FollowUps != "" {
		if err := json.Unmarshal([]byte(m.FollowUps), &s.FollowUps); err != nil {
			return nil, fmt.Errorf("unmarshaling follow-ups for %s: %w", m.ID, err)
		}
	}
	if m.Clarifications != "" {
		if err := json.Unmarshal([]byte(m.Clarifications), &s.Clarifications); err != nil {
			return nil, fmt.Errorf("unmarshaling clarifications for %s: %w", m.ID, err)
		}
	}
	return s, nil
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// withRetry retries on SQLite busy/locked errors with linear backoff.
func withRetry(fn func() error, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries", maxRetries)
}
