package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursehub-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRow struct {
	Seq          int64  `gorm:"autoIncrement;uniqueIndex"`
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Email        string `gorm:"uniqueIndex;not null;type:varchar(255)"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"type:varchar(100)"`
	LastName     string `gorm:"type:varchar(100)"`
	Bio          string
	AvatarURL    string
	Role         string `gorm:"type:varchar(20);index"`
	Preferences  datatypes.JSONType[model.Preferences]
	Progress     datatypes.JSONType[[]model.CourseProgress]
	CreatedAt    time.Time
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (userRow) TableName() string { return "users" }

func newUserRow(u model.User) userRow {
	return userRow{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
		Role:         string(u.Role),
		Preferences:  datatypes.NewJSONType(u.Preferences),
		Progress:     datatypes.NewJSONType(u.Progress),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRow) toModel() model.User {
	u := model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Bio:          r.Bio,
		AvatarURL:    r.AvatarURL,
		Role:         model.Role(r.Role),
		Preferences:  r.Preferences.Data(),
		Progress:     r.Progress.Data(),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if u.Progress == nil {
		u.Progress = []model.CourseProgress{}
	}
	return u
}

type gormUsers struct {
	db *gorm.DB
}

func (s *gormUsers) Create(ctx context.Context, user model.User) (model.User, error) {
	user.ID = uuid.NewString()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	if user.Progress == nil {
		user.Progress = []model.CourseProgress{}
	}

	row := newUserRow(user)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, err
	}
	return row.toModel(), nil
}

func (s *gormUsers) FindByID(ctx context.Context, id string) (model.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.User{}, translate(err)
	}
	return row.toModel(), nil
}

func (s *gormUsers) FindByEmail(ctx context.Context, email string) (model.User, error) {
	var row userRow
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return model.User{}, translate(err)
	}
	return row.toModel(), nil
}

func (s *gormUsers) FindBy(ctx context.Context, filter UserFilter) ([]model.User, error) {
	q := s.db.WithContext(ctx).Model(&userRow{})
	if filter.Role != "" {
		q = q.Where("role = ?", string(filter.Role))
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", p, p, p)
	}

	var rows []userRow
	if err := q.Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// mutate loads the row FOR UPDATE, applies fn and saves it in one transaction
func (s *gormUsers) mutate(ctx context.Context, id string, fn func(*model.User) error) (model.User, error) {
	var out model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error; err != nil {
			return translate(err)
		}
		user := row.toModel()
		if err := fn(&user); err != nil {
			return err
		}
		user.UpdatedAt = touch(row.UpdatedAt)

		next := newUserRow(user)
		next.Seq = row.Seq
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		out = next.toModel()
		return nil
	})
	return out, err
}

func (s *gormUsers) Update(ctx context.Context, id string, patch UserUpdate) (model.User, error) {
	return s.mutate(ctx, id, func(u *model.User) error {
		patch.apply(u)
		return nil
	})
}

func (s *gormUsers) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&userRow{})
	return res.RowsAffected > 0, res.Error
}

func (s *gormUsers) AddProgress(ctx context.Context, userID string, progress model.CourseProgress) (model.User, error) {
	return s.mutate(ctx, userID, func(u *model.User) error {
		if _, ok := u.ProgressFor(progress.CourseID); ok {
			return ErrAlreadyEnrolled
		}
		if progress.CompletedModules == nil {
			progress.CompletedModules = []string{}
		}
		u.Progress = append(u.Progress, progress)
		return nil
	})
}

func (s *gormUsers) UpdateProgress(ctx context.Context, userID, courseID string, fn func(*model.CourseProgress) error) (model.CourseProgress, error) {
	user, err := s.mutate(ctx, userID, func(u *model.User) error {
		p, ok := u.ProgressFor(courseID)
		if !ok {
			return ErrNotFound
		}
		return fn(p)
	})
	if err != nil {
		return model.CourseProgress{}, err
	}
	p, _ := user.ProgressFor(courseID)
	return *p, nil
}
