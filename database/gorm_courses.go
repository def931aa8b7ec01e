package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursehub-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type courseRow struct {
	Seq              int64  `gorm:"autoIncrement;uniqueIndex"`
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	Title            string `gorm:"not null;type:varchar(200)"`
	Description      string
	ShortDescription string
	Category         string `gorm:"type:varchar(100);index"`
	Level            string `gorm:"type:varchar(20)"`
	Language         string `gorm:"type:varchar(20)"`
	Tags             datatypes.JSONType[[]string]
	ThumbnailURL     string
	ThumbnailKey     string
	InstructorID     string `gorm:"type:varchar(36);index"`
	InstructorName   string
	Price            int64
	Currency         string `gorm:"type:varchar(3)"`
	Modules          datatypes.JSONType[[]model.Module]
	Stats            datatypes.JSONType[model.CourseStats]
	IsPublished      bool `gorm:"index"`
	PublishedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (courseRow) TableName() string { return "courses" }

func newCourseRow(c model.Course) courseRow {
	return courseRow{
		ID:               c.ID,
		Title:            c.Title,
		Description:      c.Description,
		ShortDescription: c.ShortDescription,
		Category:         c.Category,
		Level:            string(c.Level),
		Language:         c.Language,
		Tags:             datatypes.NewJSONType(c.Tags),
		ThumbnailURL:     c.ThumbnailURL,
		ThumbnailKey:     c.ThumbnailKey,
		InstructorID:     c.InstructorID,
		InstructorName:   c.InstructorName,
		Price:            c.Price,
		Currency:         c.Currency,
		Modules:          datatypes.NewJSONType(c.Modules),
		Stats:            datatypes.NewJSONType(c.Stats),
		IsPublished:      c.IsPublished,
		PublishedAt:      c.PublishedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func (r courseRow) toModel() model.Course {
	c := model.Course{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		ShortDescription: r.ShortDescription,
		Category:         r.Category,
		Level:            model.Level(r.Level),
		Language:         r.Language,
		Tags:             r.Tags.Data(),
		ThumbnailURL:     r.ThumbnailURL,
		ThumbnailKey:     r.ThumbnailKey,
		InstructorID:     r.InstructorID,
		InstructorName:   r.InstructorName,
		Price:            r.Price,
		Currency:         r.Currency,
		Modules:          r.Modules.Data(),
		Stats:            r.Stats.Data(),
		IsPublished:      r.IsPublished,
		PublishedAt:      r.PublishedAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Modules == nil {
		c.Modules = []model.Module{}
	}
	return c
}

type gormCourses struct {
	db *gorm.DB
}

func (s *gormCourses) Create(ctx context.Context, course model.Course) (model.Course, error) {
	course.ID = uuid.NewString()
	course.CreatedAt = time.Now().UTC()
	course.UpdatedAt = course.CreatedAt
	if course.Tags == nil {
		course.Tags = []string{}
	}

	row := newCourseRow(course)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Course{}, err
	}
	return row.toModel(), nil
}

func (s *gormCourses) FindByID(ctx context.Context, id string) (model.Course, error) {
	var row courseRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.Course{}, translate(err)
	}
	return row.toModel(), nil
}

func (s *gormCourses) FindBy(ctx context.Context, filter CourseFilter) ([]model.Course, error) {
	q := s.db.WithContext(ctx).Model(&courseRow{})

	if !filter.IncludeUnpublished {
		if filter.VisibleTo != "" {
			q = q.Where("is_published = ? OR instructor_id = ?", true, filter.VisibleTo)
		} else {
			q = q.Where("is_published = ?", true)
		}
	}
	if filter.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.Level != "" {
		q = q.Where("level = ?", string(filter.Level))
	}
	if filter.InstructorID != "" {
		q = q.Where("instructor_id = ?", filter.InstructorID)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.MinRating != nil {
		q = q.Where("(stats->>'rating')::float >= ?", *filter.MinRating)
	}
	if filter.MaxRating != nil {
		q = q.Where("(stats->>'rating')::float <= ?", *filter.MaxRating)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("title ILIKE ? OR description ILIKE ? OR tags::text ILIKE ?", p, p, p)
	}

	var rows []courseRow
	if err := q.Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Course, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *gormCourses) mutate(ctx context.Context, id string, fn func(*model.Course)) (model.Course, error) {
	var out model.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row courseRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error; err != nil {
			return translate(err)
		}
		course := row.toModel()
		fn(&course)
		course.UpdatedAt = touch(row.UpdatedAt)

		next := newCourseRow(course)
		next.Seq = row.Seq
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		out = next.toModel()
		return nil
	})
	return out, err
}

func (s *gormCourses) Update(ctx context.Context, id string, patch CourseUpdate) (model.Course, error) {
	return s.mutate(ctx, id, patch.apply)
}

func (s *gormCourses) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&courseRow{})
	return res.RowsAffected > 0, res.Error
}

func (s *gormCourses) IncrementEnrollment(ctx context.Context, id string) (model.Course, error) {
	return s.mutate(ctx, id, func(c *model.Course) {
		c.Stats.EnrollmentCount++
	})
}

func (s *gormCourses) SetStats(ctx context.Context, id string, stats model.CourseStats) (model.Course, error) {
	return s.mutate(ctx, id, func(c *model.Course) {
		c.Stats = stats
	})
}
