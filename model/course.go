package model

import "time"

// Level is the difficulty of a course
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// LessonType is the kind of content a lesson carries
type LessonType string

const (
	LessonVideo      LessonType = "video"
	LessonText       LessonType = "text"
	LessonQuiz       LessonType = "quiz"
	LessonAssignment LessonType = "assignment"
)

// Resource is a downloadable attachment of a lesson
type Resource struct {
	Title string `json:"title" validate:"required,max=200"`
	URL   string `json:"url" validate:"required,max=2048"`
	Type  string `json:"type,omitempty" validate:"omitempty,max=50"`
}

// Lesson is a single unit of content inside a module
type Lesson struct {
	ID              string     `json:"id"`
	Title           string     `json:"title" validate:"required,min=1,max=200"`
	Type            LessonType `json:"type" validate:"required,oneof=video text quiz assignment"`
	Content         string     `json:"content" validate:"max=100000"`
	DurationMinutes int        `json:"durationMinutes" validate:"gte=0,lte=1440"`
	Resources       []Resource `json:"resources,omitempty" validate:"omitempty,max=20,dive"`
	IsPreview       bool       `json:"isPreview"`
}

// QuizQuestion is one multiple-choice question
type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question" validate:"required,max=1000"`
	Options       []string `json:"options" validate:"min=2,max=8"`
	CorrectAnswer int      `json:"correctAnswer" validate:"gte=0"`
	Explanation   string   `json:"explanation,omitempty" validate:"max=2000"`
}

// Quiz is an assessment attached to a module
type Quiz struct {
	ID           string         `json:"id"`
	Title        string         `json:"title" validate:"required,max=200"`
	PassingScore int            `json:"passingScore" validate:"gte=0,lte=100"`
	Questions    []QuizQuestion `json:"questions" validate:"max=50,dive"`
}

// Module groups lessons
type Module struct {
	ID          string   `json:"id"`
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description,omitempty" validate:"max=2000"`
	Order       int      `json:"order"`
	Lessons     []Lesson `json:"lessons" validate:"max=100,dive"`
	Quiz        *Quiz    `json:"quiz,omitempty" validate:"omitempty"`
}

// CourseStats holds aggregate counters
type CourseStats struct {
	Rating          float64 `json:"rating"`
	ReviewCount     int     `json:"reviewCount"`
	EnrollmentCount int     `json:"enrollmentCount"`
}

// Course is a sellable unit of content owned by an instructor
type Course struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"shortDescription,omitempty"`
	Category         string      `json:"category"`
	Level            Level       `json:"level"`
	Language         string      `json:"language"`
	Tags             []string    `json:"tags"`
	ThumbnailURL     string      `json:"thumbnailUrl,omitempty"`
	ThumbnailKey     string      `json:"-"`
	InstructorID     string      `json:"instructorId"`
	InstructorName   string      `json:"instructorName"`
	Price            int64       `json:"price"` // minor currency units
	Currency         string      `json:"currency"`
	Modules          []Module    `json:"modules"`
	Stats            CourseStats `json:"stats"`
	IsPublished      bool        `json:"isPublished"`
	PublishedAt      *time.Time  `json:"publishedAt,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// DeletedCourseLabel is shown where a course reference no longer resolves
const DeletedCourseLabel = "Deleted course"

// UnknownInstructorLabel is shown when the instructor snapshot is empty
const UnknownInstructorLabel = "Unknown instructor"

// IsFree reports whether enrollment needs no payment
func (c *Course) IsFree() bool {
	return c.Price == 0
}

// LessonCount returns the number of lessons across all modules
func (c *Course) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// HasModule reports whether moduleID belongs to the course
func (c *Course) HasModule(moduleID string) bool {
	_, ok := c.Module(moduleID)
	return ok
}

// Module returns the module with the given id
func (c *Course) Module(moduleID string) (*Module, bool) {
	for i := range c.Modules {
		if c.Modules[i].ID == moduleID {
			return &c.Modules[i], true
		}
	}
	return nil, false
}

// HasResource reports whether url is attached to any lesson
func (c *Course) HasResource(url string) bool {
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			for _, r := range l.Resources {
				if r.URL == url {
					return true
				}
			}
		}
	}
	return false
}

// Clone returns a deep copy
func (c Course) Clone() Course {
	c.Tags = append([]string{}, c.Tags...)
	if c.PublishedAt != nil {
		t := *c.PublishedAt
		c.PublishedAt = &t
	}
	c.Modules = CloneModules(c.Modules)
	return c
}

// CloneModules deep-copies a module tree
func CloneModules(in []Module) []Module {
	if in == nil {
		return []Module{}
	}
	out := make([]Module, len(in))
	for i, m := range in {
		lessons := make([]Lesson, len(m.Lessons))
		for j, l := range m.Lessons {
			l.Resources = append([]Resource(nil), l.Resources...)
			lessons[j] = l
		}
		m.Lessons = lessons
		if m.Quiz != nil {
			q := *m.Quiz
			q.Questions = make([]QuizQuestion, len(m.Quiz.Questions))
			for k, question := range m.Quiz.Questions {
				question.Options = append([]string(nil), question.Options...)
				q.Questions[k] = question
			}
			m.Quiz = &q
		}
		out[i] = m
	}
	return out
}
