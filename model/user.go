package model

import (
	"sort"
	"time"
)

// Role is the access level of a user
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Preferences holds per-user settings
type Preferences struct {
	EmailNotifications bool     `json:"emailNotifications"`
	Language           string   `json:"language"`
	Theme              string   `json:"theme"` // light, dark, system
	LearningGoals      []string `json:"learningGoals"`
}

// DefaultPreferences returns the bundle assigned at signup
func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: true,
		Language:           "en",
		Theme:              "system",
		LearningGoals:      []string{},
	}
}

// CourseProgress tracks one enrollment of a user
type CourseProgress struct {
	CourseID            string     `json:"courseId"`
	EnrolledAt          time.Time  `json:"enrolledAt"`
	CompletedModules    []string   `json:"completedModules"`
	CurrentModule       string     `json:"currentModule,omitempty"`
	Percentage          int        `json:"percentage"`
	LastAccessedAt      time.Time  `json:"lastAccessedAt"`
	CertificateIssued   bool       `json:"certificateIssued"`
	CertificateURL      string     `json:"certificateUrl,omitempty"`
	CertificateIssuedAt *time.Time `json:"certificateIssuedAt,omitempty"`
}

// HasCompleted reports whether moduleID is in the completed set
func (p *CourseProgress) HasCompleted(moduleID string) bool {
	for _, id := range p.CompletedModules {
		if id == moduleID {
			return true
		}
	}
	return false
}

// MarkCompleted adds moduleID to the completed set, keeping it sorted
func (p *CourseProgress) MarkCompleted(moduleID string) {
	if moduleID == "" || p.HasCompleted(moduleID) {
		return
	}
	p.CompletedModules = append(p.CompletedModules, moduleID)
	sort.Strings(p.CompletedModules)
}

// User represents a registered account
type User struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"` // never serialized
	FirstName    string           `json:"firstName"`
	LastName     string           `json:"lastName"`
	Bio          string           `json:"bio,omitempty"`
	AvatarURL    string           `json:"avatarUrl,omitempty"`
	Role         Role             `json:"role"`
	Preferences  Preferences      `json:"preferences"`
	Progress     []CourseProgress `json:"progress"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// FullName returns "First Last"
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ProgressFor returns the enrollment record for courseID, if any
func (u *User) ProgressFor(courseID string) (*CourseProgress, bool) {
	for i := range u.Progress {
		if u.Progress[i].CourseID == courseID {
			return &u.Progress[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy
func (u User) Clone() User {
	u.Preferences.LearningGoals = append([]string(nil), u.Preferences.LearningGoals...)
	if u.Progress != nil {
		progress := make([]CourseProgress, len(u.Progress))
		for i, p := range u.Progress {
			p.CompletedModules = append([]string{}, p.CompletedModules...)
			if p.CertificateIssuedAt != nil {
				t := *p.CertificateIssuedAt
				p.CertificateIssuedAt = &t
			}
			progress[i] = p
		}
		u.Progress = progress
	}
	return u
}
