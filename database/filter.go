package database

import (
	"strings"

	"github.com/sahilchouksey/coursehub-api/model"
)

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// Match reports whether u satisfies the filter
func (f UserFilter) Match(u *model.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !containsFold(u.FirstName, q) && !containsFold(u.LastName, q) && !containsFold(u.Email, q) {
			return false
		}
	}
	return true
}

// Match reports whether c satisfies the filter, including draft visibility
func (f CourseFilter) Match(c *model.Course) bool {
	if !c.IsPublished && !f.IncludeUnpublished {
		if f.VisibleTo == "" || c.InstructorID != f.VisibleTo {
			return false
		}
	}
	if f.Category != "" && !strings.EqualFold(c.Category, f.Category) {
		return false
	}
	if f.Level != "" && c.Level != f.Level {
		return false
	}
	if f.InstructorID != "" && c.InstructorID != f.InstructorID {
		return false
	}
	if f.MinPrice != nil && c.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && c.Price > *f.MaxPrice {
		return false
	}
	if f.MinRating != nil && c.Stats.Rating < *f.MinRating {
		return false
	}
	if f.MaxRating != nil && c.Stats.Rating > *f.MaxRating {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if containsFold(c.Title, q) || containsFold(c.Description, q) {
			return true
		}
		for _, tag := range c.Tags {
			if containsFold(tag, q) {
				return true
			}
		}
		return false
	}
	return true
}

// Match reports whether p satisfies the filter
func (f PaymentFilter) Match(p *model.PaymentIntent) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.CourseID != "" && p.CourseID != f.CourseID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

func (u UserUpdate) apply(user *model.User) {
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.Bio != nil {
		user.Bio = *u.Bio
	}
	if u.AvatarURL != nil {
		user.AvatarURL = *u.AvatarURL
	}
	if u.Role != nil {
		user.Role = *u.Role
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	if u.Preferences != nil {
		prefs := *u.Preferences
		prefs.LearningGoals = append([]string{}, prefs.LearningGoals...)
		user.Preferences = prefs
	}
}

func (u CourseUpdate) apply(course *model.Course) {
	if u.Title != nil {
		course.Title = *u.Title
	}
	if u.Description != nil {
		course.Description = *u.Description
	}
	if u.ShortDescription != nil {
		course.ShortDescription = *u.ShortDescription
	}
	if u.Category != nil {
		course.Category = *u.Category
	}
	if u.Level != nil {
		course.Level = *u.Level
	}
	if u.Language != nil {
		course.Language = *u.Language
	}
	if u.Tags != nil {
		course.Tags = append([]string{}, (*u.Tags)...)
	}
	if u.ThumbnailURL != nil {
		course.ThumbnailURL = *u.ThumbnailURL
	}
	if u.ThumbnailKey != nil {
		course.ThumbnailKey = *u.ThumbnailKey
	}
	if u.InstructorName != nil {
		course.InstructorName = *u.InstructorName
	}
	if u.Price != nil {
		course.Price = *u.Price
	}
	if u.Currency != nil {
		course.Currency = *u.Currency
	}
	if u.Modules != nil {
		course.Modules = model.CloneModules(*u.Modules)
	}
	if u.IsPublished != nil {
		course.IsPublished = *u.IsPublished
	}
	if u.PublishedAt != nil {
		t := *u.PublishedAt
		course.PublishedAt = &t
	}
}

// checkTransition validates cur -> next and the single-succeeded invariant.
// hasOtherSucceeded is only consulted for moves into succeeded.
func checkTransition(cur, next model.PaymentStatus, hasOtherSucceeded func() bool) error {
	if !cur.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	if next == model.PaymentSucceeded && hasOtherSucceeded() {
		return ErrAlreadyPurchased
	}
	return nil
}
