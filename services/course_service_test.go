package services

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

func TestCreateCourseAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.account(t, "student@example.com", model.RoleStudent)
	instructor := f.account(t, "ada@example.com", model.RoleInstructor)
	admin := f.account(t, "admin@example.com", model.RoleAdmin)

	req := CreateCourseRequest{
		Title: "Intro", Description: "An introduction course", Category: "general", Level: model.LevelBeginner,
	}
	_, err := f.courses.Create(ctx, student, req)
	wantKind(t, err, apperr.KindForbidden)

	c, err := f.courses.Create(ctx, instructor, req)
	if err != nil {
		t.Fatal(err)
	}
	if c.InstructorName != "Test instructor" || c.Currency != "USD" || c.Language != "en" || c.IsPublished {
		t.Fatalf("course = %+v", c)
	}
	if _, err := f.courses.Create(ctx, admin, req); err != nil {
		t.Fatalf("admin create: %v", err)
	}
}

func TestCreateAssignsModuleAndLessonIDs(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "ids@example.com", model.RoleInstructor)
	c := f.course(t, owner, 0, false)

	if len(c.Modules) != 2 {
		t.Fatalf("modules = %d", len(c.Modules))
	}
	for i, m := range c.Modules {
		if m.ID == "" || m.Order != i+1 {
			t.Fatalf("module %d = %+v", i, m)
		}
		for _, l := range m.Lessons {
			if l.ID == "" {
				t.Fatalf("lesson without id in module %d", i)
			}
		}
	}
	if c.Modules[0].ID == c.Modules[1].ID {
		t.Fatal("module ids collide")
	}
}

func TestUpdateCourseOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "owner@example.com", model.RoleInstructor)
	other := f.account(t, "other@example.com", model.RoleInstructor)
	admin := f.account(t, "root@example.com", model.RoleAdmin)
	c := f.course(t, owner, 0, true)

	title := "Renamed course"
	_, err := f.courses.Update(ctx, other, c.ID, UpdateCourseRequest{Title: &title})
	wantKind(t, err, apperr.KindForbidden)

	updated, err := f.courses.Update(ctx, owner, c.ID, UpdateCourseRequest{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != title || updated.Description != c.Description {
		t.Fatalf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.After(c.UpdatedAt) {
		t.Fatal("updatedAt did not advance")
	}

	if _, err := f.courses.Update(ctx, admin, c.ID, UpdateCourseRequest{Title: &title}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
}

func TestPublishRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "pub@example.com", model.RoleInstructor)

	empty, err := f.courses.Create(ctx, owner, CreateCourseRequest{
		Title: "Empty", Description: "Nothing here yet", Category: "misc", Level: model.LevelAdvanced,
		Modules: []model.Module{{Title: "No lessons"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.courses.Publish(ctx, owner, empty.ID)
	wantKind(t, err, apperr.KindValidation)

	c := f.course(t, owner, 0, true)
	if !c.IsPublished || c.PublishedAt == nil {
		t.Fatalf("course = %+v", c)
	}

	unpublish := false
	_, err = f.courses.Update(ctx, owner, c.ID, UpdateCourseRequest{IsPublished: &unpublish})
	wantKind(t, err, apperr.KindConflict)

	again, err := f.courses.Publish(ctx, owner, c.ID)
	if err != nil || !again.IsPublished {
		t.Fatalf("republish: %v", err)
	}
}

func TestDraftVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "draft@example.com", model.RoleInstructor)
	student := f.account(t, "peek@example.com", model.RoleStudent)
	admin := f.account(t, "boss@example.com", model.RoleAdmin)
	draft := f.course(t, owner, 0, false)

	_, err := f.courses.Get(ctx, student, draft.ID)
	wantKind(t, err, apperr.KindNotFound)
	_, err = f.courses.Get(ctx, nil, draft.ID)
	wantKind(t, err, apperr.KindNotFound)

	if _, err := f.courses.Get(ctx, owner, draft.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := f.courses.Get(ctx, admin, draft.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}

	public, _ := f.courses.List(ctx, nil, CourseQuery{})
	if len(public) != 0 {
		t.Fatalf("public list = %d", len(public))
	}
	mine, _ := f.courses.Mine(ctx, owner)
	if len(mine) != 1 {
		t.Fatalf("mine = %d", len(mine))
	}
	drafts, _ := f.courses.List(ctx, owner, CourseQuery{IncludeDrafts: true})
	if len(drafts) != 1 {
		t.Fatalf("owner drafts = %d", len(drafts))
	}
	peek, _ := f.courses.List(ctx, student, CourseQuery{IncludeDrafts: true})
	if len(peek) != 0 {
		t.Fatalf("student sees drafts: %d", len(peek))
	}
}

func TestListRejectsInvertedRanges(t *testing.T) {
	f := newFixture(t)
	lo, hi := int64(500), int64(100)
	_, err := f.courses.List(context.Background(), nil, CourseQuery{MinPrice: &lo, MaxPrice: &hi})
	wantKind(t, err, apperr.KindValidation)
}

func TestEnrollFreeCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "free@example.com", model.RoleInstructor)
	student := f.account(t, "learner@example.com", model.RoleStudent)
	c := f.course(t, owner, 0, true)

	progress, err := f.courses.Enroll(ctx, student, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if progress.CourseID != c.ID || progress.Percentage != 0 || progress.CurrentModule != c.Modules[0].ID {
		t.Fatalf("progress = %+v", progress)
	}

	after, _ := f.store.Courses().FindByID(ctx, c.ID)
	if after.Stats.EnrollmentCount != c.Stats.EnrollmentCount+1 {
		t.Fatalf("enrollmentCount = %d, want %d", after.Stats.EnrollmentCount, c.Stats.EnrollmentCount+1)
	}

	_, err = f.courses.Enroll(ctx, student, c.ID)
	wantErr(t, err, apperr.ErrAlreadyEnrolled)
	again, _ := f.store.Courses().FindByID(ctx, c.ID)
	if again.Stats.EnrollmentCount != after.Stats.EnrollmentCount {
		t.Fatal("repeat enrollment changed the count")
	}
}

func TestEnrollRequiresPublishedCourse(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "unpub@example.com", model.RoleInstructor)
	c := f.course(t, owner, 0, false)

	_, err := f.courses.Enroll(context.Background(), owner, c.ID)
	wantKind(t, err, apperr.KindValidation)
}

func TestEnrollPaidCourseRequiresPayment(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "paid@example.com", model.RoleInstructor)
	student := f.account(t, "buyer@example.com", model.RoleStudent)
	c := f.course(t, owner, 4999, true)

	_, err := f.courses.Enroll(context.Background(), student, c.ID)
	wantErr(t, err, apperr.ErrPaymentRequired)
	if msg := apperr.As(err).Message; msg != "Payment required." {
		t.Fatalf("message = %q", msg)
	}
}

func TestConcurrentEnrollSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "race@example.com", model.RoleInstructor)
	student := f.account(t, "racer@example.com", model.RoleStudent)
	c := f.course(t, owner, 0, true)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.courses.Enroll(ctx, student, c.ID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want 1", successes)
	}
	after, _ := f.store.Courses().FindByID(ctx, c.ID)
	if after.Stats.EnrollmentCount != 1 {
		t.Fatalf("enrollmentCount = %d", after.Stats.EnrollmentCount)
	}
}

func TestProgressAndCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "prog@example.com", model.RoleInstructor)
	student := f.account(t, "progress@example.com", model.RoleStudent)
	c := f.course(t, owner, 0, true)
	if _, err := f.courses.Enroll(ctx, student, c.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.courses.UpdateProgress(ctx, student, c.ID, ProgressRequest{CompletedModuleID: "not-a-module"})
	wantKind(t, err, apperr.KindValidation)

	p, err := f.courses.UpdateProgress(ctx, student, c.ID, ProgressRequest{CompletedModuleID: c.Modules[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if p.Percentage != 50 || p.CertificateIssued {
		t.Fatalf("progress = %+v", p)
	}

	p, err = f.courses.UpdateProgress(ctx, student, c.ID, ProgressRequest{
		CompletedModuleID: c.Modules[1].ID,
		CurrentModuleID:   c.Modules[1].ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Percentage != 100 || !p.CertificateIssued {
		t.Fatalf("progress = %+v", p)
	}
	wantURL := "https://cdn.test/certificates/" + student.UserID + "/" + c.ID + ".pdf"
	if p.CertificateURL != wantURL {
		t.Fatalf("certificateUrl = %q, want %q", p.CertificateURL, wantURL)
	}

	other := f.account(t, "stranger@example.com", model.RoleStudent)
	_, err = f.courses.UpdateProgress(ctx, other, c.ID, ProgressRequest{Completed: true})
	wantKind(t, err, apperr.KindNotFound)
}

func TestCompletionWithoutModules(t *testing.T) {
	course := &model.Course{}
	p := &model.CourseProgress{}
	if got := completion(course, p, false); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
	if got := completion(course, p, true); got != 100 {
		t.Fatalf("got %d, want 100", got)
	}
}

func TestResourceURLAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "res@example.com", model.RoleInstructor)
	student := f.account(t, "reader@example.com", model.RoleStudent)
	c := f.course(t, owner, 0, true)
	resource := c.Modules[0].Lessons[0].Resources[0].URL

	_, err := f.courses.ResourceURL(ctx, student, c.ID, resource)
	wantKind(t, err, apperr.KindForbidden)

	if _, err := f.courses.Enroll(ctx, student, c.ID); err != nil {
		t.Fatal(err)
	}
	signed, err := f.courses.ResourceURL(ctx, student, c.ID, resource)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(signed.URL, resource+"?expires=") || signed.ExpiresAt == nil {
		t.Fatalf("signed = %+v", signed)
	}

	if _, err := f.courses.ResourceURL(ctx, owner, c.ID, resource); err != nil {
		t.Fatalf("owner: %v", err)
	}
	_, err = f.courses.ResourceURL(ctx, student, c.ID, "https://cdn.test/uploads/other.pdf")
	wantKind(t, err, apperr.KindNotFound)
}

func TestThumbnailLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "thumb@example.com", model.RoleInstructor)
	c := f.course(t, owner, 0, false)

	_, err := f.courses.UploadThumbnail(ctx, owner, c.ID, "notes.txt", 4, bytes.NewReader([]byte("text")))
	wantKind(t, err, apperr.KindValidation)

	updated, err := f.courses.UploadThumbnail(ctx, owner, c.ID, "cover.png", 3, bytes.NewReader([]byte("png")))
	if err != nil {
		t.Fatal(err)
	}
	if updated.ThumbnailURL == "" || !f.objects.Has(updated.ThumbnailKey) {
		t.Fatalf("thumbnail not stored: %+v", updated)
	}

	cleared, err := f.courses.DeleteThumbnail(ctx, owner, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cleared.ThumbnailURL != "" || f.objects.Has(updated.ThumbnailKey) {
		t.Fatalf("thumbnail not removed: %+v", cleared)
	}
}

func TestDeleteCourseKeepsEnrollments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "del@example.com", model.RoleInstructor)
	student := f.account(t, "orphan@example.com", model.RoleStudent)
	c := f.course(t, owner, 0, true)
	if _, err := f.courses.Enroll(ctx, student, c.ID); err != nil {
		t.Fatal(err)
	}

	wantKind(t, f.courses.Delete(ctx, student, c.ID), apperr.KindForbidden)
	if err := f.courses.Delete(ctx, owner, c.ID); err != nil {
		t.Fatal(err)
	}

	enrollments, err := f.users.Enrollments(ctx, student)
	if err != nil {
		t.Fatal(err)
	}
	if len(enrollments) != 1 || enrollments[0].CourseTitle != model.DeletedCourseLabel || !enrollments[0].CourseDeleted {
		t.Fatalf("enrollments = %+v", enrollments)
	}
}

func TestSetStatsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "stats@example.com", model.RoleInstructor)
	admin := f.account(t, "statsadmin@example.com", model.RoleAdmin)
	c := f.course(t, owner, 0, true)

	rating, count := 4.5, 0
	_, err := f.courses.SetStats(ctx, owner, c.ID, StatsRequest{Rating: &rating})
	wantKind(t, err, apperr.KindForbidden)

	updated, err := f.courses.SetStats(ctx, admin, c.ID, StatsRequest{Rating: &rating, EnrollmentCount: &count})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Stats.Rating != 4.5 || updated.Stats.EnrollmentCount != 0 {
		t.Fatalf("stats = %+v", updated.Stats)
	}

	minRating := 4.0
	found, _ := f.store.Courses().FindBy(ctx, database.CourseFilter{MinRating: &minRating})
	if len(found) != 1 {
		t.Fatalf("rating filter found %d", len(found))
	}
}
