package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services/storage"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

func TestUploadAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	instructor := f.account(t, "uploader@example.com", model.RoleInstructor)
	other := f.account(t, "another@example.com", model.RoleInstructor)
	student := f.account(t, "no-uploads@example.com", model.RoleStudent)
	admin := f.account(t, "sweeper@example.com", model.RoleAdmin)

	_, err := f.uploads.Upload(ctx, student, "notes.pdf", 3, bytes.NewReader([]byte("pdf")))
	wantKind(t, err, apperr.KindForbidden)

	_, err = f.uploads.Upload(ctx, instructor, "huge.mp4", storage.MaxUploadSize+1, bytes.NewReader(nil))
	wantKind(t, err, apperr.KindValidation)

	res, err := f.uploads.Upload(ctx, instructor, "Lecture Notes.pdf", 3, bytes.NewReader([]byte("pdf")))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.Key, "uploads/"+instructor.UserID+"/") || !strings.HasSuffix(res.Key, "_Lecture_Notes.pdf") {
		t.Fatalf("key = %s", res.Key)
	}
	if res.ContentType != "application/pdf" || !f.objects.Has(res.Key) {
		t.Fatalf("result = %+v", res)
	}

	wantKind(t, f.uploads.Delete(ctx, other, res.Key), apperr.KindForbidden)
	if err := f.uploads.Delete(ctx, instructor, res.URL); err != nil {
		t.Fatalf("delete by url: %v", err)
	}
	if f.objects.Has(res.Key) {
		t.Fatal("object still stored")
	}

	wantKind(t, f.uploads.Delete(ctx, admin, res.Key), apperr.KindNotFound)
}
