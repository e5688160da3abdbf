package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"phPortfolio/internal/database"
	"phPortfolio/internal/profile"
)

type fakeAvatarStore struct {
	uploads int
	deleted []string
}

func (f *fakeAvatarStore) Upload(_ context.Context, _ []byte, fileName string) (*profile.AvatarRef, error) {
	f.uploads++
	publicID := fmt.Sprintf("avatars/%d", f.uploads)
	return &profile.AvatarRef{
		URL:          "https://cdn.example/" + publicID,
		PublicID:     publicID,
		OriginalName: fileName,
	}, nil
}

func (f *fakeAvatarStore) Delete(_ context.Context, publicID string) error {
	f.deleted = append(f.deleted, publicID)
	return nil
}

func newTestStore(t *testing.T) (*profile.Store, *fakeAvatarStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Profile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	avatars := &fakeAvatarStore{}
	return profile.NewStore(db, avatars, nil, nil), avatars
}

func newTestHandler(t *testing.T) (*ProfileHandler, *profile.Store, *fakeAvatarStore) {
	t.Helper()
	store, avatars := newTestStore(t)
	return NewProfileHandler(store, nil, ""), store, avatars
}

func seedProfile(t *testing.T, store *profile.Store, ownerID uint, name string) *profile.Record {
	t.Helper()
	record, err := store.Create(context.Background(), ownerID, profile.CreateInput{
		Document: profile.Document{Personal: profile.Personal{Name: name}},
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return record
}

func testContext(t *testing.T, method, target string, body *bytes.Buffer, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		body = &bytes.Buffer{}
	}
	c.Request = httptest.NewRequest(method, target, body)
	if contentType != "" {
		c.Request.Header.Set("Content-Type", contentType)
	}
	return c, w
}

func TestUpdateProfile_ForbiddenForNonOwner(t *testing.T) {
	handler, store, _ := newTestHandler(t)
	record := seedProfile(t, store, 1, "Ada")

	body := bytes.NewBufferString(`{"personal":{"bio":"hijacked"}}`)
	c, w := testContext(t, http.MethodPatch, "/v1/profiles/"+strconv.Itoa(int(record.ID)), body, "application/json")
	c.Set("userID", uint(2))
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(record.ID))}}

	handler.UpdateProfile(c)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d body=%s", w.Code, w.Body.String())
	}

	reloaded, err := store.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if reloaded.Document.Personal.Bio != "" {
		t.Error("profile must not be mutated on forbidden update")
	}
}

func TestUpdateProfile_DeepMergesPersonal(t *testing.T) {
	handler, store, _ := newTestHandler(t)
	record := seedProfile(t, store, 1, "Ada")
	if _, err := store.ApplyUpdate(context.Background(), record.ID, 1, profile.Update{
		Personal: map[string]any{"location": "London"},
	}); err != nil {
		t.Fatalf("seed location: %v", err)
	}

	body := bytes.NewBufferString(`{"personal":{"bio":"new bio"}}`)
	c, w := testContext(t, http.MethodPatch, "/v1/profiles/"+strconv.Itoa(int(record.ID)), body, "application/json")
	c.Set("userID", uint(1))
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(record.ID))}}

	handler.UpdateProfile(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var got profile.Record
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Document.Personal.Bio != "new bio" {
		t.Errorf("bio not updated: %q", got.Document.Personal.Bio)
	}
	if got.Document.Personal.Location != "London" {
		t.Error("untouched personal fields must survive the merge")
	}
}

func TestGetProfile_MalformedIDIsNotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	c, w := testContext(t, http.MethodGet, "/v1/profiles/not-a-number", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "not-a-number"}}

	handler.GetProfile(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteProfile_MissingReturnsFalse(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	c, w := testContext(t, http.MethodDelete, "/v1/profiles/999", nil, "")
	c.Set("userID", uint(1))
	c.Params = gin.Params{{Key: "id", Value: "999"}}

	handler.DeleteProfile(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"deleted":false`) {
		t.Errorf("expected deleted=false, got %s", w.Body.String())
	}
}

func TestDeleteField_UnknownPathIsBadRequest(t *testing.T) {
	handler, store, _ := newTestHandler(t)
	record := seedProfile(t, store, 1, "Ada")

	target := fmt.Sprintf("/v1/profiles/%d/fields?fieldPath=bogus&itemId=x", record.ID)
	c, w := testContext(t, http.MethodDelete, target, nil, "")
	c.Set("userID", uint(1))
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(record.ID))}}

	handler.DeleteField(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func newAvatarUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadAvatar_ReplacesOldAsset(t *testing.T) {
	handler, store, avatars := newTestHandler(t)
	record := seedProfile(t, store, 1, "Ada")

	// 先放一个旧头像
	if _, err := store.ApplyUpdate(context.Background(), record.ID, 1, profile.Update{
		AvatarData:     []byte("old"),
		AvatarFileName: "old.png",
	}); err != nil {
		t.Fatalf("seed avatar: %v", err)
	}

	body, contentType := newAvatarUpload(t, "new.png", []byte("\x89PNG\r\n\x1a\n"))
	c, w := testContext(t, http.MethodPut, fmt.Sprintf("/v1/profiles/%d/avatar", record.ID), body, contentType)
	c.Set("userID", uint(1))
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(record.ID))}}

	handler.UploadAvatar(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	reloaded, err := store.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if reloaded.Document.Personal.Avatar == nil || reloaded.Document.Personal.Avatar.PublicID != "avatars/2" {
		t.Errorf("expected the new avatar reference, got %+v", reloaded.Document.Personal.Avatar)
	}
	if len(avatars.deleted) != 1 || avatars.deleted[0] != "avatars/1" {
		t.Errorf("expected best-effort delete of the old asset, got %v", avatars.deleted)
	}
}
