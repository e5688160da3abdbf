package profile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phPortfolio/internal/apperror"
	"phPortfolio/internal/database"
)

type fakeAvatars struct {
	events   []string
	uploads  int
	failNext bool
}

func (f *fakeAvatars) Upload(_ context.Context, _ []byte, fileName string) (*AvatarRef, error) {
	if f.failNext {
		f.failNext = false
		return nil, errors.New("cloudinary unavailable")
	}
	f.uploads++
	publicID := fmt.Sprintf("avatars/%d", f.uploads)
	f.events = append(f.events, "upload:"+publicID)
	return &AvatarRef{
		URL:          "https://cdn.example/" + publicID,
		PublicID:     publicID,
		OriginalName: fileName,
		Mimetype:     "image/png",
		ResourceType: "image",
	}, nil
}

func (f *fakeAvatars) Delete(_ context.Context, publicID string) error {
	f.events = append(f.events, "delete:"+publicID)
	return nil
}

type fakeArtifacts struct {
	deleted []string
}

func (f *fakeArtifacts) DeleteObject(_ context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeAvatars, *fakeArtifacts) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Profile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	avatars := &fakeAvatars{}
	artifacts := &fakeArtifacts{}
	return NewStore(db, avatars, artifacts, nil), avatars, artifacts
}

func seedProfile(t *testing.T, store *Store, ownerID uint) *Record {
	t.Helper()
	record, err := store.Create(context.Background(), ownerID, CreateInput{
		Document: Document{
			Personal: Personal{
				Name:     "John Doe",
				Bio:      "original bio",
				Location: "Berlin",
				Email:    "john@example.com",
			},
			Experience: []Experience{
				{Company: "Acme", Position: "Engineer", StartDate: "2020-01"},
			},
		},
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return record
}

func TestCreate_DuplicateNameScopedPerOwner(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	seedProfile(t, store, 1)

	_, err := store.Create(ctx, 1, CreateInput{
		Document: Document{Personal: Personal{Name: "john doe"}},
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("same owner, same name: want conflict, got %v", err)
	}

	// 重名约束按属主限定，不是全局唯一。
	if _, err := store.Create(ctx, 2, CreateInput{
		Document: Document{Personal: Personal{Name: "John Doe"}},
	}); err != nil {
		t.Errorf("different owner, same name should succeed: %v", err)
	}
}

func TestApplyUpdate_DeepMergesPersonal(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	updated, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		Personal: map[string]any{"bio": "new bio"},
	})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}

	p := updated.Document.Personal
	if p.Bio != "new bio" {
		t.Errorf("bio = %q", p.Bio)
	}
	if p.Name != "John Doe" || p.Location != "Berlin" || p.Email != "john@example.com" {
		t.Errorf("untouched personal fields clobbered: %+v", p)
	}
	if len(updated.Document.Experience) != 1 {
		t.Errorf("unrelated list field clobbered: %+v", updated.Document.Experience)
	}
}

func TestApplyUpdate_ForbiddenForNonOwnerAndNoMutation(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	_, err := store.ApplyUpdate(ctx, record.ID, 99, Update{
		Personal: map[string]any{"bio": "hacked"},
	})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}

	reloaded, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Document.Personal.Bio != "original bio" {
		t.Errorf("profile mutated despite forbidden update: %q", reloaded.Document.Personal.Bio)
	}
}

func TestDelete_IdempotentOnMissingProfile(t *testing.T) {
	store, _, _ := newTestStore(t)

	existed, err := store.Delete(context.Background(), 12345, 1)
	if err != nil {
		t.Fatalf("delete nonexistent: %v", err)
	}
	if existed {
		t.Error("deleting a nonexistent profile must report false")
	}
}

func TestDelete_CleansAvatarAndArtifact(t *testing.T) {
	store, avatars, artifacts := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	if _, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("png"),
		AvatarFileName: "me.png",
	}); err != nil {
		t.Fatalf("attach avatar: %v", err)
	}
	if err := store.SetExportResult(ctx, record.ID, "generated-portfolios/1/a.pdf", "completed"); err != nil {
		t.Fatalf("set export result: %v", err)
	}

	existed, err := store.Delete(ctx, record.ID, 1)
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}

	if len(avatars.events) == 0 || avatars.events[len(avatars.events)-1] != "delete:avatars/1" {
		t.Errorf("avatar cleanup not attempted: %v", avatars.events)
	}
	if len(artifacts.deleted) != 1 || artifacts.deleted[0] != "generated-portfolios/1/a.pdf" {
		t.Errorf("export artifact cleanup not attempted: %v", artifacts.deleted)
	}
}

func TestApplyUpdate_AvatarReplaceProtocol(t *testing.T) {
	store, avatars, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	first, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("one"),
		AvatarFileName: "one.png",
	})
	if err != nil {
		t.Fatalf("first avatar upload: %v", err)
	}
	if first.Document.Personal.Avatar == nil {
		t.Fatal("avatar not attached")
	}

	second, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("two"),
		AvatarFileName: "two.png",
	})
	if err != nil {
		t.Fatalf("replace avatar: %v", err)
	}

	// 槽位里只留一个引用，且顺序必须是先传新、后删旧。
	if second.Document.Personal.Avatar.PublicID != "avatars/2" {
		t.Errorf("expected new ref, got %+v", second.Document.Personal.Avatar)
	}
	want := []string{"upload:avatars/1", "upload:avatars/2", "delete:avatars/1"}
	if len(avatars.events) != len(want) {
		t.Fatalf("events = %v", avatars.events)
	}
	for i := range want {
		if avatars.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, avatars.events[i], want[i])
		}
	}
}

func TestApplyUpdate_UploadFailureKeepsOldAvatar(t *testing.T) {
	store, avatars, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	if _, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("one"),
		AvatarFileName: "one.png",
	}); err != nil {
		t.Fatalf("first upload: %v", err)
	}

	avatars.failNext = true
	_, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("two"),
		AvatarFileName: "two.png",
	})
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("want upstream error, got %v", err)
	}

	reloaded, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Document.Personal.Avatar == nil || reloaded.Document.Personal.Avatar.PublicID != "avatars/1" {
		t.Errorf("failed upload must leave the old avatar in place: %+v", reloaded.Document.Personal.Avatar)
	}
	for _, e := range avatars.events {
		if e == "delete:avatars/1" {
			t.Error("old asset deleted before a successful upload")
		}
	}
}

func TestApplyUpdate_RemoveAvatarFlag(t *testing.T) {
	store, avatars, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	if _, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("one"),
		AvatarFileName: "one.png",
	}); err != nil {
		t.Fatalf("attach avatar: %v", err)
	}

	updated, err := store.ApplyUpdate(ctx, record.ID, 1, Update{RemoveAvatar: true})
	if err != nil {
		t.Fatalf("remove avatar: %v", err)
	}
	if updated.Document.Personal.Avatar != nil {
		t.Errorf("avatar slot not cleared: %+v", updated.Document.Personal.Avatar)
	}
	if avatars.events[len(avatars.events)-1] != "delete:avatars/1" {
		t.Errorf("old asset cleanup not attempted: %v", avatars.events)
	}
}

func TestDeleteField_RemovesListItemByID(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	itemID := record.Document.Experience[0].ID
	updated, err := store.DeleteField(ctx, record.ID, 1, "experience", itemID)
	if err != nil {
		t.Fatalf("delete field: %v", err)
	}
	if len(updated.Document.Experience) != 0 {
		t.Errorf("experience item not removed: %+v", updated.Document.Experience)
	}
}

func TestDeleteField_Validation(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	if _, err := store.DeleteField(ctx, record.ID, 1, "nonsense", "x"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown field path: want validation error, got %v", err)
	}
	if _, err := store.DeleteField(ctx, 99999, 1, "experience", "x"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing profile: want not found, got %v", err)
	}
}

// failNextSave 注册一个可开关的更新回调，用来模拟落库失败。
type failNextSave struct{ armed bool }

func installSaveFailure(t *testing.T, store *Store) *failNextSave {
	t.Helper()
	f := &failNextSave{}
	err := store.db.Callback().Update().Before("gorm:update").Register("test:fail_save", func(tx *gorm.DB) {
		if f.armed {
			f.armed = false
			tx.AddError(errors.New("injected save failure"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return f
}

func TestDeleteField_AvatarKeptWhenSaveFails(t *testing.T) {
	store, avatars, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	if _, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("one"),
		AvatarFileName: "one.png",
	}); err != nil {
		t.Fatalf("attach avatar: %v", err)
	}

	failure := installSaveFailure(t, store)
	failure.armed = true
	if _, err := store.DeleteField(ctx, record.ID, 1, "personal.avatar", ""); !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("want upstream error, got %v", err)
	}

	// 槽位清空没落库，远端资产必须原样保留，否则引用悬空。
	for _, e := range avatars.events {
		if e == "delete:avatars/1" {
			t.Error("remote asset deleted although the cleared slot was never persisted")
		}
	}
	reloaded, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Document.Personal.Avatar == nil || reloaded.Document.Personal.Avatar.PublicID != "avatars/1" {
		t.Errorf("stored reference lost: %+v", reloaded.Document.Personal.Avatar)
	}

	// 落库成功之后才轮到旧资产清理。
	if _, err := store.DeleteField(ctx, record.ID, 1, "personal.avatar", ""); err != nil {
		t.Fatalf("delete avatar field: %v", err)
	}
	if avatars.events[len(avatars.events)-1] != "delete:avatars/1" {
		t.Errorf("asset cleanup not attempted after persist: %v", avatars.events)
	}
}

func TestApplyUpdate_SaveFailureCleansFreshUpload(t *testing.T) {
	store, avatars, _ := newTestStore(t)
	ctx := context.Background()
	record := seedProfile(t, store, 1)

	if _, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("one"),
		AvatarFileName: "one.png",
	}); err != nil {
		t.Fatalf("attach avatar: %v", err)
	}

	failure := installSaveFailure(t, store)
	failure.armed = true
	if _, err := store.ApplyUpdate(ctx, record.ID, 1, Update{
		AvatarData:     []byte("two"),
		AvatarFileName: "two.png",
	}); !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("want upstream error, got %v", err)
	}

	// 新引用没写进去：新上传要补偿删除，旧资产一根毫毛都不能动。
	var deletedNew, deletedOld bool
	for _, e := range avatars.events {
		switch e {
		case "delete:avatars/2":
			deletedNew = true
		case "delete:avatars/1":
			deletedOld = true
		}
	}
	if !deletedNew {
		t.Errorf("newly uploaded asset orphaned after save failure: %v", avatars.events)
	}
	if deletedOld {
		t.Errorf("old asset deleted although replacement was never persisted: %v", avatars.events)
	}

	reloaded, err := store.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Document.Personal.Avatar == nil || reloaded.Document.Personal.Avatar.PublicID != "avatars/1" {
		t.Errorf("stored reference lost: %+v", reloaded.Document.Personal.Avatar)
	}
}

func TestDeleteField_RemovesSingleCustomSectionItem(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	record, err := store.Create(ctx, 1, CreateInput{
		Document: Document{
			Personal: Personal{Name: "John Doe"},
			CustomSections: []CustomSection{{
				Name:  "talks",
				Label: "Talks",
				Items: []CustomItem{
					{Order: 0, Fields: map[string]any{"title": "GopherCon"}},
					{Order: 1, Fields: map[string]any{"title": "FOSDEM"}},
				},
			}},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.DeleteField(ctx, record.ID, 1, "customSections.talks.items", "0")
	if err != nil {
		t.Fatalf("delete custom item: %v", err)
	}

	sections := updated.Document.CustomSections
	if len(sections) != 1 {
		t.Fatalf("whole section removed instead of one item: %+v", sections)
	}
	if len(sections[0].Items) != 1 || sections[0].Items[0].Order != 1 {
		t.Errorf("wrong item removed: %+v", sections[0].Items)
	}

	if _, err := store.DeleteField(ctx, record.ID, 1, "customSections.missing.items", "0"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown section: want not found, got %v", err)
	}
	if _, err := store.DeleteField(ctx, record.ID, 1, "customSections.talks.items", "abc"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("non-numeric item order: want validation error, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	store, _, _ := newTestStore(t)
	if _, err := store.Get(context.Background(), 424242); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("want not found, got %v", err)
	}
}
