package patch

import (
	"context"
	"errors"
	"testing"

	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"foliogen/internal/database"
)

type fakeStore struct {
	objects map[string]bool
	baseURL string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: map[string]bool{},
		baseURL: "https://cdn.example.com",
	}
}

func (s *fakeStore) ObjectExists(_ context.Context, objectKey string) (bool, error) {
	return s.objects[objectKey], nil
}

func (s *fakeStore) PublicURL(objectKey string) string {
	return s.baseURL + "/" + objectKey
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Resume{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

const seedDoc = `{"schema_version":1,"name":"Ada","contact":{"email":"old@example.com","phone":"123","location":"London"},` +
	`"education":[{"school":"MIT","degree":"BSc"}],` +
	`"experience":[{"title":"Engineer","company":"Acme"}],` +
	`"projects":[{"title":"Demo","description":"d"}]}`

func seedUserWithResume(t *testing.T, db *gorm.DB, doc string) (*database.User, *database.Resume) {
	t.Helper()
	user := database.User{ClerkID: "user_test", DisplayID: "tester"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	resume := database.Resume{
		UserID: user.ID,
		Status: database.StatusProcessed,
		Fields: []byte(doc),
	}
	if err := db.Create(&resume).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	if err := db.Model(&user).Update("active_resume_id", resume.ID).Error; err != nil {
		t.Fatalf("set active resume: %v", err)
	}
	return &user, &resume
}

func reloadFields(t *testing.T, db *gorm.DB, id uint) []byte {
	t.Helper()
	var resume database.Resume
	if err := db.First(&resume, id).Error; err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	return []byte(resume.Fields)
}

func TestSetFieldTouchesOnlyTarget(t *testing.T) {
	db := newTestDB(t)
	user, resume := seedUserWithResume(t, db, seedDoc)
	s := NewService(db, newFakeStore())

	updated, err := s.SetField(context.Background(), user.ID, "contact.email", "new@example.com")
	if err != nil {
		t.Fatalf("set field: %v", err)
	}

	stored := reloadFields(t, db, resume.ID)
	if string(stored) != string(updated) {
		t.Error("returned document should match stored document")
	}
	if got := gjson.GetBytes(stored, "contact.email").String(); got != "new@example.com" {
		t.Errorf("contact.email = %q", got)
	}
	// 周边字段必须逐字节不变。
	if got := gjson.GetBytes(stored, "contact.phone").String(); got != "123" {
		t.Errorf("contact.phone = %q, should be untouched", got)
	}
	if got := gjson.GetBytes(stored, "name").String(); got != "Ada" {
		t.Errorf("name = %q, should be untouched", got)
	}
	if got := gjson.GetBytes(stored, "experience.0.company").String(); got != "Acme" {
		t.Errorf("experience untouched check failed: %q", got)
	}
}

func TestSetFieldBumpsVersion(t *testing.T) {
	db := newTestDB(t)
	user, resume := seedUserWithResume(t, db, seedDoc)
	s := NewService(db, newFakeStore())

	if _, err := s.SetField(context.Background(), user.ID, "title", "Engineer"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	var got database.Resume
	if err := db.First(&got, resume.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Version != resume.Version+1 {
		t.Errorf("version = %d, want %d", got.Version, resume.Version+1)
	}
}

func TestSetFieldRejectsBadPaths(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedUserWithResume(t, db, seedDoc)
	s := NewService(db, newFakeStore())

	for _, path := range []string{"", ".", ".name", "name.", "schema_version"} {
		if _, err := s.SetField(context.Background(), user.ID, path, "x"); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("path %q: err = %v, want ErrInvalidPath", path, err)
		}
	}
}

func TestSetFieldNoResume(t *testing.T) {
	db := newTestDB(t)
	user := database.User{ClerkID: "user_empty", DisplayID: "empty"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	s := NewService(db, newFakeStore())

	if _, err := s.SetField(context.Background(), user.ID, "name", "x"); !errors.Is(err, ErrNoResume) {
		t.Errorf("err = %v, want ErrNoResume", err)
	}
}

func TestSetImageProfilePicture(t *testing.T) {
	db := newTestDB(t)
	user, resume := seedUserWithResume(t, db, seedDoc)
	store := newFakeStore()
	store.objects["user-assets/1/pic.png"] = true
	s := NewService(db, store)

	url, err := s.SetImage(context.Background(), user.ID, TargetProfilePicture, 0, "user-assets/1/pic.png")
	if err != nil {
		t.Fatalf("set image: %v", err)
	}
	if url != "https://cdn.example.com/user-assets/1/pic.png" {
		t.Errorf("url = %q", url)
	}

	stored := reloadFields(t, db, resume.ID)
	if got := gjson.GetBytes(stored, "profilePicture").String(); got != url {
		t.Errorf("profilePicture = %q", got)
	}
}

func TestSetImageCollectionTargets(t *testing.T) {
	db := newTestDB(t)
	user, resume := seedUserWithResume(t, db, seedDoc)
	store := newFakeStore()
	store.objects["user-assets/1/logo.png"] = true
	s := NewService(db, store)

	cases := []struct {
		target ImageTarget
		path   string
	}{
		{TargetSchoolLogo, "education.0.logo"},
		{TargetCompanyLogo, "experience.0.companyLogo"},
		{TargetProjectImage, "projects.0.projectPicture"},
	}
	for _, tc := range cases {
		url, err := s.SetImage(context.Background(), user.ID, tc.target, 0, "user-assets/1/logo.png")
		if err != nil {
			t.Fatalf("set image at %s: %v", tc.path, err)
		}
		stored := reloadFields(t, db, resume.ID)
		if got := gjson.GetBytes(stored, tc.path).String(); got != url {
			t.Errorf("%s = %q, want %q", tc.path, got, url)
		}
	}
}

func TestSetImageMissingObject(t *testing.T) {
	db := newTestDB(t)
	user, resume := seedUserWithResume(t, db, seedDoc)
	s := NewService(db, newFakeStore())

	before := reloadFields(t, db, resume.ID)
	_, err := s.SetImage(context.Background(), user.ID, TargetProfilePicture, 0, "user-assets/1/nope.png")
	if !errors.Is(err, ErrObjectMissing) {
		t.Fatalf("err = %v, want ErrObjectMissing", err)
	}
	after := reloadFields(t, db, resume.ID)
	if string(before) != string(after) {
		t.Error("document should not change on failed image patch")
	}
}

func TestSetImageIndexOutOfRange(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedUserWithResume(t, db, seedDoc)
	store := newFakeStore()
	store.objects["user-assets/1/logo.png"] = true
	s := NewService(db, store)

	_, err := s.SetImage(context.Background(), user.ID, TargetSchoolLogo, 5, "user-assets/1/logo.png")
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
	}
	_, err = s.SetImage(context.Background(), user.ID, TargetSchoolLogo, -1, "user-assets/1/logo.png")
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("negative index: err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestSetProjectLinks(t *testing.T) {
	db := newTestDB(t)
	user, resume := seedUserWithResume(t, db, seedDoc)
	s := NewService(db, newFakeStore())

	github := "https://github.com/ada/demo"
	if _, err := s.SetProjectLinks(context.Background(), user.ID, 0, ProjectLinks{GithubLink: &github}); err != nil {
		t.Fatalf("set links: %v", err)
	}

	stored := reloadFields(t, db, resume.ID)
	if got := gjson.GetBytes(stored, "projects.0.githubLink").String(); got != github {
		t.Errorf("githubLink = %q", got)
	}
	// 未提交的链接保持原样（此处本就不存在）。
	if gjson.GetBytes(stored, "projects.0.liveLink").Exists() {
		t.Error("liveLink should not be created")
	}
}

func TestSetProjectLinksRejectsInvalidURL(t *testing.T) {
	db := newTestDB(t)
	user, resume := seedUserWithResume(t, db, seedDoc)
	s := NewService(db, newFakeStore())

	before := reloadFields(t, db, resume.ID)
	bad := "not-a-url"
	_, err := s.SetProjectLinks(context.Background(), user.ID, 0, ProjectLinks{LiveLink: &bad})
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("err = %v, want ErrInvalidURL", err)
	}
	after := reloadFields(t, db, resume.ID)
	if string(before) != string(after) {
		t.Error("document should not change on invalid link")
	}
}

func TestSetProjectLinksIndexOutOfRange(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedUserWithResume(t, db, seedDoc)
	s := NewService(db, newFakeStore())

	github := "https://github.com/ada/demo"
	_, err := s.SetProjectLinks(context.Background(), user.ID, 3, ProjectLinks{GithubLink: &github})
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestWriteDetectsConcurrentModification(t *testing.T) {
	db := newTestDB(t)
	_, resume := seedUserWithResume(t, db, seedDoc)
	s := NewService(db, newFakeStore())

	// 模拟另一个写入者抢先提交。
	if err := db.Model(&database.Resume{}).
		Where("id = ?", resume.ID).
		Update("version", resume.Version+1).Error; err != nil {
		t.Fatalf("bump version: %v", err)
	}

	err := s.write(context.Background(), resume, []byte(`{"name":"stale"}`))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestActiveResumeFallsBackToLatest(t *testing.T) {
	db := newTestDB(t)
	user, resume := seedUserWithResume(t, db, seedDoc)
	// 外键指向已删除的记录时回退到最近一份。
	if err := db.Model(user).Update("active_resume_id", resume.ID+100).Error; err != nil {
		t.Fatalf("point at missing resume: %v", err)
	}
	s := NewService(db, newFakeStore())

	got, err := s.activeResume(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("active resume: %v", err)
	}
	if got.ID != resume.ID {
		t.Errorf("resume id = %d, want %d", got.ID, resume.ID)
	}
}
