package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"foliogen/internal/database"
	"foliogen/internal/portfolio"
)

type fakeOracle struct {
	response string
	err      error
	calls    int
	onCall   func()
}

func (o *fakeOracle) Complete(_ context.Context, _ string, _ string) (string, error) {
	o.calls++
	if o.onCall != nil {
		o.onCall()
	}
	return o.response, o.err
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

func seedResume(t *testing.T, db *gorm.DB, status string) *database.Resume {
	t.Helper()
	user := database.User{ClerkID: "user_test", DisplayID: "tester"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	resume := database.Resume{
		UserID:     user.ID,
		FileName:   "resume.pdf",
		ObjectKey:  "resumes/1/a.pdf",
		Status:     status,
		ResumeText: "worked at acme as engineer",
		Fields:     []byte("{}"),
	}
	if err := db.Create(&resume).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	return &resume
}

func reload(t *testing.T, db *gorm.DB, id uint) *database.Resume {
	t.Helper()
	var resume database.Resume
	if err := db.First(&resume, id).Error; err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	return &resume
}

func TestRunStoresDecodedDocument(t *testing.T) {
	db := newTestDB(t)
	resume := seedResume(t, db, database.StatusUploaded)
	oracle := &fakeOracle{response: `{"name":"Ada","contact":{"email":"ada@example.com"},"skills":["go"]}`}

	p := NewPipeline(db, oracle, PolicyLenient, nil)
	if err := p.Run(context.Background(), resume.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := reload(t, db, resume.ID)
	if got.Status != database.StatusProcessed {
		t.Errorf("status = %q, want %q", got.Status, database.StatusProcessed)
	}
	if got.Version != resume.Version+1 {
		t.Errorf("version = %d, want %d", got.Version, resume.Version+1)
	}

	doc, err := portfolio.Decode([]byte(got.Fields))
	if err != nil {
		t.Fatalf("decode stored fields: %v", err)
	}
	if doc.Name != "Ada" || doc.Contact.Email != "ada@example.com" {
		t.Errorf("stored document = %+v", doc)
	}
	if doc.SchemaVersion != portfolio.SchemaVersion {
		t.Errorf("schema version = %d", doc.SchemaVersion)
	}

	var user database.User
	if err := db.First(&user, resume.UserID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if !user.HasGeneratedPortfolio {
		t.Error("user portfolio flag should be set")
	}
}

func TestRunStripsCodeFence(t *testing.T) {
	db := newTestDB(t)
	resume := seedResume(t, db, database.StatusUploaded)
	oracle := &fakeOracle{response: "```json\n{\"name\":\"Ada\"}\n```"}

	p := NewPipeline(db, oracle, PolicyLenient, nil)
	if err := p.Run(context.Background(), resume.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := reload(t, db, resume.ID)
	var raw map[string]any
	if err := json.Unmarshal(got.Fields, &raw); err != nil {
		t.Fatalf("unmarshal fields: %v", err)
	}
	if raw["name"] != "Ada" {
		t.Errorf("name = %v", raw["name"])
	}
}

func TestRunLenientFallsBackToPlaceholder(t *testing.T) {
	db := newTestDB(t)
	resume := seedResume(t, db, database.StatusUploaded)
	oracle := &fakeOracle{response: "I could not find a resume in this text."}

	p := NewPipeline(db, oracle, PolicyLenient, nil)
	if err := p.Run(context.Background(), resume.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := reload(t, db, resume.ID)
	if got.Status != database.StatusProcessed {
		t.Errorf("status = %q, want processed", got.Status)
	}
	doc, err := portfolio.Decode([]byte(got.Fields))
	if err != nil {
		t.Fatalf("decode stored fields: %v", err)
	}
	if doc.ParserNotes != portfolio.ParseFailedNotes {
		t.Errorf("parser notes = %q", doc.ParserNotes)
	}
}

func TestRunStrictMarksError(t *testing.T) {
	db := newTestDB(t)
	resume := seedResume(t, db, database.StatusUploaded)
	oracle := &fakeOracle{response: "not json at all"}

	p := NewPipeline(db, oracle, PolicyStrict, nil)
	err := p.Run(context.Background(), resume.ID)
	if !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("err = %v, want ErrDecodeFailed", err)
	}

	got := reload(t, db, resume.ID)
	if got.Status != database.StatusError {
		t.Errorf("status = %q, want error", got.Status)
	}
	if string(got.Fields) != "{}" {
		t.Errorf("fields should be untouched, got %s", got.Fields)
	}
}

func TestRunOracleFailureMarksError(t *testing.T) {
	db := newTestDB(t)
	resume := seedResume(t, db, database.StatusUploaded)
	oracleErr := errors.New("upstream unavailable")
	oracle := &fakeOracle{err: oracleErr}

	p := NewPipeline(db, oracle, PolicyLenient, nil)
	if err := p.Run(context.Background(), resume.ID); !errors.Is(err, oracleErr) {
		t.Fatalf("err = %v, want oracle error", err)
	}

	got := reload(t, db, resume.ID)
	if got.Status != database.StatusError {
		t.Errorf("status = %q, want error", got.Status)
	}
	if string(got.Fields) != "{}" {
		t.Errorf("fields should be untouched, got %s", got.Fields)
	}
}

func TestRunMissingResume(t *testing.T) {
	db := newTestDB(t)
	oracle := &fakeOracle{response: "{}"}

	p := NewPipeline(db, oracle, PolicyLenient, nil)
	if err := p.Run(context.Background(), 9999); !errors.Is(err, ErrResumeGone) {
		t.Fatalf("err = %v, want ErrResumeGone", err)
	}
	if oracle.calls != 0 {
		t.Errorf("oracle should not be called, got %d calls", oracle.calls)
	}
}

func TestRunResumeDeletedMidflight(t *testing.T) {
	db := newTestDB(t)
	resume := seedResume(t, db, database.StatusUploaded)
	oracle := &fakeOracle{
		response: `{"name":"Ada"}`,
		onCall: func() {
			if err := db.Delete(&database.Resume{}, resume.ID).Error; err != nil {
				t.Fatalf("delete resume: %v", err)
			}
		},
	}

	p := NewPipeline(db, oracle, PolicyLenient, nil)
	if err := p.Run(context.Background(), resume.ID); !errors.Is(err, ErrResumeGone) {
		t.Fatalf("err = %v, want ErrResumeGone", err)
	}

	var user database.User
	if err := db.First(&user, resume.UserID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.HasGeneratedPortfolio {
		t.Error("user flag must stay unset when the resume vanished mid-extraction")
	}
}

func TestRunSkipsAlreadyProcessed(t *testing.T) {
	db := newTestDB(t)
	resume := seedResume(t, db, database.StatusProcessed)
	oracle := &fakeOracle{response: "{}"}

	p := NewPipeline(db, oracle, PolicyLenient, nil)
	if err := p.Run(context.Background(), resume.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if oracle.calls != 0 {
		t.Errorf("oracle should not be called for processed resume, got %d calls", oracle.calls)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  \n```json\r\n{\"a\":1}```", "{\"a\":1}"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
