package moments_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/fiftytwo/internal/apperr"
	"github.com/starford/fiftytwo/internal/models"
	"github.com/starford/fiftytwo/internal/moments"
	"github.com/starford/fiftytwo/internal/storage"
	"github.com/starford/fiftytwo/internal/testutil"
)

func input(text string, week, year int) models.MomentInput {
	return models.MomentInput{Text: text, WeekNumber: week, Year: year}
}

func ids(items []models.Moment) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.ID
	}
	return out
}

func assertTimelineSorted(t *testing.T, items []models.Moment) {
	t.Helper()
	for i := 1; i < len(items); i++ {
		a, b := items[i-1], items[i]
		if a.Year < b.Year || (a.Year == b.Year && a.WeekNumber < b.WeekNumber) {
			t.Fatalf("timeline not descending at %d: (%d,%d) before (%d,%d)", i, a.Year, a.WeekNumber, b.Year, b.WeekNumber)
		}
	}
}

func TestCreate_FieldsAndOrder(t *testing.T) {
	store, _, clock := testutil.TestStore(t)
	ctx := context.Background()

	in := input("Hiked a mountain", 10, 2024)
	in.Title = testutil.Ptr("Alps")
	in.Photo = testutil.Ptr("data:image/png;base64,AAAA")

	m, err := store.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID == "" {
		t.Error("id not assigned")
	}
	if m.Text != "Hiked a mountain" || m.WeekNumber != 10 || m.Year != 2024 {
		t.Errorf("fields = %+v", m)
	}
	if m.Title == nil || *m.Title != "Alps" {
		t.Errorf("title = %v", m.Title)
	}
	if !m.HasPhoto() {
		t.Error("photo missing")
	}
	if !m.CreatedAt.Equal(clock.Now()) {
		t.Errorf("createdAt = %s, want %s", m.CreatedAt, clock.Now())
	}

	all := store.ListAll(ctx)
	if len(all) != 1 || all[0].ID != m.ID {
		t.Fatalf("ListAll = %v", ids(all))
	}
}

func TestCreate_KeepsTimelineSorted(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	for _, in := range []models.MomentInput{
		input("a", 3, 2023),
		input("b", 40, 2024),
		input("c", 1, 2025),
		input("d", 52, 2022),
		input("e", 12, 2024),
	} {
		if _, err := store.Create(ctx, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
		assertTimelineSorted(t, store.ListAll(ctx))
	}
	if store.Len() != 5 {
		t.Errorf("len = %d", store.Len())
	}
}

func TestCreate_BlankTextRejected(t *testing.T) {
	store, mem, _ := testutil.TestStore(t)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := store.Create(ctx, input(text, 5, 2024))
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Create(%q) err = %v, want ErrValidation", text, err)
		}
	}
	if store.Len() != 0 {
		t.Errorf("collection changed: len = %d", store.Len())
	}
	if _, err := mem.Get(moments.StorageKey); !errors.Is(err, storage.ErrNotExist) {
		t.Errorf("rejected create must not persist, got %v", err)
	}
}

func TestCreate_WeekAndYearValidated(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	for _, in := range []models.MomentInput{
		input("x", 0, 2024),
		input("x", 54, 2024),
		input("x", -1, 2024),
		input("x", 5, 0),
	} {
		if _, err := store.Create(ctx, in); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Create(%+v) err = %v, want ErrValidation", in, err)
		}
	}
	if _, err := store.Create(ctx, input("x", 53, 2024)); err != nil {
		t.Errorf("week 53 should be accepted: %v", err)
	}
}

func TestCreate_DuplicateWeeksAllowed(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	first, _ := store.Create(ctx, input("first", 7, 2024))
	second, _ := store.Create(ctx, input("second", 7, 2024))

	all := store.ListAll(ctx)
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Errorf("tie order = %v, want newest first", ids(all))
	}
}

func TestScenario_TimelineAndYearReview(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	a, _ := store.Create(ctx, input("Hiked a mountain", 10, 2024))
	b, _ := store.Create(ctx, input("Started new job", 5, 2024))

	all := store.ListAll(ctx)
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Errorf("ListAll = %v, want [%s %s]", ids(all), a.ID, b.ID)
	}

	year := store.ListForYear(ctx, 2024)
	if len(year) != 2 || year[0].ID != b.ID || year[1].ID != a.ID {
		t.Errorf("ListForYear = %v, want [%s %s]", ids(year), b.ID, a.ID)
	}
}

func TestListForYear_FiltersAndEmpty(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	_, _ = store.Create(ctx, input("old", 20, 2023))
	_, _ = store.Create(ctx, input("late", 30, 2024))
	_, _ = store.Create(ctx, input("early", 2, 2024))

	got := store.ListForYear(ctx, 2024)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, m := range got {
		if m.Year != 2024 {
			t.Errorf("unexpected year %d", m.Year)
		}
	}
	if got[0].WeekNumber != 2 || got[1].WeekNumber != 30 {
		t.Errorf("weeks = %d,%d, want ascending", got[0].WeekNumber, got[1].WeekNumber)
	}

	empty := store.ListForYear(ctx, 1999)
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty year = %#v, want empty non-nil slice", empty)
	}
}

func TestUpdate_MutatesEditableFields(t *testing.T) {
	store, _, clock := testutil.TestStore(t)
	ctx := context.Background()

	m, _ := store.Create(ctx, models.MomentInput{
		Text: "draft", Title: testutil.Ptr("t"), WeekNumber: 4, Year: 2024,
		Photo: testutil.Ptr("data:image/png;base64,AAAA"),
	})
	createdAt := m.CreatedAt
	clock.Advance(48 * time.Hour)

	got, err := store.Update(ctx, m.ID, input("final", 6, 2023))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != m.ID || !got.CreatedAt.Equal(createdAt) {
		t.Errorf("id/createdAt changed: %+v", got)
	}
	if got.Text != "final" || got.WeekNumber != 6 || got.Year != 2023 {
		t.Errorf("fields = %+v", got)
	}
	if got.Title != nil || got.Photo != nil {
		t.Errorf("title/photo should be cleared: %v %v", got.Title, got.Photo)
	}

	stored, _ := store.Get(ctx, m.ID)
	if stored.Text != "final" {
		t.Errorf("stored text = %q", stored.Text)
	}
}

func TestUpdate_ResortsTimeline(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	a, _ := store.Create(ctx, input("a", 10, 2024))
	b, _ := store.Create(ctx, input("b", 5, 2024))

	if _, err := store.Update(ctx, b.ID, input("b", 20, 2024)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	all := store.ListAll(ctx)
	if all[0].ID != b.ID || all[1].ID != a.ID {
		t.Errorf("after edit ListAll = %v, want [%s %s]", ids(all), b.ID, a.ID)
	}
	assertTimelineSorted(t, all)
}

func TestUpdate_NotFound(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	_, _ = store.Create(ctx, input("keep", 1, 2024))
	before := store.ListAll(ctx)

	_, err := store.Update(ctx, "missing", input("x", 1, 2024))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	after := store.ListAll(ctx)
	if len(after) != len(before) || after[0].Text != "keep" {
		t.Errorf("collection changed: %+v", after)
	}
}

func TestUpdate_BlankTextRejected(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	m, _ := store.Create(ctx, input("keep", 1, 2024))
	if _, err := store.Update(ctx, m.ID, input("  ", 1, 2024)); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	got, _ := store.Get(ctx, m.ID)
	if got.Text != "keep" {
		t.Errorf("text = %q, want unchanged", got.Text)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	a, _ := store.Create(ctx, input("a", 1, 2024))
	b, _ := store.Create(ctx, input("b", 2, 2024))

	removed, err := store.Delete(ctx, a.ID)
	if err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}
	once := ids(store.ListAll(ctx))
	removed, err = store.Delete(ctx, a.ID)
	if err != nil || removed {
		t.Fatalf("second Delete: removed=%v err=%v", removed, err)
	}
	twice := ids(store.ListAll(ctx))
	if len(once) != 1 || len(twice) != 1 || once[0] != b.ID || twice[0] != b.ID {
		t.Errorf("once = %v, twice = %v", once, twice)
	}
	if removed, err := store.Delete(ctx, "never-existed"); err != nil || removed {
		t.Errorf("delete of unknown id: removed=%v err=%v", removed, err)
	}
	if _, err := store.Get(ctx, a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get deleted: err = %v", err)
	}
}

func TestListAll_ReturnsCopies(t *testing.T) {
	store, _, _ := testutil.TestStore(t)
	ctx := context.Background()

	_, _ = store.Create(ctx, models.MomentInput{Text: "orig", Title: testutil.Ptr("t"), WeekNumber: 1, Year: 2024})
	all := store.ListAll(ctx)
	all[0].Text = "mutated"
	*all[0].Title = "mutated"

	again := store.ListAll(ctx)
	if again[0].Text != "orig" || *again[0].Title != "t" {
		t.Errorf("store aliased by caller: %+v", again[0])
	}
}

func TestTitle_EmptyDistinctFromAbsent(t *testing.T) {
	store, mem, _ := testutil.TestStore(t)
	ctx := context.Background()

	withEmpty, _ := store.Create(ctx, models.MomentInput{Text: "a", Title: testutil.Ptr(""), WeekNumber: 1, Year: 2024})
	without, _ := store.Create(ctx, input("b", 2, 2024))

	reloaded := moments.NewStore(mem, moments.WithLogger(testutil.DiscardLogger()))
	e, _ := reloaded.Get(ctx, withEmpty.ID)
	n, _ := reloaded.Get(ctx, without.ID)
	if e.Title == nil || *e.Title != "" {
		t.Errorf("empty title lost: %v", e.Title)
	}
	if n.Title != nil {
		t.Errorf("absent title became %q", *n.Title)
	}
}

type failingProvider struct {
	*storage.Memory
}

func (failingProvider) Set(string, []byte) error { return errors.New("disk full") }

func TestPersistFailureKeepsMutation(t *testing.T) {
	store := moments.NewStore(failingProvider{storage.NewMemory()}, moments.WithLogger(testutil.DiscardLogger()))
	ctx := context.Background()

	m, err := store.Create(ctx, input("still here", 1, 2024))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Get(ctx, m.ID); err != nil {
		t.Errorf("in-memory mutation lost: %v", err)
	}
}
