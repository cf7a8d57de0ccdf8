package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

func TestSearchTokens(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	mustPut(t, s, text("The Quick brown fox"))
	mustPut(t, s, text("quick silver"))
	mustPut(t, s, text("100% done"))
	mustPut(t, s, text("1000 done"))
	mustPut(t, s, text("snake_case"))
	mustPut(t, s, text("snakeXcase"))

	cases := []struct {
		query string
		want  int
	}{
		{"quick", 2},
		{"QUICK fox", 1},
		{"fox   quick", 1},
		{"quick missing", 0},
		{"100%", 1},
		{"snake_case", 1},
		{"done", 2},
	}

	for _, tc := range cases {
		hits, err := s.Search(ctx, tc.query, nil, 0)
		if err != nil {
			t.Fatalf("search %q: %v", tc.query, err)
		}

		if len(hits) != tc.want {
			t.Errorf("search %q = %v, want %d hits", tc.query, contents(hits), tc.want)
		}
	}
}

func TestSearchEmptyQueryAppliesFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	mustPut(t, s, text("note"))
	mustPut(t, s, types.Event{Type: string(model.KindFile), Content: "file:///tmp/a.txt"})

	all, _ := s.Search(ctx, "  ", nil, 0)
	if len(all) != 2 {
		t.Fatalf("empty query without filters = %d, want 2", len(all))
	}

	files, _ := s.Search(ctx, "", &types.Filters{Kinds: []string{"file"}}, 0)
	if len(files) != 1 || files[0].Kind != model.KindFile {
		t.Fatalf("kind filter = %v", contents(files))
	}
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	a := mustPut(t, s, text("report alpha")).Item
	b := mustPut(t, s, text("report beta")).Item
	c := mustPut(t, s, text("report gamma")).Item

	red, _ := s.CreateTag(ctx, "red", "")
	blue, _ := s.CreateTag(ctx, "blue", "")

	_ = s.Attach(ctx, a.ID, red.ID)
	_ = s.Attach(ctx, b.ID, red.ID)
	_ = s.Attach(ctx, b.ID, blue.ID)

	hits, _ := s.Search(ctx, "report", &types.Filters{TagIDs: []uint{red.ID, blue.ID}, TagMode: types.TagModeAll}, 0)
	if len(hits) != 1 || hits[0].ID != b.ID {
		t.Fatalf("tag all = %v", contents(hits))
	}

	hits, _ = s.Search(ctx, "report", &types.Filters{TagIDs: []uint{red.ID, blue.ID}}, 0)
	if len(hits) != 2 {
		t.Fatalf("tag any = %v", contents(hits))
	}

	from := b.CreatedAt
	hits, _ = s.Search(ctx, "report", &types.Filters{From: &from}, 0)
	if len(hits) != 2 || hits[0].ID != c.ID {
		t.Fatalf("from filter = %v", contents(hits))
	}

	to := b.CreatedAt.Add(-time.Microsecond)
	hits, _ = s.Search(ctx, "", &types.Filters{To: &to}, 0)
	if len(hits) != 1 || hits[0].ID != a.ID {
		t.Fatalf("to filter = %v", contents(hits))
	}

	hits, _ = s.Search(ctx, "report", &types.Filters{Kinds: []string{"file"}}, 0)
	if len(hits) != 0 {
		t.Fatalf("kind filter = %v", contents(hits))
	}
}

func TestSearchPagination(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	for _, c := range []string{"log 1", "log 2", "log 3", "log 4", "other"} {
		mustPut(t, s, text(c))
	}

	page, total, err := s.SearchPage(ctx, "log", nil, 1, 2, "desc")
	if err != nil {
		t.Fatalf("search page: %v", err)
	}

	if total != 4 || len(page) != 2 || page[0].Content != "log 3" || page[1].Content != "log 2" {
		t.Fatalf("page = %v, total = %d", contents(page), total)
	}

	if hits, _ := s.Search(ctx, "log", nil, 3); len(hits) != 3 {
		t.Fatalf("limit = %d, want 3", len(hits))
	}
}

func TestImageContentNotIndexed(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	mustPut(t, s, types.Event{Type: string(model.KindImageWeb), Content: `{"mimeType":"image/png","data":"abc"}`})

	if hits, _ := s.Search(ctx, "png", nil, 0); len(hits) != 0 {
		t.Fatalf("image payload matched text search: %d", len(hits))
	}
}
