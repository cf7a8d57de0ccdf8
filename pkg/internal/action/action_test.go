package action_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yeisme/clipvault/pkg/internal/action"
	"github.com/yeisme/clipvault/pkg/internal/model"
	"github.com/yeisme/clipvault/pkg/internal/store"
	"github.com/yeisme/clipvault/pkg/internal/types"
)

// stub 记录调用并返回预设错误.
type stub struct {
	calls []string
	err   error

	history types.GetHistoryParams
	search  types.SearchParams
	ids     []uint
	name    string
	mode    string
	limit   int
}

func (s *stub) record(call string, ids ...uint) {
	s.calls = append(s.calls, call)
	s.ids = append(s.ids, ids...)
}

func (s *stub) GetHistory(_ context.Context, p types.GetHistoryParams) (*types.HistoryPage, error) {
	s.record("GetHistory")
	s.history = p

	return &types.HistoryPage{Page: p.Page}, s.err
}

func (s *stub) Search(_ context.Context, p types.SearchParams) (*types.SearchResult, error) {
	s.record("Search")
	s.search = p

	return &types.SearchResult{}, s.err
}

func (s *stub) GetItem(_ context.Context, id uint) (*types.ItemDetail, error) {
	s.record("GetItem", id)
	return &types.ItemDetail{}, s.err
}

func (s *stub) ItemTags(_ context.Context, id uint) ([]model.Tag, error) {
	s.record("ItemTags", id)
	return []model.Tag{{ID: 1, Name: "favorites"}}, s.err
}

func (s *stub) ListTags(_ context.Context, includeSystem bool) ([]model.Tag, error) {
	s.record("ListTags")

	if includeSystem {
		s.mode = "system"
	}

	return nil, s.err
}

func (s *stub) ItemsByTags(_ context.Context, tagIDs []uint, mode string) ([]types.HistoryItem, error) {
	s.record("ItemsByTags", tagIDs...)
	s.mode = mode

	return nil, s.err
}

func (s *stub) CreateTag(_ context.Context, name, color string) (*model.Tag, error) {
	s.record("CreateTag")
	s.name = name

	return &model.Tag{ID: 7, Name: name, Color: color}, s.err
}

func (s *stub) AttachTag(_ context.Context, itemID, tagID uint) error {
	s.record("AttachTag", itemID, tagID)
	return s.err
}

func (s *stub) DetachTag(_ context.Context, itemID, tagID uint) error {
	s.record("DetachTag", itemID, tagID)
	return s.err
}

func (s *stub) DeleteTag(_ context.Context, tagID uint) (*model.Tag, error) {
	s.record("DeleteTag", tagID)
	return &model.Tag{ID: tagID}, s.err
}

func (s *stub) ToggleSecret(_ context.Context, id uint, name string) (*types.HistoryItem, error) {
	s.record("ToggleSecret", id)
	s.name = name

	return &types.HistoryItem{ID: id, IsSecret: true, DisplayName: name}, s.err
}

func (s *stub) Rename(_ context.Context, id uint, name string) (*types.HistoryItem, error) {
	s.record("Rename", id)
	s.name = name

	return &types.HistoryItem{ID: id, DisplayName: name}, s.err
}

func (s *stub) DeleteItem(_ context.Context, id uint) error {
	s.record("DeleteItem", id)
	return s.err
}

func (s *stub) RecordPaste(_ context.Context, id uint) (*model.PasteEvent, error) {
	s.record("RecordPaste", id)
	return &model.PasteEvent{ItemID: id}, s.err
}

func (s *stub) RecentlyPasted(_ context.Context, limit int) ([]types.RecentPaste, error) {
	s.record("RecentlyPasted")
	s.limit = limit

	return nil, s.err
}

func (s *stub) Stats(_ context.Context) (*types.Stats, error) {
	s.record("Stats")
	return &types.Stats{}, s.err
}

func TestCommandsCoverEveryAction(t *testing.T) {
	want := []string{
		"attach_tag", "create_tag", "delete_item", "delete_tag", "detach_tag",
		"get_history", "get_item", "get_item_tags", "items_by_tags", "list_tags",
		"recently_pasted", "record_paste", "rename_item", "search", "stats", "toggle_secret",
	}

	got := action.Commands().Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v", got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name   string
		action string
		params string
		call   string
		ids    []uint
		check  func(t *testing.T, s *stub, out any)
	}{
		{
			name: "history defaults", action: action.GetHistory, params: "", call: "GetHistory",
			check: func(t *testing.T, s *stub, _ any) {
				if s.history.Page != 0 || s.history.Filters != nil {
					t.Errorf("history params = %+v", s.history)
				}
			},
		},
		{
			name: "history with filters", action: action.GetHistory,
			params: `{"page":2,"page_size":10,"sort_order":"asc","filters":{"kinds":["file"],"tag_ids":[3],"tag_mode":"all"}}`,
			call:   "GetHistory",
			check: func(t *testing.T, s *stub, _ any) {
				f := s.history.Filters
				if s.history.Page != 2 || f == nil || f.Kinds[0] != "file" || f.Mode() != types.TagModeAll {
					t.Errorf("history params = %+v", s.history)
				}
			},
		},
		{
			name: "search", action: action.Search, params: `{"query":"fox"}`, call: "Search",
			check: func(t *testing.T, s *stub, _ any) {
				if s.search.Query != "fox" {
					t.Errorf("query = %q", s.search.Query)
				}
			},
		},
		{name: "get item", action: action.GetItem, params: `{"item_id":4}`, call: "GetItem", ids: []uint{4}},
		{
			name: "item tags", action: action.GetItemTags, params: `{"item_id":4}`, call: "ItemTags", ids: []uint{4},
			check: func(t *testing.T, _ *stub, out any) {
				if res, ok := out.(types.TagsResult); !ok || len(res.Tags) != 1 {
					t.Errorf("out = %#v", out)
				}
			},
		},
		{
			name: "list tags", action: action.ListTags, params: `{"include_system":true}`, call: "ListTags",
			check: func(t *testing.T, s *stub, _ any) {
				if s.mode != "system" {
					t.Error("include_system not forwarded")
				}
			},
		},
		{
			name: "items by tags", action: action.ItemsByTags, params: `{"tag_ids":[1,2],"mode":"all"}`,
			call: "ItemsByTags", ids: []uint{1, 2},
			check: func(t *testing.T, s *stub, _ any) {
				if s.mode != "all" {
					t.Errorf("mode = %q", s.mode)
				}
			},
		},
		{
			name: "create tag", action: action.CreateTag, params: `{"name":"work","color":"#00ff00"}`, call: "CreateTag",
			check: func(t *testing.T, _ *stub, out any) {
				if tag, ok := out.(*model.Tag); !ok || tag.Color != "#00ff00" {
					t.Errorf("out = %#v", out)
				}
			},
		},
		{
			name: "attach", action: action.AttachTag, params: `{"item_id":1,"tag_id":2}`, call: "AttachTag", ids: []uint{1, 2},
			check: func(t *testing.T, _ *stub, out any) {
				if res, ok := out.(types.OKResult); !ok || !res.OK {
					t.Errorf("out = %#v", out)
				}
			},
		},
		{name: "detach", action: action.DetachTag, params: `{"item_id":1,"tag_id":2}`, call: "DetachTag", ids: []uint{1, 2}},
		{
			name: "delete tag", action: action.DeleteTag, params: `{"tag_id":9}`, call: "DeleteTag", ids: []uint{9},
			check: func(t *testing.T, _ *stub, out any) {
				if res, ok := out.(types.DeletedResult); !ok || res.ID != 9 || !res.Deleted {
					t.Errorf("out = %#v", out)
				}
			},
		},
		{
			name: "toggle secret", action: action.ToggleSecret, params: `{"item_id":3,"name":"pin"}`, call: "ToggleSecret", ids: []uint{3},
			check: func(t *testing.T, s *stub, _ any) {
				if s.name != "pin" {
					t.Errorf("name = %q", s.name)
				}
			},
		},
		{name: "rename", action: action.RenameItem, params: `{"item_id":3,"name":"x"}`, call: "Rename", ids: []uint{3}},
		{name: "delete item", action: action.DeleteItem, params: `{"item_id":3}`, call: "DeleteItem", ids: []uint{3}},
		{name: "record paste", action: action.RecordPaste, params: `{"item_id":5}`, call: "RecordPaste", ids: []uint{5}},
		{
			name: "recently pasted", action: action.RecentlyPasted, params: `{"limit":20}`, call: "RecentlyPasted",
			check: func(t *testing.T, s *stub, _ any) {
				if s.limit != 20 {
					t.Errorf("limit = %d", s.limit)
				}
			},
		},
		{name: "stats", action: action.Stats, params: `{}`, call: "Stats"},
	}

	table := action.Commands()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stub{}

			out, err := table.Dispatch(context.Background(), s, tt.action, []byte(tt.params))
			if err != nil {
				t.Fatalf("dispatch: %v", err)
			}

			if len(s.calls) != 1 || s.calls[0] != tt.call {
				t.Fatalf("calls = %v, want [%s]", s.calls, tt.call)
			}

			if len(tt.ids) > 0 {
				if len(s.ids) != len(tt.ids) {
					t.Fatalf("ids = %v, want %v", s.ids, tt.ids)
				}

				for i := range tt.ids {
					if s.ids[i] != tt.ids[i] {
						t.Errorf("ids = %v, want %v", s.ids, tt.ids)
					}
				}
			}

			if tt.check != nil {
				tt.check(t, s, out)
			}
		})
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	s := &stub{}

	_, err := action.Commands().Dispatch(context.Background(), s, "drop_tables", nil)
	if !errors.Is(err, action.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}

	if len(s.calls) != 0 {
		t.Errorf("backend called: %v", s.calls)
	}
}

func TestDispatchInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		action string
		params string
	}{
		{"not json", action.Search, `{"query":`},
		{"wrong type", action.GetItem, `{"item_id":"four"}`},
		{"missing item id", action.DeleteItem, `{}`},
		{"bad sort order", action.GetHistory, `{"sort_order":"sideways"}`},
		{"negative page", action.GetHistory, `{"page":-1}`},
		{"bad kind filter", action.GetHistory, `{"filters":{"kinds":["video"]}}`},
		{"bad color", action.CreateTag, `{"name":"x","color":"red"}`},
		{"empty tag ids", action.ItemsByTags, `{"tag_ids":[]}`},
		{"bad mode", action.ItemsByTags, `{"tag_ids":[1],"mode":"some"}`},
		{"limit too large", action.RecentlyPasted, `{"limit":100000}`},
	}

	table := action.Commands()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stub{}

			_, err := table.Dispatch(context.Background(), s, tt.action, []byte(tt.params))
			if !errors.Is(err, action.ErrInvalidParams) {
				t.Fatalf("expected ErrInvalidParams, got %v", err)
			}

			if len(s.calls) != 0 {
				t.Errorf("backend called: %v", s.calls)
			}
		})
	}
}

func TestDispatchPropagatesBackendErrors(t *testing.T) {
	s := &stub{err: store.ErrNameConflict}

	_, err := action.Commands().Dispatch(context.Background(), s, action.CreateTag, []byte(`{"name":"dup"}`))
	if !errors.Is(err, store.ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
}

func TestCustomTable(t *testing.T) {
	table := action.Table{
		"ping": func(_ context.Context, _ action.Backend, _ []byte) (any, error) {
			return "pong", nil
		},
	}

	out, err := table.Dispatch(context.Background(), &stub{}, "ping", nil)
	if err != nil || out != "pong" {
		t.Fatalf("out = %v, err = %v", out, err)
	}
}
