package classify_test

import (
	"encoding/base64"
	"sync"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/yeisme/clipvault/pkg/internal/classify"
	"github.com/yeisme/clipvault/pkg/internal/model"
)

var png = []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		snap     classify.Snapshot
		wantOK   bool
		wantType model.ItemKind
		want     string
	}{
		{
			name: "file list wins over text and image",
			snap: classify.Snapshot{
				Kinds:   []string{classify.MimeURIList, classify.MimeText, classify.MimePNG},
				URIList: "file:///home/u/a.txt\r\nfile:///home/u/b.txt",
				Text:    "/home/u/a.txt",
				Image:   &classify.Image{MimeType: classify.MimePNG, Data: png},
			},
			wantOK:   true,
			wantType: model.KindFile,
			want:     "file:///home/u/a.txt\r\nfile:///home/u/b.txt",
		},
		{
			name: "gnome copied files with verb line",
			snap: classify.Snapshot{
				Kinds: []string{classify.MimeGnomeCopied},
				Text:  "copy\nfile:///tmp/x",
			},
			wantOK:   true,
			wantType: model.KindFile,
			want:     "copy\nfile:///tmp/x",
		},
		{
			name: "uri list with comments",
			snap: classify.Snapshot{
				Kinds:   []string{classify.MimeURIList},
				URIList: "# comment\n\nfile:///tmp/x\n",
			},
			wantOK:   true,
			wantType: model.KindFile,
			want:     "# comment\n\nfile:///tmp/x\n",
		},
		{
			name: "non file uri falls through to text",
			snap: classify.Snapshot{
				Kinds:   []string{classify.MimeURIList, classify.MimeText},
				URIList: "https://example.com",
				Text:    "https://example.com",
			},
			wantOK:   true,
			wantType: model.KindText,
			want:     "https://example.com",
		},
		{
			name: "absolute path becomes file uri",
			snap: classify.Snapshot{
				Kinds: []string{classify.MimeText},
				Text:  "  /tmp/a b.txt\n",
			},
			wantOK:   true,
			wantType: model.KindFile,
			want:     "file:///tmp/a%20b.txt",
		},
		{
			name: "multi line path stays text",
			snap: classify.Snapshot{
				Kinds: []string{classify.MimeText},
				Text:  "/tmp/a\n/tmp/b",
			},
			wantOK:   true,
			wantType: model.KindText,
			want:     "/tmp/a\n/tmp/b",
		},
		{
			name: "relative path stays text",
			snap: classify.Snapshot{
				Kinds: []string{classify.MimeText},
				Text:  "tmp/a",
			},
			wantOK:   true,
			wantType: model.KindText,
			want:     "tmp/a",
		},
		{
			name:   "empty snapshot",
			snap:   classify.Snapshot{},
			wantOK: false,
		},
		{
			name:   "whitespace text",
			snap:   classify.Snapshot{Kinds: []string{classify.MimeText}, Text: " \n\t"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := classify.Categorize(tt.snap)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}

			if !ok {
				return
			}

			if ev.Kind() != tt.wantType || ev.Content != tt.want {
				t.Fatalf("event = %s %q, want %s %q", ev.Type, ev.Content, tt.wantType, tt.want)
			}
		})
	}
}

func TestCategorizeImageKinds(t *testing.T) {
	img := &classify.Image{MimeType: classify.MimePNG, Data: png}

	tests := []struct {
		name  string
		kinds []string
		html  string
		want  model.ItemKind
	}{
		{"screenshot", []string{classify.MimePNG}, "", model.KindImageScreenshot},
		{"web", []string{classify.MimePNG, classify.MimeHTML}, "<img src=x>", model.KindImageWeb},
		{"generic", []string{classify.MimePNG, classify.MimeText}, "", model.KindImageGeneric},
		{"no kinds advertised", nil, "", model.KindImageGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := classify.Categorize(classify.Snapshot{Kinds: tt.kinds, HTML: tt.html, Image: img, Text: "caption"})
			if !ok || ev.Kind() != tt.want {
				t.Fatalf("event = %s (%v), want %s", ev.Type, ok, tt.want)
			}

			var payload struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			}

			if err := sonic.UnmarshalString(ev.Content, &payload); err != nil {
				t.Fatalf("decode payload: %v", err)
			}

			if payload.MimeType != classify.MimePNG || payload.Data != base64.StdEncoding.EncodeToString(png) {
				t.Fatalf("payload = %+v", payload)
			}
		})
	}
}

func TestCategorizeFormattedText(t *testing.T) {
	ev, _ := classify.Categorize(classify.Snapshot{
		Kinds: []string{classify.MimeText, classify.MimeHTML, classify.MimeRTF},
		Text:  "bold",
		HTML:  "<b>bold</b>",
		RTF:   `{\rtf1 \b bold}`,
	})

	if ev.FormatType != "html" || ev.FormattedContent != "<b>bold</b>" {
		t.Fatalf("html should win: %+v", ev)
	}

	ev, _ = classify.Categorize(classify.Snapshot{Kinds: []string{classify.MimeText, classify.MimeRTF}, Text: "bold", RTF: `{\rtf1 \b bold}`})
	if ev.FormatType != "rtf" {
		t.Fatalf("rtf fallback: %+v", ev)
	}
}

func TestClassifierSuppressesDuplicates(t *testing.T) {
	c := classify.New()
	hello := classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "hello"}
	world := classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "world"}

	seq := []struct {
		snap classify.Snapshot
		want bool
	}{
		{hello, true},
		{hello, false},
		{world, true},
		{hello, true},
		{hello, false},
	}

	for i, s := range seq {
		if _, ok := c.Classify(s.snap); ok != s.want {
			t.Fatalf("step %d: ok = %v, want %v", i, ok, s.want)
		}
	}
}

func TestClassifierConcurrent(t *testing.T) {
	c := classify.New()
	snap := classify.Snapshot{Kinds: []string{classify.MimeText}, Text: "same"}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		emitted int
	)

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, ok := c.Classify(snap); ok {
				mu.Lock()
				emitted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if emitted != 1 {
		t.Fatalf("emitted = %d, want 1", emitted)
	}
}
