package classify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// Probe 剪贴板探针：读取当前快照并通知变化.
type Probe interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	// Changes 返回变化通知通道，ctx 结束后通道关闭
	Changes(ctx context.Context) (<-chan struct{}, error)
}

var (
	clipboardOnce sync.Once
	errClipboard  error
)

// SystemProbe 基于 golang.design/x/clipboard 的系统剪贴板探针，只能读取纯文本与 PNG 图片.
// 该库只暴露 FmtText 与 FmtImage，读不到 text/uri-list 与 x-special/gnome-copied-files，
// 因此快照不含 URIList，文件复制不会走文件分支.
type SystemProbe struct {
	text  bool
	image bool
}

// NewSystemProbe 初始化系统剪贴板；无图形环境或未启用 cgo 时返回错误.
func NewSystemProbe(text, image bool) (*SystemProbe, error) {
	if !text && !image {
		return nil, errors.New("clipboard probe: no format enabled")
	}

	clipboardOnce.Do(func() {
		errClipboard = clipboard.Init()
	})

	if errClipboard != nil {
		return nil, fmt.Errorf("clipboard probe: %w", errClipboard)
	}

	return &SystemProbe{text: text, image: image}, nil
}

// Snapshot 读取当前剪贴板.
func (p *SystemProbe) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	var s Snapshot

	if p.text {
		if b := clipboard.Read(clipboard.FmtText); len(b) > 0 {
			s.Kinds = append(s.Kinds, MimeText)
			s.Text = string(b)
		}
	}

	if p.image {
		if b := clipboard.Read(clipboard.FmtImage); len(b) > 0 {
			s.Kinds = append(s.Kinds, MimePNG)
			s.Image = &Image{MimeType: MimePNG, Data: b}
		}
	}

	return s, nil
}

// Changes 合并文本与图片两个监听通道，连续变化会被合并为一次通知.
func (p *SystemProbe) Changes(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)

	var wg sync.WaitGroup

	watch := func(f clipboard.Format) {
		defer wg.Done()

		for range clipboard.Watch(ctx, f) {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}

	if p.text {
		wg.Add(1)

		go watch(clipboard.FmtText)
	}

	if p.image {
		wg.Add(1)

		go watch(clipboard.FmtImage)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// FakeProbe 脚本化探针：每次 Push 产生一次变化通知，Snapshot 按顺序返回推入的快照.
type FakeProbe struct {
	mu      sync.Mutex
	queue   []Snapshot
	current Snapshot
	changes chan struct{}
	err     error
}

// NewFakeProbe 创建脚本化探针.
func NewFakeProbe() *FakeProbe {
	return &FakeProbe{changes: make(chan struct{}, 64)}
}

// Push 推入一个快照并发出变化通知.
func (p *FakeProbe) Push(s Snapshot) {
	p.mu.Lock()
	p.queue = append(p.queue, s)
	p.mu.Unlock()

	p.changes <- struct{}{}
}

// Fail 让后续 Snapshot 返回 err，传入 nil 恢复.
func (p *FakeProbe) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.err = err
}

func (p *FakeProbe) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) > 0 {
		p.current, p.queue = p.queue[0], p.queue[1:]
	}

	if p.err != nil {
		return Snapshot{}, p.err
	}

	return p.current, nil
}

func (p *FakeProbe) Changes(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{})

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.changes:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
