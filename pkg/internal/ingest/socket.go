package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/yeisme/clipvault/pkg/configs"
	"github.com/yeisme/clipvault/pkg/internal/types"
	clog "github.com/yeisme/clipvault/pkg/log"
)

// SocketServer 本地 socket 采集通道：每个连接发送一行 JSON 信封，收到一行 JSON 回复.
type SocketServer struct {
	gw      *Gateway
	network string
	address string
	timeout time.Duration
	log     zerolog.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewSocketServer 创建 socket 采集通道，timeout 同时约束读取与写入结果等待.
func NewSocketServer(gw *Gateway, cfg configs.IngestSocketConf, timeout time.Duration) *SocketServer {
	if timeout <= 0 {
		timeout = configs.DefaultIngestSubmitTimeout
	}

	network := cfg.Network
	if network == "" {
		network = configs.DefaultIngestSocketNetwork
	}

	return &SocketServer{
		gw:      gw,
		network: network,
		address: cfg.Address,
		timeout: timeout,
		log:     clog.Component("ingest.socket"),
	}
}

// Listen 开始监听；unix socket 的残留文件会被先删除.
func (s *SocketServer) Listen() error {
	if s.network == "unix" {
		if err := os.Remove(s.address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen(s.network, s.address)
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", s.network, s.address, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.log.Info().Str("network", s.network).Str("address", ln.Addr().String()).Msg("ingest socket listening")

	return nil
}

// Addr 返回监听地址，未监听时为 nil.
func (s *SocketServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}

	return s.ln.Addr()
}

// Run 监听并处理连接直到 ctx 结束.
func (s *SocketServer) Run(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	return s.Serve(ctx)
}

// Serve 处理连接直到 ctx 结束，返回前等待进行中的连接.
func (s *SocketServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	if ln == nil {
		return errors.New("ingest socket: not listening")
	}

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *SocketServer) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	reply := s.process(ctx, conn)

	data, err := sonic.Marshal(reply)
	if err != nil {
		s.log.Error().Err(err).Msg("encode socket reply")
		return
	}

	if _, err := conn.Write(append(data, '\n')); err != nil {
		s.log.Debug().Err(err).Msg("write socket reply")
	}
}

func (s *SocketServer) process(ctx context.Context, conn net.Conn) types.SocketReply {
	r := bufio.NewReader(io.LimitReader(conn, s.gw.opts.MaxPayloadBytes+1))

	line, err := r.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return types.SocketReply{Error: fmt.Sprintf("read: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.gw.SubmitRaw(ctx, line)
	if err != nil {
		return types.SocketReply{Error: err.Error()}
	}

	return types.SocketReply{OK: true, ID: res.Item.ID, WasNew: res.WasNew}
}

// Push 连接本地 socket 发送一个事件并读取回复，供 CLI 使用.
func Push(ctx context.Context, network, address string, ev types.Event) (*types.SocketReply, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	data, err := sonic.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("send event: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read reply: %w", err)
	}

	var reply types.SocketReply
	if err := sonic.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	return &reply, nil
}
