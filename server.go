package gridauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/core/handshake"
	"github.com/dep2p/go-gridauth/internal/core/metrics"
	"github.com/dep2p/go-gridauth/internal/util/logger"
	"github.com/dep2p/go-gridauth/pkg/types"
)

var log = logger.Logger("gridauth")

// metricsReadHeaderTimeout 指标 HTTP 服务读请求头超时
const metricsReadHeaderTimeout = 10 * time.Second

// ConnHandler 处理握手成功的连接
//
// session 已进入 Established，可继续用于 EncryptBytes / DecryptBytes。
type ConnHandler func(ctx context.Context, conn net.Conn, session *handshake.Session)

// closeHandler 默认处理：记录后关闭连接
func closeHandler(_ context.Context, conn net.Conn, session *handshake.Session) {
	log.Debug("连接已认证，关闭", "session", session.String())
	_ = conn.Close()
}

// Server 缓存层握手服务端
//
// 监听 TCP 地址，对每个入站连接执行服务端握手。
type Server struct {
	cfg     *config.Config
	app     *fx.App
	handler ConnHandler
	limiter *rate.Limiter

	// 由 fx 注入
	acceptor *handshake.Acceptor
	traffic  *metrics.TrafficCounter
	gatherer prometheus.Gatherer

	mu          sync.Mutex
	running     bool
	ln          net.Listener
	metricsAddr net.Addr
	httpSrv     *http.Server
	cancel      context.CancelFunc
	group       *errgroup.Group
}

// New 创建服务端
//
// 服务端创建后处于未启动状态，调用 Start 开始监听。
func New(opts ...Option) (*Server, error) {
	o := newOptions()
	if err := o.apply(opts...); err != nil {
		return nil, fmt.Errorf("apply options: %w", err)
	}
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	s := &Server{
		cfg:     o.config,
		handler: o.handler,
	}
	if hc := o.config.Handshake; hc.AcceptRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(hc.AcceptRate), hc.AcceptBurst)
	}

	app := buildFxApp(o, s)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	s.app = app
	return s, nil
}

// Start 启动各模块并开始监听
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()
	return s.app.Start(ctx)
}

// Stop 停止监听并等待在途连接处理结束
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.mu.Unlock()
	return s.app.Stop(ctx)
}

// Addr 实际监听地址，未启动时为 nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// MetricsAddr 指标 HTTP 服务地址，未开启时为 nil
func (s *Server) MetricsAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsAddr
}

// Member 写入应答的服务端成员标识
func (s *Server) Member() types.MemberID {
	return s.acceptor.Member()
}

// Stats 连接流量统计，指标关闭时为零值
func (s *Server) Stats() metrics.Stats {
	if s.traffic == nil {
		return metrics.Stats{}
	}
	return s.traffic.Totals()
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// start 由 fx OnStart 调用
func (s *Server) start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Handshake.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Handshake.ListenAddr, err)
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	group := new(errgroup.Group)
	group.Go(func() error { return s.Serve(serveCtx, ln) })

	var (
		httpSrv     *http.Server
		metricsAddr net.Addr
	)
	if addr := s.cfg.Metrics.ListenAddr; addr != "" && s.gatherer != nil {
		mln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			cancel()
			return multierr.Append(fmt.Errorf("listen metrics %s: %w", addr, err), group.Wait())
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadHeaderTimeout}
		metricsAddr = mln.Addr()
		group.Go(func() error {
			if err := httpSrv.Serve(mln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	s.mu.Lock()
	s.running = true
	s.ln = ln
	s.metricsAddr = metricsAddr
	s.httpSrv = httpSrv
	s.cancel = cancel
	s.group = group
	s.mu.Unlock()

	log.Info("服务端启动",
		"addr", ln.Addr().String(),
		"member", s.acceptor.Member().String(),
		"acceptRate", s.cfg.Handshake.AcceptRate,
		"metrics", metricsAddr != nil)
	return nil
}

// stop 由 fx OnStop 调用
func (s *Server) stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, httpSrv, group := s.cancel, s.httpSrv, s.group
	s.running = false
	s.ln = nil
	s.metricsAddr = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	var err error
	if httpSrv != nil {
		err = multierr.Append(err, httpSrv.Shutdown(ctx))
	}
	err = multierr.Append(err, group.Wait())

	st := s.Stats()
	log.Info("服务端停止",
		"connections", st.Connections,
		"bytesIn", st.TotalIn,
		"bytesOut", st.TotalOut)
	return err
}

// ════════════════════════════════════════════════════════════════════════════
//                              连接处理
// ════════════════════════════════════════════════════════════════════════════

// Serve 在 ln 上接受连接直到 ctx 结束或 ln 关闭
//
// 每个连接在独立的 goroutine 中握手，返回前等待所有连接处理结束。
// ctx 结束时 ln 会被关闭，此时返回 nil。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stopClose := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stopClose()

	var conns errgroup.Group
	defer func() { _ = conns.Wait() }()

	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		conns.Go(func() error {
			s.handle(ctx, conn)
			return nil
		})
	}
}

// handle 完成一次服务端握手，成功后交给 handler
func (s *Server) handle(ctx context.Context, raw net.Conn) {
	conn := s.traffic.Wrap(raw)
	remote := raw.RemoteAddr().String()

	// 停止时中断尚未完成的握手
	abort := context.AfterFunc(ctx, func() { _ = raw.Close() })
	out, session, err := s.acceptor.Process(conn)
	if !abort() {
		return
	}
	switch {
	case err != nil:
		log.Debug("握手失败", "remote", remote, "err", err)
		_ = conn.Close()
		return
	case out.Status != handshake.StatusAccepted:
		log.Info("握手被拒绝", "remote", remote, "code", out.Code.String(), "reason", out.Reason)
		_ = conn.Close()
		return
	}

	principal := ""
	if out.Principal != nil {
		principal = out.Principal.Name()
	}
	log.Info("握手完成",
		"remote", remote,
		"mode", out.Mode.String(),
		"member", session.Membership().String(),
		"principal", principal)
	s.handler(ctx, conn, session)
}
