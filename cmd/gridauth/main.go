// Package main 提供 gridauth 命令行入口
//
// 子命令：
//
//	gridauth serve   启动握手服务端
//	gridauth connect 作为客户端连接服务端并打印应答
//	gridauth version 显示版本信息
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-gridauth"
	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/util/logger"
	"github.com/dep2p/go-gridauth/pkg/types"
)

var log = logger.Logger("cmd")

// stopTimeout 收到退出信号后等待服务端停止的时间
const stopTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		printHelp(out)
		return errors.New("缺少子命令")
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:], out)
	case "connect":
		return runConnect(args[1:], out)
	case "version", "-version", "--version":
		fmt.Fprintln(out, gridauth.VersionInfo())
		return nil
	case "help", "-h", "-help", "--help":
		printHelp(out)
		return nil
	default:
		printHelp(out)
		return fmt.Errorf("未知子命令 %q", args[0])
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 公共参数
// ═══════════════════════════════════════════════════════════════════════════

// commonFlags 两个子命令共用的参数
type commonFlags struct {
	configFile string
	propsFile  string
	logLevel   string
	member     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "JSON 配置文件路径")
	fs.StringVar(&c.propsFile, "props", "", "安全属性文件路径（security-* 属性）")
	fs.StringVar(&c.logLevel, "log-level", "", "日志级别，如 info 或 handshake=debug,info")
	fs.StringVar(&c.member, "member", "", "本端成员标识（默认随机生成）")
}

// loadConfig 按 -config、-props 的顺序加载配置，都未指定时使用默认配置
func (c *commonFlags) loadConfig() (*config.Config, error) {
	switch {
	case c.configFile != "" && c.propsFile != "":
		return nil, errors.New("-config 与 -props 不能同时指定")
	case c.configFile != "":
		return config.LoadFile(c.configFile)
	case c.propsFile != "":
		return config.LoadProperties(c.propsFile)
	default:
		return config.NewConfig(), nil
	}
}

func (c *commonFlags) memberID() types.MemberID {
	if c.member != "" {
		return types.MemberID(c.member)
	}
	return types.MemberID("gridauth-" + uuid.NewString())
}

// isFlagSet 检查参数是否被显式设置
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// ═══════════════════════════════════════════════════════════════════════════
// serve
// ═══════════════════════════════════════════════════════════════════════════

func runServe(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	listen := fs.String("listen", "", "监听地址（覆盖配置）")
	metricsAddr := fs.String("metrics-addr", "", "Prometheus 指标 HTTP 地址（覆盖配置）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if common.logLevel != "" {
		logger.Configure(common.logLevel)
	}

	cfg, err := common.loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	opts := []gridauth.Option{gridauth.WithConfig(cfg)}
	if *listen != "" {
		opts = append(opts, gridauth.WithListenAddr(*listen))
	}
	if isFlagSet(fs, "metrics-addr") {
		opts = append(opts, gridauth.WithMetricsAddr(*metricsAddr))
	}
	if common.member != "" {
		opts = append(opts, gridauth.WithServerMember(common.memberID()))
	}

	srv, err := gridauth.New(opts...)
	if err != nil {
		return fmt.Errorf("创建服务端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	log.Info("启动 gridauth 服务端", "version", gridauth.Version, "commit", gridauth.GitCommit)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}

	fmt.Fprintf(out, "📦 %s\n", gridauth.VersionInfo())
	fmt.Fprintf(out, "监听地址: %s\n", srv.Addr())
	fmt.Fprintf(out, "成员标识: %s\n", srv.Member())
	if addr := srv.MetricsAddr(); addr != nil {
		fmt.Fprintf(out, "指标地址: http://%s/metrics\n", addr)
	}
	fmt.Fprintln(out, "服务端已启动，按 Ctrl+C 退出")

	waitForSignal()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		return fmt.Errorf("停止失败: %w", err)
	}
	st := srv.Stats()
	fmt.Fprintf(out, "已停止：连接 %d，接收 %d 字节，发送 %d 字节\n", st.Connections, st.TotalIn, st.TotalOut)
	return nil
}

// waitForSignal 等待退出信号
func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
	signal.Stop(signals)
}

// ═══════════════════════════════════════════════════════════════════════════
// connect
// ═══════════════════════════════════════════════════════════════════════════

func runConnect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	addr := fs.String("addr", "127.0.0.1:40404", "服务端地址")
	mode := fs.String("mode", "client", "通信模式 (client/gateway)")
	user := fs.String("user", "", "用户名（覆盖 security-username）")
	password := fs.String("password", "", "密码（覆盖 security-password）")
	alg := fs.String("alg", "", "对称算法，如 AES:128（覆盖 security-client-dhalgo）")
	timeout := fs.Duration("timeout", 30*time.Second, "整个握手的超时")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if common.logLevel != "" {
		logger.Configure(common.logLevel)
	}

	cfg, err := common.loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	if *user != "" || *password != "" {
		cfg.Security = cfg.Security.WithCredentials(*user, *password)
	}
	if isFlagSet(fs, "alg") {
		cfg.Security = cfg.Security.WithAlgorithm(*alg)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	commMode, err := parseMode(*mode)
	if err != nil {
		return err
	}

	opts, err := gridauth.NewClientOptions(cfg, nil)
	if err != nil {
		return fmt.Errorf("加载安全材料失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	conn, err := gridauth.Dial(ctx, *addr, commMode, gridauth.NewOpening(cfg, common.memberID()), opts)
	if err != nil {
		return fmt.Errorf("握手失败: %w", err)
	}
	defer conn.Close()

	printReply(out, conn)
	return nil
}

// parseMode 解析通信模式
func parseMode(s string) (types.CommunicationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "client", "":
		return types.ModeClientToServer, nil
	case "gateway", "wan":
		return types.ModeGatewayToGateway, nil
	default:
		return 0, fmt.Errorf("未知通信模式 %q", s)
	}
}

// printReply 打印接受应答
func printReply(out io.Writer, conn *gridauth.Conn) {
	r := conn.Reply
	fmt.Fprintln(out, "握手成功")
	fmt.Fprintf(out, "  应答码:     %s\n", r.Code)
	fmt.Fprintf(out, "  安全模式:   %s\n", conn.Session.SecurityMode())
	fmt.Fprintf(out, "  服务端成员: %s\n", r.ServerMember)
	fmt.Fprintf(out, "  端点类型:   %d\n", r.EndpointType)
	fmt.Fprintf(out, "  队列大小:   %d\n", r.QueueSize)
	if conn.Session.CommunicationMode().IsWAN() {
		fmt.Fprintf(out, "  服务端版本: %s\n", r.ServerVersion)
		fmt.Fprintf(out, "  集群 ID:    %d\n", r.DistributedSystemID)
		fmt.Fprintf(out, "  PDX 注册表: %d\n", r.PDXRegistrySize)
		if r.PeerPrincipal != nil {
			fmt.Fprintf(out, "  对端主体:   %s\n", r.PeerPrincipal.Name())
		}
		return
	}
	fmt.Fprintf(out, "  增量传播:   %t\n", r.DeltaPropagation)
	if conn.Session.Algorithm().IsZero() {
		return
	}
	fmt.Fprintf(out, "  对称算法:   %s\n", conn.Session.Algorithm())
}

// printHelp 显示帮助信息
func printHelp(out io.Writer) {
	fmt.Fprintf(out, `%s

用法:
  gridauth serve   [-config FILE | -props FILE] [-listen ADDR] [-metrics-addr ADDR] [-member ID]
  gridauth connect [-config FILE | -props FILE] [-addr ADDR] [-mode client|gateway]
                   [-user NAME -password PASS] [-alg NAME[:keysize]] [-timeout DUR]
  gridauth version

环境变量:
  GRIDAUTH_LOG_LEVEL  日志级别，如 info 或 handshake=debug,info

示例:
  gridauth serve -props gfsecurity.properties -listen 0.0.0.0:40404
  gridauth connect -addr 127.0.0.1:40404 -user alice -password secret -alg AES:128
`, gridauth.VersionInfo())
}
