package handshake

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/core/security"
	"github.com/dep2p/go-gridauth/internal/core/wire"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
	"github.com/dep2p/go-gridauth/tests/mocks"
)

var (
	clientMember = types.MemberID("client-member-1")
	serverMember = types.MemberID("server-member-1")
)

// fakeConn 内存连接：从 in 读取，写入 out，并记录读超时设置
type fakeConn struct {
	in        *bytes.Reader
	out       bytes.Buffer
	deadlines []time.Time
}

func newFakeConn(in []byte) *fakeConn {
	return &fakeConn{in: bytes.NewReader(in)}
}

func (c *fakeConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *fakeConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	return nil
}

// frame 使用 wire.Writer 构造线上字节
func frame(t *testing.T, version types.Version, fn func(w *wire.Writer)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := wire.NewWriter(&buf, version)
	fn(w)
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

// opening 写出服务端 Open 期望的开场字段（不含凭证）
func opening(w *wire.Writer, options byte) {
	w.AddByte(byte(types.ReplyOK))
	w.AddInt32(10000)
	w.AddMember(clientMember)
	w.AddByte(options)
}

func opts(m *security.Material, a interfaces.CredentialAuthority) Options {
	return Options{Material: m, Authority: a, ReadTimeout: 5 * time.Second}
}

func plainMaterial() *security.Material {
	return security.NewMaterialForTest("", nil)
}

// pipe 返回一对内存连接，测试结束时关闭
func pipe(t *testing.T) (client, server net.Conn) {
	t.Helper()
	client, server = net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// endToEnd 一次完整的客户端/服务端握手结果
type endToEnd struct {
	outcome       Outcome
	serverSession *Session
	serverErr     error

	clientSession *Session
	reply         AcceptReply
	clientErr     error
}

type side struct {
	material  *security.Material
	authority interfaces.CredentialAuthority
}

// runHandshake 通过 net.Pipe 驱动 Acceptor 与 ClientHandshake
func runHandshake(t *testing.T, mode types.CommunicationMode, clientVersion types.Version, client, server side, recorder interfaces.HandshakeRecorder) endToEnd {
	t.Helper()
	cc, sc := pipe(t)

	cfg := handshakeConfig()
	acceptor := NewAcceptor(cfg, server.material, server.authority, recorder, serverMember)

	var res endToEnd
	var g errgroup.Group
	g.Go(func() error {
		defer sc.Close()
		res.outcome, res.serverSession, res.serverErr = acceptor.Process(sc)
		return nil
	})
	g.Go(func() error {
		defer cc.Close()
		o := Opening{ReadTimeout: 10000, Member: clientMember, Options: types.ClientOptions(0x14).WithConflation(types.ConflationOn)}
		co := opts(client.material, client.authority)
		co.Version = clientVersion
		res.clientSession, res.reply, res.clientErr = ClientHandshake(cc, mode, o, co)
		return nil
	})
	require.NoError(t, g.Wait())
	return res
}

func mockAuthority(required bool, creds types.Properties) *mocks.MockCredentialAuthority {
	return &mocks.MockCredentialAuthority{Required: required, Credentials: creds}
}

func handshakeConfig() config.HandshakeConfig {
	cfg := config.DefaultHandshakeConfig().WithReadTimeout(5 * time.Second)
	cfg.EndpointType = 2
	cfg.QueueSize = 128
	cfg.DistributedSystemID = 7
	cfg.PDXRegistrySize = 42
	return cfg
}
