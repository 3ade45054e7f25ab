package handshake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/core/credential"
	"github.com/dep2p/go-gridauth/internal/core/security"
	"github.com/dep2p/go-gridauth/internal/core/wire"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
	"github.com/dep2p/go-gridauth/tests/mocks"
)

// resolved 通过模板创建处于 CredentialsResolved 的会话
func resolved(t *testing.T, role Role, mode types.CommunicationMode, version types.Version, conn Conn) *Session {
	t.Helper()
	tmpl := &Template{Role: role, Mode: mode, Version: version, Member: clientMember}
	s, err := tmpl.NewSession(conn, opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)
	return s
}

// ============================================================================
//                              Accept 字段
// ============================================================================

func TestAccept_FieldsByVersion(t *testing.T) {
	tests := []struct {
		name          string
		mode          types.CommunicationMode
		clientVersion types.Version
		serverVersion types.Version
		wantLen       int
		wantDelta     bool
		wantDSID      int8
		wantPDX       int32
	}{
		{"client GFE58", types.ModeClientToServer, types.VersionGFE58, types.VersionCurrent, 24, false, -1, 0},
		{"client GFE61", types.ModeClientToServer, types.VersionGFE61, types.VersionCurrent, 25, true, -1, 0},
		{"wan GFE65", types.ModeGatewayToGateway, types.VersionGFE65, types.VersionCurrent, 25, false, -1, 0},
		{"wan GFE66", types.ModeGatewayToGateway, types.VersionGFE66, types.VersionCurrent, 26, false, 7, 0},
		{"wan current", types.ModeGatewayToGateway, types.VersionCurrent, types.VersionCurrent, 30, false, 7, 42},
		{"wan server GFE70", types.ModeGatewayToGateway, types.VersionCurrent, types.VersionGFE70, 26, false, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeConn(nil)
			s := resolved(t, RoleServer, tt.mode, tt.clientVersion, server)
			require.NoError(t, s.Accept(AcceptParams{
				EndpointType:        2,
				QueueSize:           128,
				ServerMember:        serverMember,
				ServerVersion:       tt.serverVersion,
				DeltaPropagation:    true,
				DistributedSystemID: 7,
				PDXRegistrySize:     42,
			}))
			assert.Equal(t, StateEstablished, s.State())
			assert.Equal(t, types.ReplyOK, s.Code())
			assert.Equal(t, tt.wantLen, server.out.Len())

			client := newFakeConn(server.out.Bytes())
			c := resolved(t, RoleClient, tt.mode, tt.clientVersion, client)
			reply, err := c.ReadAcceptReply()
			require.NoError(t, err)
			assert.Zero(t, client.in.Len(), "every byte consumed")

			assert.Equal(t, types.ReplyOK, reply.Code)
			assert.Equal(t, byte(2), reply.EndpointType)
			assert.Equal(t, int32(128), reply.QueueSize)
			assert.Equal(t, serverMember, reply.ServerMember)
			assert.Equal(t, tt.wantDelta, reply.DeltaPropagation)
			assert.Equal(t, tt.wantDSID, reply.DistributedSystemID)
			assert.Equal(t, tt.wantPDX, reply.PDXRegistrySize)
			if tt.mode.IsWAN() {
				assert.Equal(t, tt.serverVersion, reply.ServerVersion)
			}
		})
	}
}

func TestAccept_WANRelayAcquireFailureSendsNone(t *testing.T) {
	server := newFakeConn(nil)
	authority := &mocks.MockCredentialAuthority{
		Required: true,
		AcquireFunc: func(types.MemberID, bool) (types.Properties, error) {
			return nil, errors.New("vault unavailable")
		},
	}
	tmpl := &Template{Role: RoleServer, Mode: types.ModeGatewayToGateway, Version: types.VersionCurrent,
		Member: clientMember, Principal: types.NamedPrincipal("site-a")}
	s, err := tmpl.NewSession(server, opts(plainMaterial(), authority))
	require.NoError(t, err)

	require.NoError(t, s.Accept(AcceptParams{ServerMember: serverMember, DistributedSystemID: 3}))
	assert.Equal(t, types.ReplyWANCredentials, s.Code())

	r := wire.NewReader(bytes.NewReader(server.out.Bytes()), types.VersionCurrent)
	code, _ := r.ReadByte()
	assert.Equal(t, byte(types.ReplyWANCredentials), code)
	_, _ = r.ReadVersionOrdinal()
	_, _ = r.ReadByte()
	_, _ = r.ReadInt32()
	_, _ = r.ReadMember()
	_, _ = r.ReadUTF()
	mode, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(types.SecurityNone), mode)
	dsid, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(3), dsid)
}

// ============================================================================
//                              Refuse / 拒绝码映射
// ============================================================================

func TestReadAcceptReply_Refusals(t *testing.T) {
	refusal := func(mode types.CommunicationMode, code types.ReplyCode, withVersion bool, message string) []byte {
		return frame(t, types.VersionCurrent, func(w *wire.Writer) {
			w.AddByte(byte(code))
			if withVersion {
				w.AddVersionOrdinal(types.VersionCurrent)
			}
			w.AddByte(0)
			w.AddInt32(0)
			w.AddMember(serverMember)
			w.AddUTF(message)
		})
	}

	tests := []struct {
		name    string
		mode    types.CommunicationMode
		in      []byte
		want    error
		code    types.ReplyCode
		message string
	}{
		{"auth required", types.ModeClientToServer,
			refusal(types.ModeClientToServer, types.ReplyAuthRequired, false, "no security credentials are provided"),
			types.ErrCredentialsRequired, types.ReplyAuthRequired, ""},
		{"auth failed", types.ModeClientToServer,
			refusal(types.ModeClientToServer, types.ReplyAuthFailed, false, "bad password"),
			types.ErrAuthenticationFailed, types.ReplyAuthFailed, ""},
		{"refused", types.ModeClientToServer,
			refusal(types.ModeClientToServer, types.ReplyRefused, false, "server is shutting down"),
			types.ErrConnectionRefused, types.ReplyRefused, "server is shutting down"},
		{"duplicate durable", types.ModeClientToServer,
			refusal(types.ModeClientToServer, types.ReplyDuplicateDurableClient, false, "durable client already connected"),
			types.ErrConnectionRefused, types.ReplyDuplicateDurableClient, "durable client already connected"},
		{"ok with message", types.ModeClientToServer,
			refusal(types.ModeClientToServer, types.ReplyOK, false, "unexpected"),
			types.ErrConnectionRefused, types.ReplyOK, "unexpected"},
		{"invalid empty message", types.ModeClientToServer,
			refusal(types.ModeClientToServer, types.ReplyInvalid, false, ""),
			types.ErrConnectionRefused, types.ReplyInvalid, ""},
		{"wan refused", types.ModeGatewayToGateway,
			refusal(types.ModeGatewayToGateway, types.ReplyRefused, true, "site not allowed"),
			types.ErrConnectionRefused, types.ReplyRefused, "site not allowed"},
		{"wan auth failed", types.ModeGatewayToGateway,
			refusal(types.ModeGatewayToGateway, types.ReplyAuthFailed, false, "bad site"),
			types.ErrAuthenticationFailed, types.ReplyAuthFailed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn(tt.in)
			c := resolved(t, RoleClient, tt.mode, types.VersionCurrent, conn)

			reply, err := c.ReadAcceptReply()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.code, reply.Code)
			assert.Equal(t, serverMember, reply.ServerMember)
			assert.Equal(t, StateFailed, c.State())
			assert.Zero(t, conn.in.Len())

			var refused *types.ConnectionRefusedError
			if errors.As(err, &refused) {
				assert.Equal(t, tt.code, refused.Code)
				assert.Equal(t, tt.message, refused.Message)
				assert.Equal(t, serverMember, refused.Member)
			}
		})
	}
}

func TestReadAcceptReply_ServerIsLocator(t *testing.T) {
	conn := newFakeConn([]byte{byte(types.ReplyServerIsLocator)})
	c := resolved(t, RoleClient, types.ModeClientToServer, types.VersionCurrent, conn)

	reply, err := c.ReadAcceptReply()
	assert.ErrorIs(t, err, types.ErrConnectionRefused)
	assert.Equal(t, types.ReplyServerIsLocator, reply.Code)
	assert.Contains(t, err.Error(), "locator")
}

func TestReadAcceptReply_Truncated(t *testing.T) {
	conn := newFakeConn([]byte{byte(types.ReplyOK), 2})
	c := resolved(t, RoleClient, types.ModeClientToServer, types.VersionCurrent, conn)

	_, err := c.ReadAcceptReply()
	assert.ErrorIs(t, err, types.ErrTransport)
}

func TestRefuse_RoundTrip(t *testing.T) {
	for _, mode := range []types.CommunicationMode{types.ModeClientToServer, types.ModeGatewayToGateway} {
		for _, code := range []types.ReplyCode{types.ReplyRefused, types.ReplyAuthRequired, types.ReplyAuthFailed} {
			t.Run(fmt.Sprintf("%s/%s", mode, code), func(t *testing.T) {
				server := newFakeConn(nil)
				s := resolved(t, RoleServer, mode, types.VersionCurrent, server)
				require.NoError(t, s.Refuse(code, "go away", serverMember))
				assert.Equal(t, StateFailed, s.State())

				client := newFakeConn(server.out.Bytes())
				c := resolved(t, RoleClient, mode, types.VersionCurrent, client)
				_, err := c.ReadAcceptReply()
				require.Error(t, err)
				assert.Zero(t, client.in.Len(), "client reads exactly what the server wrote")
				assert.Equal(t, code, c.Code())
			})
		}
	}
}

func TestRefuse_AfterEstablished(t *testing.T) {
	s := resolved(t, RoleServer, types.ModeClientToServer, types.VersionCurrent, newFakeConn(nil))
	require.NoError(t, s.Accept(AcceptParams{ServerMember: serverMember}))
	assert.ErrorIs(t, s.Refuse(types.ReplyRefused, "late", serverMember), ErrInvalidState)
}

func TestRefusalFor(t *testing.T) {
	code, msg, ok := refusalFor(types.NewCredentialsRequired("need creds", nil))
	assert.True(t, ok)
	assert.Equal(t, types.ReplyAuthRequired, code)
	assert.Equal(t, "need creds", msg)

	code, _, ok = refusalFor(fmt.Errorf("wrapped: %w", types.NewAuthFailed("", errors.New("boom"))))
	assert.True(t, ok)
	assert.Equal(t, types.ReplyAuthFailed, code)

	_, _, ok = refusalFor(types.NewTransportError("read", io.EOF))
	assert.False(t, ok)
}

// ============================================================================
//                              前导
// ============================================================================

func TestPreamble_RoundTrip(t *testing.T) {
	for _, v := range []types.Version{types.VersionGFE57, types.VersionGFE80, types.VersionCurrent, {Ordinal: 300}} {
		var buf bytes.Buffer
		require.NoError(t, WritePreamble(&buf, types.ModeGatewayToGateway, v))
		buf.WriteString("trailing")

		mode, got, err := ReadPreamble(&buf)
		require.NoError(t, err)
		assert.Equal(t, types.ModeGatewayToGateway, mode)
		assert.Equal(t, v.Ordinal, got.Ordinal)
		assert.Equal(t, "trailing", buf.String(), "nothing beyond the preamble consumed")
	}
}

func TestPreamble_Invalid(t *testing.T) {
	_, _, err := ReadPreamble(bytes.NewReader([]byte{42, 1}))
	assert.ErrorIs(t, err, types.ErrProtocolMismatch)

	_, _, err = ReadPreamble(bytes.NewReader([]byte{byte(types.ModeClientToServer), 0}))
	assert.ErrorIs(t, err, types.ErrProtocolMismatch)

	_, _, err = ReadPreamble(bytes.NewReader([]byte{byte(types.ModeClientToServer)}))
	assert.ErrorIs(t, err, types.ErrTransport)
}

func TestAcceptor_BadPreamble(t *testing.T) {
	recorder := &mocks.MockRecorder{}
	a := NewAcceptor(handshakeConfig(), plainMaterial(), mockAuthority(false, nil), recorder, serverMember)

	out, s, err := a.Process(newFakeConn([]byte{7, 1}))
	assert.ErrorIs(t, err, types.ErrProtocolMismatch)
	assert.Nil(t, s)
	assert.Equal(t, StatusFailed, out.Status)

	records, errs := recorder.Snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, "failed", records[0].Status)
	assert.Equal(t, []string{"server/protocol_mismatch"}, errs)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{types.NewTransportError("read", io.EOF), "transport"},
		{types.NewProtocolMismatch("x"), "protocol_mismatch"},
		{types.NewCredentialsRequired("x", nil), "credentials_required"},
		{types.NewAuthFailed("x", nil), "authentication_failed"},
		{&types.ConnectionRefusedError{Code: types.ReplyRefused}, "connection_refused"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}

// ============================================================================
//                              fx 模块
// ============================================================================

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Handshake = handshakeConfig()

	var a *Acceptor
	app := fxtest.New(t,
		fx.Supply(cfg),
		security.Module(),
		credential.Module(),
		Module(),
		fx.Populate(&a),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, a)
	assert.Contains(t, string(a.Member()), "gridauth-")

	res := func() endToEnd {
		cc, sc := pipe(t)
		var r endToEnd
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer sc.Close()
			r.outcome, r.serverSession, r.serverErr = a.Process(sc)
		}()
		o := Opening{ReadTimeout: 1000, Member: clientMember}
		r.clientSession, r.reply, r.clientErr = ClientHandshake(cc, types.ModeClientToServer, o,
			opts(plainMaterial(), mockAuthority(false, nil)))
		cc.Close()
		<-done
		return r
	}()
	require.NoError(t, res.clientErr)
	require.NoError(t, res.serverErr)
	assert.Equal(t, a.Member(), res.reply.ServerMember)
}

func TestModule_NamedMember(t *testing.T) {
	var a *Acceptor
	app := fxtest.New(t,
		fx.Supply(plainMaterial()),
		fx.Provide(fx.Annotate(func() *mocks.MockCredentialAuthority { return mockAuthority(false, nil) },
			fx.As(new(interfaces.CredentialAuthority)))),
		fx.Supply(fx.Annotated{Name: "server_member", Target: serverMember}),
		Module(),
		fx.Populate(&a),
	)
	defer app.RequireStart().RequireStop()

	assert.Equal(t, serverMember, a.Member())
}
