package handshake

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-gridauth/internal/core/wire"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// ============================================================================
//                              Open
// ============================================================================

func TestOpen_BadOpenCode(t *testing.T) {
	conn := newFakeConn([]byte{byte(types.ReplyRefused), 0, 0, 0, 1})
	s, err := NewServerSession(conn, types.ModeClientToServer, types.VersionCurrent, opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)

	err = s.Open()
	assert.ErrorIs(t, err, types.ErrProtocolMismatch)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, types.ReplyRefused, s.Code())
	t.Log("✅ 错误的开场码返回协议不匹配")
}

func TestOpen_EOF(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"truncated timeout", []byte{byte(types.ReplyOK), 0, 0}},
		{"missing options", frame(t, types.VersionCurrent, func(w *wire.Writer) {
			w.AddByte(byte(types.ReplyOK))
			w.AddInt32(1)
			w.AddMember(clientMember)
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewServerSession(newFakeConn(tt.in), types.ModeClientToServer, types.VersionCurrent,
				opts(plainMaterial(), mockAuthority(false, nil)))
			require.NoError(t, err)
			err = s.Open()
			assert.ErrorIs(t, err, types.ErrTransport)
			assert.Equal(t, StateFailed, s.State())
		})
	}
}

func TestOpen_PreservesOverrideBits(t *testing.T) {
	in := frame(t, types.VersionCurrent, func(w *wire.Writer) {
		opening(w, 0xA6) // 1010_0110：合并 off，高位保留
		w.AddByte(byte(types.SecurityNone))
	})
	s, err := NewServerSession(newFakeConn(in), types.ModeClientToServer, types.VersionCurrent,
		opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)

	require.NoError(t, s.Open())
	assert.Equal(t, types.ClientOptions(0xA6), s.Options())
	assert.Equal(t, types.ConflationOff, s.Conflation())
	assert.Equal(t, int32(10000), s.ClientReadTimeout())
	assert.Equal(t, clientMember, s.Membership())
	assert.Equal(t, StateCredentialsResolved, s.State())
	assert.False(t, s.HasCredentials())
	t.Log("✅ 选项字节高位原样保留")
}

func TestOpen_IllegalConflationInOverrides(t *testing.T) {
	in := frame(t, types.VersionCurrent, func(w *wire.Writer) {
		opening(w, 0x03)
		w.AddByte(byte(types.SecurityNone))
	})
	s, err := NewServerSession(newFakeConn(in), types.ModeClientToServer, types.VersionCurrent,
		opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Open(), types.ErrProtocolMismatch)
}

func TestOpen_OldClientConflationByte(t *testing.T) {
	tests := []struct {
		b       byte
		want    types.Conflation
		wantErr bool
	}{
		{0, types.ConflationDefault, false},
		{1, types.ConflationOn, false},
		{2, types.ConflationOff, false},
		{3, 0, true},
		{0x41, 0, true},
	}
	for _, tt := range tests {
		in := frame(t, types.VersionGFE58, func(w *wire.Writer) {
			opening(w, tt.b)
			w.AddByte(byte(types.SecurityNone))
		})
		s, err := NewServerSession(newFakeConn(in), types.ModeClientToServer, types.VersionGFE58,
			opts(plainMaterial(), mockAuthority(false, nil)))
		require.NoError(t, err)

		err = s.Open()
		if tt.wantErr {
			assert.ErrorIs(t, err, types.ErrProtocolMismatch, "byte %d", tt.b)
			continue
		}
		require.NoError(t, err, "byte %d", tt.b)
		assert.Equal(t, tt.want, s.Conflation())
	}
}

func TestOpen_UnknownSecurityMode(t *testing.T) {
	in := frame(t, types.VersionCurrent, func(w *wire.Writer) {
		opening(w, 0)
		w.AddByte(9)
	})
	s, err := NewServerSession(newFakeConn(in), types.ModeClientToServer, types.VersionCurrent,
		opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Open(), types.ErrProtocolMismatch)
}

func TestOpen_CredentialsRequiredBeforeCrypto(t *testing.T) {
	// 模式字节之后没有任何数据：必须在读取更多字节之前报告缺少凭证
	in := frame(t, types.VersionCurrent, func(w *wire.Writer) {
		opening(w, 0)
		w.AddByte(byte(types.SecurityNone))
	})
	for _, mode := range []types.CommunicationMode{types.ModeClientToServer, types.ModeGatewayToGateway} {
		conn := newFakeConn(in)
		s, err := NewServerSession(conn, mode, types.VersionCurrent, opts(plainMaterial(), mockAuthority(true, nil)))
		require.NoError(t, err)

		err = s.Open()
		assert.ErrorIs(t, err, types.ErrCredentialsRequired, mode.String())
		assert.NotErrorIs(t, err, types.ErrTransport)
		assert.Zero(t, conn.out.Len(), "nothing written before refusal")
	}
	t.Log("✅ 要求认证且模式为 NONE 时先于任何密码操作报告缺少凭证")
}

func TestOpen_Delegated(t *testing.T) {
	in := frame(t, types.VersionCurrent, func(w *wire.Writer) {
		opening(w, 0)
		w.AddByte(byte(types.SecurityDelegated))
	})
	s, err := NewServerSession(newFakeConn(in), types.ModePrimaryServerToClient, types.VersionCurrent,
		opts(plainMaterial(), mockAuthority(true, nil)))
	require.NoError(t, err)

	require.NoError(t, s.Open())
	assert.Equal(t, types.SecurityDelegated, s.SecurityMode())
	assert.Nil(t, s.Credentials())
}

func TestOpen_PlainProofOnlyReadsNoBag(t *testing.T) {
	in := frame(t, types.VersionCurrent, func(w *wire.Writer) {
		opening(w, 0)
		w.AddByte(byte(types.SecurityPlain))
	})
	conn := newFakeConn(in)
	s, err := NewServerSession(conn, types.ModeClientToServer, types.VersionCurrent,
		opts(plainMaterial(), mockAuthority(true, nil)))
	require.NoError(t, err)

	require.NoError(t, s.Open())
	assert.False(t, s.PayloadBearing())
	assert.Nil(t, s.Credentials())
	assert.Zero(t, conn.in.Len())
}

func TestOpen_PlainBagDiscardedWhenNotRequired(t *testing.T) {
	in := frame(t, types.VersionGFE61, func(w *wire.Writer) {
		opening(w, 0)
		w.AddByte(byte(types.SecurityPlain))
		w.AddProperties(types.Properties{"security-username": "u"})
	})
	conn := newFakeConn(in)
	s, err := NewServerSession(conn, types.ModeClientToServer, types.VersionGFE61,
		opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)

	require.NoError(t, s.Open())
	assert.True(t, s.PayloadBearing())
	assert.Nil(t, s.Credentials())
	assert.Zero(t, conn.in.Len(), "bag consumed")
}

func TestOpen_WrongRole(t *testing.T) {
	s, err := NewClientSession(newFakeConn(nil), types.ModeClientToServer, opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Open(), ErrInvalidState)
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewServerSession(newFakeConn(nil), types.ModeClientToServer, types.VersionCurrent, Options{Authority: mockAuthority(false, nil)})
	assert.ErrorIs(t, err, ErrNoMaterial)

	_, err = NewServerSession(newFakeConn(nil), types.ModeClientToServer, types.VersionCurrent, Options{Material: plainMaterial()})
	assert.ErrorIs(t, err, ErrNoAuthority)

	_, err = NewServerSession(newFakeConn(nil), types.CommunicationMode(7), types.VersionCurrent, opts(plainMaterial(), mockAuthority(false, nil)))
	assert.ErrorIs(t, err, types.ErrProtocolMismatch)
}

// ============================================================================
//                              读超时
// ============================================================================

func TestOpen_ScopedReadDeadline(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	in := frame(t, types.VersionCurrent, func(w *wire.Writer) {
		opening(w, 0)
		w.AddByte(byte(types.SecurityNone))
	})

	for _, wantErr := range []bool{false, true} {
		data := in
		if wantErr {
			data = in[:3]
		}
		conn := newFakeConn(data)
		o := opts(plainMaterial(), mockAuthority(false, nil))
		o.ReadTimeout = 7 * time.Second
		o.Clock = mock
		s, err := NewServerSession(conn, types.ModeClientToServer, types.VersionCurrent, o)
		require.NoError(t, err)

		err = s.Open()
		assert.Equal(t, wantErr, err != nil)
		require.Len(t, conn.deadlines, 2)
		assert.Equal(t, mock.Now().Add(7*time.Second), conn.deadlines[0])
		assert.True(t, conn.deadlines[1].IsZero(), "deadline cleared")
	}
	t.Log("✅ 读超时在作用域结束时清除，无论成功与否")
}

func TestNoReadTimeoutLeavesDeadlineAlone(t *testing.T) {
	in := frame(t, types.VersionCurrent, func(w *wire.Writer) {
		opening(w, 0)
		w.AddByte(byte(types.SecurityNone))
	})
	conn := newFakeConn(in)
	o := opts(plainMaterial(), mockAuthority(false, nil))
	o.ReadTimeout = 0
	s, err := NewServerSession(conn, types.ModeClientToServer, types.VersionCurrent, o)
	require.NoError(t, err)

	require.NoError(t, s.Open())
	assert.Empty(t, conn.deadlines)
}

// ============================================================================
//                              加解密与模板
// ============================================================================

func TestEncryptBytes_IdentityWithoutDH(t *testing.T) {
	for _, mode := range []types.SecurityMode{types.SecurityNone, types.SecurityPlain, types.SecurityDelegated} {
		s, err := NewServerSession(newFakeConn(nil), types.ModeClientToServer, types.VersionCurrent,
			opts(plainMaterial(), mockAuthority(false, nil)))
		require.NoError(t, err)
		s.secureMode = mode

		data := []byte("opaque credential bytes")
		enc, err := s.EncryptBytes(data)
		require.NoError(t, err)
		assert.Equal(t, data, enc)
		dec, err := s.DecryptBytes(data)
		require.NoError(t, err)
		assert.Equal(t, data, dec)
	}
}

func TestEncryptBytes_DHWithoutPeerKey(t *testing.T) {
	s, err := NewServerSession(newFakeConn(nil), types.ModeClientToServer, types.VersionCurrent,
		opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)
	s.secureMode = types.SecurityDHEncrypted

	_, err = s.EncryptBytes([]byte("x"))
	assert.ErrorIs(t, err, ErrNoPeerKey)
}

func TestTemplate_NewSession(t *testing.T) {
	in := frame(t, types.VersionGFE61, func(w *wire.Writer) {
		opening(w, 0x05)
		w.AddByte(byte(types.SecurityPlain))
		w.AddProperties(types.Properties{"security-username": "u", "security-password": "p"})
	})
	m := plainMaterial()
	a := mockAuthority(true, nil)
	s, err := NewServerSession(newFakeConn(in), types.ModeClientToServer, types.VersionGFE61, opts(m, a))
	require.NoError(t, err)
	require.NoError(t, s.Open())
	_, err = s.Verify()
	require.NoError(t, err)

	tmpl := s.Template()
	next, err := tmpl.NewSession(newFakeConn(nil), opts(m, a))
	require.NoError(t, err)

	assert.NotEqual(t, s.ID(), next.ID())
	assert.Equal(t, StateCredentialsResolved, next.State())
	assert.Equal(t, s.Version(), next.Version())
	assert.Equal(t, s.Options(), next.Options())
	assert.Equal(t, s.Membership(), next.Membership())
	assert.Equal(t, s.Credentials(), next.Credentials())
	assert.Equal(t, s.Principal(), next.Principal())
	assert.Equal(t, types.SecurityNone, next.SecurityMode())
	assert.Nil(t, next.ciphers)

	// 模板持有副本，修改原会话凭证不影响新会话
	s.credentials["security-password"] = "changed"
	assert.Equal(t, "p", next.Credentials()["security-password"])
	t.Log("✅ 模板创建的会话携带身份字段且密码缓存为空")
}

func TestVerify_WrongState(t *testing.T) {
	s, err := NewServerSession(newFakeConn(nil), types.ModeClientToServer, types.VersionCurrent,
		opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)

	_, err = s.Verify()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, s.Accept(AcceptParams{}), ErrInvalidState)
}

func TestSession_String(t *testing.T) {
	s, err := NewServerSession(newFakeConn(nil), types.ModeGatewayToGateway, types.VersionGFE80,
		opts(plainMaterial(), mockAuthority(false, nil)))
	require.NoError(t, err)

	str := s.String()
	assert.Contains(t, str, "role=server")
	assert.Contains(t, str, "state=await-open-code")
	assert.Contains(t, str, "GatewayToGateway")
	assert.Contains(t, str, "GFE_80")
	assert.False(t, s.IsOK())
}
