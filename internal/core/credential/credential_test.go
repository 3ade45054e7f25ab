package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"golang.org/x/crypto/bcrypt"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
	"github.com/dep2p/go-gridauth/tests/mocks"
)

var serverMember = types.MemberID("server-1")

// ============================================================================
//                              Registry
// ============================================================================

func TestRegistry_Duplicate(t *testing.T) {
	reg := NewRegistry()
	factory := func() interfaces.Authenticator { return &mocks.MockAuthenticator{} }

	require.NoError(t, reg.RegisterAuthenticator("ldap", factory))
	err := reg.RegisterAuthenticator("ldap", factory)
	assert.ErrorIs(t, err, ErrDuplicatePlugin)

	assert.ErrorIs(t, reg.RegisterAuthInit("", nil), ErrInvalidPlugin)

	_, err = reg.AuthInit("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)

	_, authenticators := reg.Names()
	assert.Equal(t, []string{"ldap"}, authenticators)
	t.Log("✅ 注册表拒绝重复与无效插件")
}

func TestRegistry_FactoryPerCall(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	require.NoError(t, reg.RegisterAuthInit("token", func() interfaces.AuthInitializer {
		calls++
		return &mocks.MockAuthInitializer{}
	}))

	a, err := reg.AuthInit("token")
	require.NoError(t, err)
	b, err := reg.AuthInit("token")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, calls)
}

// ============================================================================
//                              Acquire
// ============================================================================

func TestAcquire_UsernamePassword(t *testing.T) {
	cfg := config.DefaultSecurityConfig().WithCredentials("alice", "secret")
	a := NewAuthority(cfg, nil, nil)

	creds, err := a.Acquire(serverMember, false)
	require.NoError(t, err)
	assert.Equal(t, types.Properties{
		config.PropUsername: "alice",
		config.PropPassword: "secret",
	}, creds)
	t.Log("✅ 未配置 auth-init 时使用用户名密码")
}

func TestAcquire_PartialUsernamePassword(t *testing.T) {
	cfg := config.DefaultSecurityConfig()
	cfg.Properties = map[string]string{config.PropUsername: "alice"}
	a := NewAuthority(cfg, nil, nil)

	creds, err := a.Acquire(serverMember, false)
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestAcquire_Plugin(t *testing.T) {
	plugin := &mocks.MockAuthInitializer{Credentials: types.Properties{"token": "abc"}}
	reg := NewRegistry()
	require.NoError(t, reg.RegisterAuthInit("token", func() interfaces.AuthInitializer { return plugin }))

	cfg := config.DefaultSecurityConfig()
	cfg.AuthInit = "token"
	cfg.Properties = map[string]string{"security-token-file": "/tmp/t"}
	a := NewAuthority(cfg, reg, nil)

	creds, err := a.Acquire(serverMember, true)
	require.NoError(t, err)
	assert.Equal(t, types.Properties{"token": "abc"}, creds)

	assert.Equal(t, 1, plugin.InitCalls)
	assert.Equal(t, 1, plugin.CloseCalls)
	require.Len(t, plugin.GetCalls, 1)
	assert.True(t, plugin.GetCalls[0].IsPeer)
	assert.Equal(t, serverMember, plugin.GetCalls[0].Server)
	assert.Equal(t, "/tmp/t", plugin.GetCalls[0].Props["security-token-file"])
}

func TestAcquire_Failures(t *testing.T) {
	tests := []struct {
		name   string
		plugin *mocks.MockAuthInitializer
		want   error
	}{
		{
			name:   "init fails",
			plugin: &mocks.MockAuthInitializer{InitFunc: func() error { return errors.New("boom") }},
			want:   types.ErrCredentialsRequired,
		},
		{
			name: "get fails",
			plugin: &mocks.MockAuthInitializer{
				GetCredentialsFunc: func(types.Properties, types.MemberID, bool) (types.Properties, error) {
					return nil, errors.New("token expired")
				},
			},
			want: types.ErrCredentialsRequired,
		},
		{
			name: "security error passes through",
			plugin: &mocks.MockAuthInitializer{
				GetCredentialsFunc: func(types.Properties, types.MemberID, bool) (types.Properties, error) {
					return nil, types.NewAuthFailed("revoked", nil)
				},
			},
			want: types.ErrAuthenticationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, reg.RegisterAuthInit("p", func() interfaces.AuthInitializer { return tt.plugin }))
			cfg := config.DefaultSecurityConfig()
			cfg.AuthInit = "p"

			_, err := NewAuthority(cfg, reg, nil).Acquire(serverMember, false)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, tt.plugin.CloseCalls)
		})
	}
}

func TestAcquire_UnknownPlugin(t *testing.T) {
	cfg := config.DefaultSecurityConfig()
	cfg.AuthInit = "missing"

	_, err := NewAuthority(cfg, nil, nil).Acquire(serverMember, false)
	assert.ErrorIs(t, err, types.ErrCredentialsRequired)
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

// ============================================================================
//                              Verify
// ============================================================================

func TestVerify_NotRequired(t *testing.T) {
	a := NewAuthority(config.DefaultSecurityConfig(), nil, nil)

	principal, err := a.Verify(types.Properties{"x": "y"}, serverMember)
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestVerify_Plugin(t *testing.T) {
	expected := types.Properties{config.PropUsername: "alice", config.PropPassword: "secret"}
	plugin := &mocks.MockAuthenticator{Expected: expected}
	reg := NewRegistry()
	require.NoError(t, reg.RegisterAuthenticator("simple", func() interfaces.Authenticator { return plugin }))

	a := NewAuthority(config.DefaultSecurityConfig().WithAuthenticator("simple"), reg, nil)
	assert.True(t, a.AuthRequired())

	principal, err := a.Verify(expected, serverMember)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Name())

	_, err = a.Verify(types.Properties{config.PropUsername: "alice", config.PropPassword: "wrong"}, serverMember)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)

	init, authenticate, closeCalls := plugin.Calls()
	assert.Equal(t, 2, init)
	assert.Equal(t, 2, authenticate)
	assert.Equal(t, 2, closeCalls)
	t.Log("✅ 校验插件每次调用 Init/Authenticate/Close")
}

func TestVerify_PluginErrorsBecomeAuthFailed(t *testing.T) {
	plugin := &mocks.MockAuthenticator{
		InitFunc: func(types.Properties) error { return errors.New("ldap unreachable") },
	}
	reg := NewRegistry()
	require.NoError(t, reg.RegisterAuthenticator("ldap", func() interfaces.Authenticator { return plugin }))

	a := NewAuthority(config.DefaultSecurityConfig().WithAuthenticator("ldap"), reg, nil)
	_, err := a.Verify(types.Properties{}, serverMember)

	var authErr *types.AuthenticationFailedError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "ldap unreachable")
	assert.Equal(t, 1, plugin.CloseCalls)
}

func TestVerify_MissingAuthenticator(t *testing.T) {
	cfg := config.DefaultSecurityConfig()
	cfg.ClientAuthRequired = true

	_, err := NewAuthority(cfg, nil, nil).Verify(types.Properties{}, serverMember)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
	assert.ErrorIs(t, err, ErrMissingAuthenticator)

	cfg.Authenticator = "unregistered"
	_, err = NewAuthority(cfg, nil, nil).Verify(types.Properties{}, serverMember)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestVerify_IntegratedSecurity(t *testing.T) {
	svc := &mocks.MockSecurityService{ClientSecurityRequired: true, IntegratedSecurity: true}
	a := NewAuthority(config.DefaultSecurityConfig(), nil, svc)
	assert.True(t, a.AuthRequired())

	creds := types.Properties{config.PropUsername: "bob"}
	principal, err := a.Verify(creds, serverMember)
	require.NoError(t, err)
	assert.Equal(t, "bob", principal.Name())
	require.Len(t, svc.LoginCalls, 1)

	svc.LoginFunc = func(types.Properties) (types.Principal, error) { return nil, errors.New("locked") }
	_, err = a.Verify(creds, serverMember)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
}

func TestVerify_ServiceOverridesConfig(t *testing.T) {
	svc := &mocks.MockSecurityService{ClientSecurityRequired: false}
	cfg := config.DefaultSecurityConfig().WithAuthenticator("ldap")
	a := NewAuthority(cfg, nil, svc)

	assert.False(t, a.AuthRequired())
	principal, err := a.Verify(nil, serverMember)
	require.NoError(t, err)
	assert.Nil(t, principal)
}

// ============================================================================
//                              fx 模块
// ============================================================================

func TestModule(t *testing.T) {
	reg := NewRegistry()
	plugin := &mocks.MockAuthenticator{Expected: types.Properties{"k": "v"}}
	require.NoError(t, reg.RegisterAuthenticator("mock", func() interfaces.Authenticator { return plugin }))

	cfg := config.NewConfig()
	cfg.Security = cfg.Security.WithAuthenticator("mock")

	var authority interfaces.CredentialAuthority
	app := fxtest.New(t,
		fx.Supply(cfg, reg),
		Module(),
		fx.Populate(&authority),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, authority)
	assert.True(t, authority.AuthRequired())
	_, err := authority.Verify(types.Properties{"k": "v"}, serverMember)
	assert.NoError(t, err)
	t.Log("✅ fx 模块提供 CredentialAuthority")
}

func TestModule_Defaults(t *testing.T) {
	var a *Authority
	app := fxtest.New(t, Module(), fx.Populate(&a))
	require.NoError(t, app.Start(context.Background()))
	defer app.RequireStop()

	assert.False(t, a.AuthRequired())
}

// ============================================================================
//                              StaticAuthenticator
// ============================================================================

func TestStaticAuthenticator_Plain(t *testing.T) {
	a := NewStaticAuthenticator()
	require.NoError(t, a.Init(types.Properties{config.PropUsername: "alice", config.PropPassword: "secret"}))

	p, err := a.Authenticate(types.Properties{config.PropUsername: "alice", config.PropPassword: "secret"}, serverMember)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Name())

	_, err = a.Authenticate(types.Properties{config.PropUsername: "alice", config.PropPassword: "nope"}, serverMember)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)

	_, err = a.Authenticate(types.Properties{config.PropUsername: "bob", config.PropPassword: "secret"}, serverMember)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
	t.Log("✅ 静态插件按明文比较")
}

func TestStaticAuthenticator_Bcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	a := NewStaticAuthenticator()
	require.NoError(t, a.Init(types.Properties{config.PropUsername: "alice", config.PropPassword: string(hash)}))

	_, err = a.Authenticate(types.Properties{config.PropUsername: "alice", config.PropPassword: "secret"}, serverMember)
	require.NoError(t, err)

	_, err = a.Authenticate(types.Properties{config.PropUsername: "alice", config.PropPassword: string(hash)}, serverMember)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
}

func TestStaticAuthenticator_NotConfigured(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	a := NewAuthority(config.DefaultSecurityConfig().WithAuthenticator(StaticAuthenticatorName), reg, nil)
	_, err := a.Verify(types.Properties{config.PropUsername: "alice"}, serverMember)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
	assert.ErrorIs(t, err, ErrStaticUserMissing)

	cfg := config.DefaultSecurityConfig().WithAuthenticator(StaticAuthenticatorName).WithCredentials("alice", "secret")
	a = NewAuthority(cfg, reg, nil)
	p, err := a.Verify(types.Properties{config.PropUsername: "alice", config.PropPassword: "secret"}, serverMember)
	require.NoError(t, err)
	assert.Equal(t, types.NamedPrincipal("alice"), p)
}
