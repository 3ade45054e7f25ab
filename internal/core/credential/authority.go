package credential

import (
	"errors"
	"strings"

	"go.uber.org/multierr"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/util/logger"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

var log = logger.Logger("credential")

// ErrMissingAuthenticator 要求认证但既没有集成安全也没有校验插件
var ErrMissingAuthenticator = errors.New("no authenticator configured")

// Authority 凭证获取与校验
//
// 配置在创建后不再变化，可被多个握手并发使用。
type Authority struct {
	cfg      config.SecurityConfig
	registry *Registry
	service  interfaces.SecurityService
}

var _ interfaces.CredentialAuthority = (*Authority)(nil)

// NewAuthority 创建 Authority
//
// registry 为 nil 时使用空注册表；service 为 nil 表示未启用集成安全。
func NewAuthority(cfg config.SecurityConfig, registry *Registry, service interfaces.SecurityService) *Authority {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Authority{cfg: cfg, registry: registry, service: service}
}

// AuthRequired 服务端是否要求客户端认证
func (a *Authority) AuthRequired() bool {
	if a.service != nil {
		return a.service.IsClientSecurityRequired()
	}
	return a.cfg.ClientAuthRequired
}

// Acquire 获取发送给 server 的凭证
//
// 未配置 auth-init 时，只有 security-username 与 security-password
// 同时存在才返回凭证，否则返回 nil。
func (a *Authority) Acquire(server types.MemberID, isPeer bool) (types.Properties, error) {
	props := a.cfg.SecurityProperties()

	name := strings.TrimSpace(a.cfg.AuthInit)
	if name == "" {
		return usernamePassword(props), nil
	}

	plugin, err := a.registry.AuthInit(name)
	if err != nil {
		return nil, types.NewCredentialsRequired("failed to acquire auth-init "+name, err)
	}
	if err := plugin.Init(); err != nil {
		return nil, classifyAcquire(name, multierr.Append(err, plugin.Close()))
	}

	creds, err := plugin.GetCredentials(props, server, isPeer)
	if cerr := plugin.Close(); cerr != nil {
		log.Warn("auth-init close failed", "plugin", name, "err", cerr)
	}
	if err != nil {
		return nil, classifyAcquire(name, err)
	}
	log.Debug("credentials acquired", "plugin", name, "keys", len(creds), "peer", isPeer)
	return creds, nil
}

// Verify 校验对端凭证
func (a *Authority) Verify(creds types.Properties, member types.MemberID) (types.Principal, error) {
	if !a.AuthRequired() {
		return nil, nil
	}

	if a.service != nil && a.service.IsIntegratedSecurity() {
		principal, err := a.service.Login(creds)
		if err != nil {
			return nil, types.AsAuthFailed(err.Error(), err)
		}
		return principal, nil
	}

	name := strings.TrimSpace(a.cfg.Authenticator)
	if name == "" {
		return nil, types.NewAuthFailed("verify credentials", ErrMissingAuthenticator)
	}
	plugin, err := a.registry.Authenticator(name)
	if err != nil {
		return nil, types.NewAuthFailed("failed to load authenticator "+name, err)
	}
	defer func() {
		if cerr := plugin.Close(); cerr != nil {
			log.Warn("authenticator close failed", "plugin", name, "err", cerr)
		}
	}()

	if err := plugin.Init(a.cfg.SecurityProperties()); err != nil {
		return nil, types.AsAuthFailed(err.Error(), err)
	}
	principal, err := plugin.Authenticate(creds, member)
	if err != nil {
		return nil, types.AsAuthFailed(err.Error(), err)
	}
	if principal != nil {
		log.Debug("credentials verified", "plugin", name, "principal", principal.Name())
	}
	return principal, nil
}

// classifyAcquire 插件返回的认证类错误原样返回，其它错误归为缺少凭证
func classifyAcquire(name string, err error) error {
	if errors.Is(err, types.ErrAuthenticationFailed) || errors.Is(err, types.ErrCredentialsRequired) {
		return err
	}
	return types.NewCredentialsRequired("failed to acquire auth-init "+name, err)
}

// usernamePassword 从安全属性提取用户名密码凭证
func usernamePassword(props types.Properties) types.Properties {
	user, okUser := props.Get(config.PropUsername)
	pass, okPass := props.Get(config.PropPassword)
	if !okUser || !okPass {
		return nil
	}
	return types.Properties{
		config.PropUsername: user,
		config.PropPassword: pass,
	}
}
