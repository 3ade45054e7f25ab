package credential

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// StaticAuthenticatorName 内置静态校验插件名
const StaticAuthenticatorName = "static"

// ErrStaticUserMissing 服务端安全属性未配置用户名
var ErrStaticUserMissing = errors.New("static authenticator: security-username not set")

// StaticAuthenticator 以服务端安全属性中的单个用户名密码校验凭证
//
// 密码以 "$2" 开头时按 bcrypt 哈希比较，否则按明文常量时间比较。
type StaticAuthenticator struct {
	user string
	pass string
}

var _ interfaces.Authenticator = (*StaticAuthenticator)(nil)

// NewStaticAuthenticator 创建未初始化的静态校验插件
func NewStaticAuthenticator() interfaces.Authenticator {
	return &StaticAuthenticator{}
}

// Init 读取 security-username / security-password
func (a *StaticAuthenticator) Init(props types.Properties) error {
	user, ok := props.Get(config.PropUsername)
	if !ok || strings.TrimSpace(user) == "" {
		return ErrStaticUserMissing
	}
	a.user = user
	a.pass, _ = props.Get(config.PropPassword)
	return nil
}

// Authenticate 校验凭证，成功返回以用户名命名的主体
func (a *StaticAuthenticator) Authenticate(creds types.Properties, _ types.MemberID) (types.Principal, error) {
	user, _ := creds.Get(config.PropUsername)
	pass, _ := creds.Get(config.PropPassword)

	if subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) != 1 {
		return nil, types.NewAuthFailed("unknown user "+user, nil)
	}
	if strings.HasPrefix(a.pass, "$2") {
		if err := bcrypt.CompareHashAndPassword([]byte(a.pass), []byte(pass)); err != nil {
			return nil, types.NewAuthFailed("bad password for "+user, err)
		}
		return types.NamedPrincipal(user), nil
	}
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.pass)) != 1 {
		return nil, types.NewAuthFailed("bad password for "+user, nil)
	}
	return types.NamedPrincipal(user), nil
}

// Close 无资源需要释放
func (a *StaticAuthenticator) Close() error { return nil }

// RegisterBuiltins 在 r 上注册内置插件
func RegisterBuiltins(r *Registry) error {
	return r.RegisterAuthenticator(StaticAuthenticatorName, NewStaticAuthenticator)
}
