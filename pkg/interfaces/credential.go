// Package interfaces 定义 gridauth 公共接口
//
// 本文件定义凭证获取与校验的插件接口。
package interfaces

import "github.com/dep2p/go-gridauth/pkg/types"

// AuthInitializer 客户端凭证获取插件
//
// 生命周期：Init → GetCredentials → Close，每次获取都使用新实例。
type AuthInitializer interface {
	// Init 初始化插件
	Init() error

	// GetCredentials 根据安全属性生成要发送给 server 的凭证
	//
	// isPeer 为 true 表示调用方是集群对等成员而非普通客户端。
	GetCredentials(securityProps types.Properties, server types.MemberID, isPeer bool) (types.Properties, error)

	// Close 释放资源
	Close() error
}

// Authenticator 服务端凭证校验插件
//
// 生命周期：Init → Authenticate → Close。
type Authenticator interface {
	// Init 使用本端安全属性初始化
	Init(securityProps types.Properties) error

	// Authenticate 校验凭证并返回认证主体
	Authenticate(credentials types.Properties, member types.MemberID) (types.Principal, error)

	// Close 释放资源
	Close() error
}

// SecurityService 集成安全服务
//
// 配置后替代 Authenticator 插件完成服务端校验。
type SecurityService interface {
	// IsClientSecurityRequired 是否要求客户端认证
	IsClientSecurityRequired() bool

	// IsIntegratedSecurity 是否启用集成安全
	IsIntegratedSecurity() bool

	// Login 使用凭证登录并返回主体
	Login(credentials types.Properties) (types.Principal, error)
}

// CredentialAuthority 握手使用的凭证来源与校验方
type CredentialAuthority interface {
	// AuthRequired 本端是否要求对端认证
	AuthRequired() bool

	// Acquire 获取本端要发送给 server 的凭证，没有凭证时返回 nil
	Acquire(server types.MemberID, isPeer bool) (types.Properties, error)

	// Verify 校验对端凭证
	//
	// 不要求认证时返回 nil 主体与 nil 错误。
	Verify(credentials types.Properties, member types.MemberID) (types.Principal, error)
}
