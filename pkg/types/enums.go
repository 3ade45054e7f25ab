package types

import "fmt"

// ============================================================================
//                              ReplyCode - 握手应答码
// ============================================================================

// ReplyCode 握手应答码（线上单字节）
type ReplyCode byte

const (
	// ReplyOK 接受连接，也是客户端发出的开场码
	ReplyOK ReplyCode = 59
	// ReplyRefused 拒绝连接
	ReplyRefused ReplyCode = 60
	// ReplyInvalid 无效请求
	ReplyInvalid ReplyCode = 61
	// ReplyAuthRequired 需要认证但未提供凭证
	ReplyAuthRequired ReplyCode = 62
	// ReplyAuthFailed 认证失败
	ReplyAuthFailed ReplyCode = 63
	// ReplyDuplicateDurableClient 持久客户端重复连接
	ReplyDuplicateDurableClient ReplyCode = 64
	// ReplyWANCredentials 网关通道：接受并随后发送本端凭证
	ReplyWANCredentials ReplyCode = 65
	// ReplyAuthNotRequired 服务端不要求认证
	ReplyAuthNotRequired ReplyCode = 66
	// ReplyServerIsLocator 对端是定位器而非缓存服务器
	ReplyServerIsLocator ReplyCode = 67
)

// String 返回应答码名称
func (c ReplyCode) String() string {
	switch c {
	case ReplyOK:
		return "OK"
	case ReplyRefused:
		return "REFUSED"
	case ReplyInvalid:
		return "INVALID"
	case ReplyAuthRequired:
		return "AUTH_REQUIRED"
	case ReplyAuthFailed:
		return "AUTH_FAILED"
	case ReplyDuplicateDurableClient:
		return "DUPLICATE_DURABLE_CLIENT"
	case ReplyWANCredentials:
		return "WAN_CREDENTIALS"
	case ReplyAuthNotRequired:
		return "AUTH_NOT_REQUIRED"
	case ReplyServerIsLocator:
		return "SERVER_IS_LOCATOR"
	default:
		return fmt.Sprintf("ReplyCode(%d)", byte(c))
	}
}

// IsAcceptance 是否为接受类应答（OK 或 AUTH_NOT_REQUIRED）
func (c ReplyCode) IsAcceptance() bool {
	return c == ReplyOK || c == ReplyAuthNotRequired
}

// ============================================================================
//                              SecurityMode - 凭证安全模式
// ============================================================================

// SecurityMode 凭证在线上的保护方式
type SecurityMode byte

const (
	// SecurityNone 不发送凭证
	SecurityNone SecurityMode = 0
	// SecurityPlain 明文发送凭证
	SecurityPlain SecurityMode = 1
	// SecurityDHEncrypted 使用 Diffie-Hellman 协商的对称密钥加密凭证
	SecurityDHEncrypted SecurityMode = 2
	// SecurityDelegated 多用户通知通道，凭证由连接复用器带外提供
	SecurityDelegated SecurityMode = 3
)

// String 返回模式名称
func (m SecurityMode) String() string {
	switch m {
	case SecurityNone:
		return "NONE"
	case SecurityPlain:
		return "PLAIN"
	case SecurityDHEncrypted:
		return "DH_ENCRYPTED"
	case SecurityDelegated:
		return "DELEGATED"
	default:
		return fmt.Sprintf("SecurityMode(%d)", byte(m))
	}
}

// Valid 是否为已知模式
func (m SecurityMode) Valid() bool {
	return m <= SecurityDelegated
}

// ============================================================================
//                              Conflation - 事件合并选项
// ============================================================================

// Conflation 每客户端的事件合并设置（选项字节低 2 位）
type Conflation byte

const (
	// ConflationDefault 使用服务端默认
	ConflationDefault Conflation = 0
	// ConflationOn 开启合并
	ConflationOn Conflation = 1
	// ConflationOff 关闭合并
	ConflationOff Conflation = 2
)

// conflationMask 选项字节中合并设置所占的位
const conflationMask = 0x03

// Valid 是否为合法值
func (c Conflation) Valid() bool {
	return c <= ConflationOff
}

// String 返回合并设置名称
func (c Conflation) String() string {
	switch c {
	case ConflationDefault:
		return "default"
	case ConflationOn:
		return "on"
	case ConflationOff:
		return "off"
	default:
		return fmt.Sprintf("Conflation(%d)", byte(c))
	}
}

// ClientOptions 每客户端选项字节
//
// 低 2 位为合并设置，其余位保留。保留位原样保存并回传，不做校验。
type ClientOptions byte

// Conflation 返回合并设置
func (o ClientOptions) Conflation() Conflation {
	return Conflation(byte(o) & conflationMask)
}

// WithConflation 替换合并设置，保留其余位
func (o ClientOptions) WithConflation(c Conflation) ClientOptions {
	return ClientOptions(byte(o)&^conflationMask | byte(c)&conflationMask)
}

// ============================================================================
//                              CommunicationMode - 通信模式
// ============================================================================

// CommunicationMode 连接建立时首先读到的通信模式字节
type CommunicationMode byte

const (
	// ModeClientToServer 普通客户端到服务器
	ModeClientToServer CommunicationMode = 100
	// ModePrimaryServerToClient 主订阅队列回调通道
	ModePrimaryServerToClient CommunicationMode = 101
	// ModeSecondaryServerToClient 备订阅队列回调通道
	ModeSecondaryServerToClient CommunicationMode = 102
	// ModeGatewayToGateway WAN 网关通道
	ModeGatewayToGateway CommunicationMode = 103
	// ModeMonitorToServer 监控连接
	ModeMonitorToServer CommunicationMode = 104
	// ModeSuccessfulServerToClient 回调通道建立成功应答
	ModeSuccessfulServerToClient CommunicationMode = 105
	// ModeUnsuccessfulServerToClient 回调通道建立失败应答
	ModeUnsuccessfulServerToClient CommunicationMode = 106
	// ModeClientToServerForQueue 客户端订阅队列连接
	ModeClientToServerForQueue CommunicationMode = 107
)

// IsWAN 是否为网关通道
func (m CommunicationMode) IsWAN() bool {
	return m == ModeGatewayToGateway
}

// IsNotification 是否为服务端到客户端的通知通道
func (m CommunicationMode) IsNotification() bool {
	return m == ModePrimaryServerToClient || m == ModeSecondaryServerToClient
}

// Valid 是否为已知模式
func (m CommunicationMode) Valid() bool {
	return m >= ModeClientToServer && m <= ModeClientToServerForQueue
}

// String 返回模式名称
func (m CommunicationMode) String() string {
	switch m {
	case ModeClientToServer:
		return "ClientToServer"
	case ModePrimaryServerToClient:
		return "PrimaryServerToClient"
	case ModeSecondaryServerToClient:
		return "SecondaryServerToClient"
	case ModeGatewayToGateway:
		return "GatewayToGateway"
	case ModeMonitorToServer:
		return "MonitorToServer"
	case ModeSuccessfulServerToClient:
		return "SuccessfulServerToClient"
	case ModeUnsuccessfulServerToClient:
		return "UnsuccessfulServerToClient"
	case ModeClientToServerForQueue:
		return "ClientToServerForQueue"
	default:
		return fmt.Sprintf("CommunicationMode(%d)", byte(m))
	}
}
