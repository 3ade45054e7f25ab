package handshake

import (
	"bytes"
	"crypto/subtle"
	"errors"

	"github.com/dep2p/go-gridauth/internal/core/security/dh"
	"github.com/dep2p/go-gridauth/internal/core/wire"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// ============================================================================
//                              接收方（服务端）
// ============================================================================

// ReadCredentials 读取携带属性包的凭证
//
// PLAIN 属性包只在本端要求认证时保留；DH 模式解密出 {属性包, 回显挑战}。
func (s *Session) ReadCredentials() (types.Properties, error) {
	return s.readCredentials(true)
}

// ReadCredential 读取只证明共享密钥的凭证
//
// PLAIN 模式不读取属性包；DH 模式解密出的数据块只包含回显挑战。
func (s *Session) ReadCredential() error {
	_, err := s.readCredentials(false)
	return err
}

func (s *Session) readCredentials(payload bool) (types.Properties, error) {
	required := s.authority.AuthRequired()

	b, err := s.r.ReadByte()
	if err != nil {
		return nil, err
	}
	mode := types.SecurityMode(b)
	if !mode.Valid() {
		return nil, types.NewProtocolMismatch("unknown security mode %d", b)
	}
	if required && mode == types.SecurityNone {
		return nil, types.NewCredentialsRequired("no security credentials are provided", nil)
	}
	s.secureMode = mode

	switch mode {
	case types.SecurityPlain:
		if !payload {
			return nil, nil
		}
		props, err := s.r.ReadProperties()
		if err != nil {
			return nil, err
		}
		if !required {
			return nil, nil
		}
		return props, nil

	case types.SecurityDHEncrypted:
		s.state = StateKeyExchange
		props, err := s.respondKeyExchange(required, payload)
		if err != nil {
			return nil, classify("key exchange", err)
		}
		return props, nil

	case types.SecurityDelegated:
		s.log.Debug("credentials delegated to connection multiplexer",
			"notification", s.mode.IsNotification())
	}
	return nil, nil
}

// respondKeyExchange 接收方的 DH 交换
func (s *Session) respondKeyExchange(required, payload bool) (types.Properties, error) {
	sendAuth, err := s.r.ReadBool()
	if err != nil {
		return nil, err
	}
	algName, _, err := s.r.ReadString()
	if err != nil {
		return nil, err
	}
	peerKeyBytes, err := s.r.ReadByteArray()
	if err != nil {
		return nil, err
	}

	if !required {
		if sendAuth {
			if _, err := s.r.ReadByteArray(); err != nil {
				return nil, err
			}
		}
		s.w.AddByte(byte(types.ReplyAuthNotRequired))
		s.log.Debug("key exchange: authentication not required")
		return nil, s.flush()
	}

	// 对端指定的算法优先，未指定时使用本端配置
	s.algorithm = s.material.Algorithm
	if algName != "" {
		if s.algorithm, err = types.ParseCipherAlgorithm(algName); err != nil {
			return nil, err
		}
	}
	peerKey, err := dh.ParsePublicKey(peerKeyBytes)
	if err != nil {
		return nil, err
	}
	s.peerKey = peerKey

	local, err := s.localKey()
	if err != nil {
		return nil, err
	}
	ownKeyBytes, err := local.Public().Marshal()
	if err != nil {
		return nil, err
	}
	challenge, err := s.material.Challenge()
	if err != nil {
		return nil, err
	}

	if sendAuth {
		clientChallenge, err := s.r.ReadByteArray()
		if err != nil {
			return nil, err
		}
		auth := s.material.Authenticator
		if auth == nil || auth.Subject() == "" {
			return nil, types.NewAuthFailed("server private key not available for creating signature", nil)
		}
		signature, err := auth.Sign(clientChallenge)
		if err != nil {
			return nil, types.NewAuthFailed("sign client challenge", err)
		}
		s.w.AddByte(byte(types.ReplyOK))
		s.w.AddByteArray(ownKeyBytes)
		s.w.AddString(auth.Subject())
		s.w.AddByteArray(signature)
		s.log.Debug("key exchange: sent signed client challenge", "subject", auth.Subject())
	} else {
		s.w.AddByte(byte(types.ReplyOK))
		s.w.AddByteArray(ownKeyBytes)
	}
	s.w.AddByteArray(challenge)
	if err := s.flush(); err != nil {
		return nil, err
	}

	encrypted, err := s.r.ReadByteArray()
	if err != nil {
		return nil, err
	}
	plaintext, err := s.DecryptBytes(encrypted)
	if err != nil {
		return nil, types.NewAuthFailed("decrypt credentials", err)
	}

	block := wire.NewReader(bytes.NewReader(plaintext), s.version)
	var props types.Properties
	if payload {
		if props, err = block.ReadProperties(); err != nil {
			return nil, types.NewAuthFailed("decode encrypted credentials", err)
		}
	}
	echo, err := block.ReadByteArray()
	if err != nil {
		return nil, types.NewAuthFailed("decode challenge response", err)
	}
	if subtle.ConstantTimeCompare(challenge, echo) != 1 {
		return nil, types.NewAuthFailed("mismatch in challenge bytes, malicious client?", nil)
	}
	s.log.Debug("key exchange: client challenge verified", "algorithm", s.algorithm.String())
	return props, nil
}

// ============================================================================
//                              发送方（客户端）
// ============================================================================

// WriteCredentials 发送携带属性包的凭证
//
// creds 为 nil 时发送 NONE；未配置算法时发送 PLAIN 属性包；
// 否则完成 DH 交换后发送加密的 {属性包, 回显挑战}。
func (s *Session) WriteCredentials(creds types.Properties) error {
	return s.writeCredentials(creds, s.algorithm)
}

// writeCredentials 使用指定算法发送携带属性包的凭证
func (s *Session) writeCredentials(creds types.Properties, alg types.CipherAlgorithm) error {
	if creds == nil {
		s.w.AddByte(byte(types.SecurityNone))
		return s.flush()
	}
	if alg.IsZero() {
		s.secureMode = types.SecurityPlain
		s.w.AddByte(byte(types.SecurityPlain))
		s.w.AddProperties(creds)
		return s.flush()
	}
	_, err := s.initiateKeyExchange(creds, alg, true)
	return err
}

// WriteCredential 发送只证明共享密钥的凭证
//
// 返回对端的应答码；未配置算法时只写出 PLAIN 并返回 0。
func (s *Session) WriteCredential() (types.ReplyCode, error) {
	if s.algorithm.IsZero() {
		s.secureMode = types.SecurityPlain
		s.w.AddByte(byte(types.SecurityPlain))
		return 0, s.flush()
	}
	return s.initiateKeyExchange(nil, s.algorithm, false)
}

// initiateKeyExchange 发送方的 DH 交换
func (s *Session) initiateKeyExchange(creds types.Properties, alg types.CipherAlgorithm, payload bool) (types.ReplyCode, error) {
	code, err := s.doInitiateKeyExchange(creds, alg, payload)
	if err != nil {
		return code, classify("HandShake failed in Diffie-Hellman key exchange", err)
	}
	return code, nil
}

func (s *Session) doInitiateKeyExchange(creds types.Properties, alg types.CipherAlgorithm, payload bool) (types.ReplyCode, error) {
	s.secureMode = types.SecurityDHEncrypted
	s.state = StateKeyExchange

	local, err := s.localKey()
	if err != nil {
		return 0, err
	}
	ownKeyBytes, err := local.Public().Marshal()
	if err != nil {
		return 0, err
	}
	requireServerAuth := s.material.ServerAuthEnabled()

	s.w.AddByte(byte(types.SecurityDHEncrypted))
	s.w.AddBool(requireServerAuth)
	s.w.AddString(alg.String())
	s.w.AddByteArray(ownKeyBytes)
	var clientChallenge []byte
	if requireServerAuth {
		if clientChallenge, err = s.material.Challenge(); err != nil {
			return 0, err
		}
		s.w.AddByteArray(clientChallenge)
	}
	if err := s.flush(); err != nil {
		return 0, err
	}

	b, err := s.r.ReadByte()
	if err != nil {
		return 0, err
	}
	code := types.ReplyCode(b)
	s.code = code
	switch code {
	case types.ReplyAuthNotRequired:
		s.log.Debug("key exchange: server does not require authentication")
		return code, nil
	case types.ReplyOK:
	default:
		// 拒绝应答：端点类型、队列大小、服务端成员、消息
		return code, s.readRefusal(code)
	}

	peerKeyBytes, err := s.r.ReadByteArray()
	if err != nil {
		return code, err
	}
	if requireServerAuth {
		subject, _, err := s.r.ReadString()
		if err != nil {
			return code, err
		}
		signature, err := s.r.ReadByteArray()
		if err != nil {
			return code, err
		}
		if !s.material.Authenticator.Verify(subject, clientChallenge, signature) {
			return code, types.NewAuthFailed("mismatch in client challenge bytes, malicious server? subject "+subject, nil)
		}
		s.log.Debug("key exchange: server signature verified", "subject", subject)
	}
	serverChallenge, err := s.r.ReadByteArray()
	if err != nil {
		return code, err
	}
	peerKey, err := dh.ParsePublicKey(peerKeyBytes)
	if err != nil {
		return code, err
	}
	s.peerKey = peerKey

	var block bytes.Buffer
	bw := wire.NewWriter(&block, s.version)
	if payload {
		bw.AddProperties(creds)
	}
	bw.AddByteArray(serverChallenge)
	if err := bw.Flush(); err != nil {
		return code, err
	}
	ciphers, err := s.cipherSession()
	if err != nil {
		return code, err
	}
	encrypted, err := ciphers.Encrypt(alg, s.peerKey, block.Bytes())
	if err != nil {
		return code, err
	}
	s.w.AddByteArray(encrypted)
	return code, s.flush()
}

// readRefusal 读取拒绝应答的剩余字段并转换为对应错误
func (s *Session) readRefusal(code types.ReplyCode) error {
	if _, err := s.r.ReadByte(); err != nil {
		return err
	}
	if _, err := s.r.ReadInt32(); err != nil {
		return err
	}
	member, err := s.r.ReadMember()
	if err != nil {
		return err
	}
	message, err := s.r.ReadUTF()
	if err != nil {
		return err
	}
	return refusalError(code, message, member)
}

// refusalError 将拒绝码映射为错误
func refusalError(code types.ReplyCode, message string, member types.MemberID) error {
	switch code {
	case types.ReplyAuthRequired:
		return types.NewCredentialsRequired(message, nil)
	case types.ReplyAuthFailed:
		return types.NewAuthFailed(message, nil)
	default:
		return &types.ConnectionRefusedError{Code: code, Message: message, Member: member}
	}
}

// classify 传输、协议与认证类错误原样返回，其余归为认证失败
func classify(reason string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrTransport) || errors.Is(err, types.ErrProtocolMismatch) ||
		errors.Is(err, types.ErrConnectionRefused) {
		return err
	}
	return types.AsAuthFailed(reason, err)
}
