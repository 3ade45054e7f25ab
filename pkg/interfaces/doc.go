// Package interfaces 定义 gridauth 的公共接口
//
// 握手核心与外部协作方之间的边界：
//
//   - credential.go - 凭证获取（AuthInitializer）与校验（Authenticator, SecurityService）
//   - security.go   - 服务端身份证明（ServerAuthenticator）与凭证加解密（Encryptor）
//   - metrics.go    - 握手指标记录（HandshakeRecorder）
//
// 实现位于 internal/core 下对应目录，测试替身位于 tests/mocks。
package interfaces
