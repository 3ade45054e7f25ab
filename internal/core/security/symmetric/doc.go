// Package symmetric 从 DH 共享秘密派生对称密码并按会话缓存
//
// 密钥 / IV 派生：
//
//	算法       密钥字节                           IV 字节
//	DESede     24                                 8
//	Blowfish   keysize/8（keysize > 128）否则 16   8
//	AES        keysize/8（192 或 256）否则 16       16
//
// 密钥取共享秘密的前若干字节，IV 取紧随其后的字节。模式为 CBC +
// PKCS#5 填充，每次调用都从 IV 重新开始，相同明文得到相同密文。
package symmetric
