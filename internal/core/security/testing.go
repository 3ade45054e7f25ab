package security

import (
	"crypto/rand"

	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// NewMaterialForTest 构建测试用安全材料
//
// alg 为空表示不加密；auth 可为 nil。生成失败时 panic。
func NewMaterialForTest(alg string, auth interfaces.ServerAuthenticator) *Material {
	parsed, err := types.ParseCipherAlgorithm(alg)
	if err != nil {
		panic(err)
	}
	m, err := Build(parsed, auth, false, rand.Reader)
	if err != nil {
		panic(err)
	}
	return m
}
