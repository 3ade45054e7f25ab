package credential

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dep2p/go-gridauth/pkg/interfaces"
)

var (
	// ErrDuplicatePlugin 插件名重复注册
	ErrDuplicatePlugin = errors.New("plugin already registered")

	// ErrPluginNotFound 插件未注册
	ErrPluginNotFound = errors.New("plugin not registered")

	// ErrInvalidPlugin 插件名为空或工厂为 nil
	ErrInvalidPlugin = errors.New("invalid plugin")
)

// AuthInitFactory 创建 AuthInitializer，每次获取凭证都会调用一次
type AuthInitFactory func() interfaces.AuthInitializer

// AuthenticatorFactory 创建 Authenticator，每次校验都会调用一次
type AuthenticatorFactory func() interfaces.Authenticator

// Registry 认证插件注册表
//
// 以名称查找插件工厂，并发安全。
type Registry struct {
	mu             sync.RWMutex
	authInits      map[string]AuthInitFactory
	authenticators map[string]AuthenticatorFactory
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		authInits:      make(map[string]AuthInitFactory),
		authenticators: make(map[string]AuthenticatorFactory),
	}
}

// RegisterAuthInit 注册客户端凭证获取插件
func (r *Registry) RegisterAuthInit(name string, factory AuthInitFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("%w: auth-init %q", ErrInvalidPlugin, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authInits[name]; ok {
		return fmt.Errorf("%w: auth-init %q", ErrDuplicatePlugin, name)
	}
	r.authInits[name] = factory
	return nil
}

// RegisterAuthenticator 注册服务端凭证校验插件
func (r *Registry) RegisterAuthenticator(name string, factory AuthenticatorFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("%w: authenticator %q", ErrInvalidPlugin, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authenticators[name]; ok {
		return fmt.Errorf("%w: authenticator %q", ErrDuplicatePlugin, name)
	}
	r.authenticators[name] = factory
	return nil
}

// AuthInit 按名称创建 AuthInitializer
func (r *Registry) AuthInit(name string) (interfaces.AuthInitializer, error) {
	r.mu.RLock()
	factory, ok := r.authInits[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: auth-init %q", ErrPluginNotFound, name)
	}
	return factory(), nil
}

// Authenticator 按名称创建 Authenticator
func (r *Registry) Authenticator(name string) (interfaces.Authenticator, error) {
	r.mu.RLock()
	factory, ok := r.authenticators[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: authenticator %q", ErrPluginNotFound, name)
	}
	return factory(), nil
}

// Names 返回已注册的插件名（排序）
func (r *Registry) Names() (authInits, authenticators []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.authInits {
		authInits = append(authInits, name)
	}
	for name := range r.authenticators {
		authenticators = append(authenticators, name)
	}
	sort.Strings(authInits)
	sort.Strings(authenticators)
	return authInits, authenticators
}
