package session

import (
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// New returns the session variant for platform: ExtensionSession for web,
// AdapterSession for android and ios.
func New(platform Platform, deps Deps) (WalletSession, error) {
	switch platform {
	case PlatformWeb:
		return NewExtensionSession(deps), nil
	case PlatformAndroid, PlatformIOS:
		return NewAdapterSession(platform, deps), nil
	default:
		return nil, lenderr.WithDetails(lenderr.ErrUnknownPlatform, map[string]string{"platform": string(platform)})
	}
}
