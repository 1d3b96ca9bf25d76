package lastfm

import (
	"fmt"

	"github.com/shkh/lastfm-go/lastfm"
)

// LookupUsername returns the account name owning sessionKey.
func LookupUsername(apiKey, secret, sessionKey string) (string, error) {
	api := lastfm.New(apiKey, secret)
	api.SetSession(sessionKey)

	info, err := api.User.GetInfo(nil)
	if err != nil {
		return "", fmt.Errorf("get user info: %w", err)
	}
	return info.Name, nil
}
