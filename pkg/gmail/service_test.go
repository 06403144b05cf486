package gmail

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticTokenSource struct {
	token *oauth2.Token
}

func (s *staticTokenSource) Token() (*oauth2.Token, error) {
	return s.token, nil
}

func TestNotifyTokenSourcePersistsRefreshedToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	refreshed := &oauth2.Token{AccessToken: "new-access", Expiry: expiry}

	var calls int32
	var gotToken string
	src := &notifyTokenSource{
		src:     &staticTokenSource{token: refreshed},
		current: &oauth2.Token{AccessToken: "old-access"},
		callback: func(accessToken string, exp time.Time) error {
			atomic.AddInt32(&calls, 1)
			gotToken = accessToken
			return nil
		},
	}

	token, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.AccessToken)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, "new-access", gotToken)

	// The same token again must not re-trigger the persist callback.
	_, err = src.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestNotifyTokenSourceConcurrentAccess(t *testing.T) {
	refreshed := &oauth2.Token{AccessToken: "new-access", Expiry: time.Now().Add(time.Hour)}

	var calls int32
	src := &notifyTokenSource{
		src:     &staticTokenSource{token: refreshed},
		current: &oauth2.Token{AccessToken: "old-access"},
		callback: func(accessToken string, exp time.Time) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	}

	// Mirrors the detail-fetch fan-out: many goroutines share one source.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := src.Token()
			assert.NoError(t, err)
			assert.Equal(t, "new-access", token.AccessToken)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a single refresh persists exactly once")
}

func TestNotifyTokenSourceNilCallback(t *testing.T) {
	src := &notifyTokenSource{
		src:     &staticTokenSource{token: &oauth2.Token{AccessToken: "new-access"}},
		current: &oauth2.Token{AccessToken: "old-access"},
	}

	token, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.AccessToken)
}
