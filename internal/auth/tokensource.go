package auth

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// persistingSource saves every refreshed token back to disk.
type persistingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	path string
	last string
	log  zerolog.Logger
}

// PersistingTokenSource wraps config's refreshing source for tok. Whenever
// the access token changes the new token is written to path.
func PersistingTokenSource(src oauth2.TokenSource, tok *oauth2.Token, path string, log zerolog.Logger) oauth2.TokenSource {
	last := ""
	if tok != nil {
		last = tok.AccessToken
	}
	return &persistingSource{src: src, path: path, last: last, log: log}
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := SaveToken(p.path, tok); err != nil {
			p.log.Warn().Err(err).Str("path", p.path).Msg("could not persist refreshed token")
		}
	}
	return tok, nil
}
