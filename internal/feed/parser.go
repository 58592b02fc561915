package feed

import (
	"bytes"
	"log/slog"

	"github.com/Sselimkoc/feedTune-sub004/internal/feederr"
	"github.com/mmcdole/gofeed"
)

// Parser converts raw RSS/Atom XML into a generic feed structure. The gofeed
// parser is constructor-injected state, never a package global.
type Parser struct {
	lib *gofeed.Parser
	log *slog.Logger
}

func NewParser(log *slog.Logger) *Parser {
	return &Parser{
		lib: gofeed.NewParser(),
		log: log,
	}
}

// Parse parses a whole feed document. A malformed top-level document is a
// hard failure carrying the original parser error; missing optional elements
// on individual items never fail the feed.
func (p *Parser) Parse(raw []byte) (*gofeed.Feed, error) {
	parsed, err := p.lib.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, feederr.Wrap(feederr.ParseFailed, "malformed feed document", err)
	}

	return parsed, nil
}
