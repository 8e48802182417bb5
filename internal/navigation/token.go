package navigation

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/m3rciful/chartbot/internal/catalog"
)

// Kind is the action a token requests.
type Kind uint8

const (
	// KindSelectSource opens the category menu of a company.
	KindSelectSource Kind = iota + 1
	// KindSelectCategory requests a chart.
	KindSelectCategory
	// KindBack leaves the level named by the token.
	KindBack
)

func (k Kind) String() string {
	switch k {
	case KindSelectSource:
		return "select_source"
	case KindSelectCategory:
		return "select_category"
	case KindBack:
		return "back"
	default:
		return "unknown"
	}
}

const (
	tokenVersion   = 1
	headerLen      = 3
	maxSourceBytes = 512
)

var tokenEncoding = base64.RawURLEncoding

// ErrDecode reports a token that cannot be parsed.
var ErrDecode = errors.New("navigation: malformed selection token")

// Token is the decoded form of a menu button payload.
// For KindBack, Category is zero when leaving a category menu and set when
// leaving a chart view.
type Token struct {
	Kind     Kind
	Source   catalog.SourceID
	Category catalog.Category
}

// SelectSource builds the token of a company button.
func SelectSource(id catalog.SourceID) Token {
	return Token{Kind: KindSelectSource, Source: id}
}

// SelectCategory builds the token of a category button.
func SelectCategory(id catalog.SourceID, c catalog.Category) Token {
	return Token{Kind: KindSelectCategory, Source: id, Category: c}
}

// Back builds the back token for the given level.
func Back(from State) Token {
	return Token{Kind: KindBack, Source: from.Source, Category: from.Category}
}

// Origin returns the state a back token was rendered in.
func (t Token) Origin() State {
	if t.Category != 0 {
		return AtCategory(t.Source, t.Category)
	}
	return AtSource(t.Source)
}

// Encode serializes t as version, kind, category, uvarint length and source
// bytes, wrapped in unpadded base64url. Field values never act as delimiters.
// Decode rejects sources longer than 512 bytes, so only such tokens fail to
// round-trip; catalog.IDFor always yields a 36-byte id.
func Encode(t Token) string {
	buf := make([]byte, 0, headerLen+binary.MaxVarintLen64+len(t.Source))
	buf = append(buf, tokenVersion, byte(t.Kind), byte(t.Category))
	buf = binary.AppendUvarint(buf, uint64(len(t.Source)))
	buf = append(buf, t.Source...)
	return tokenEncoding.EncodeToString(buf)
}

// Decode parses a token produced by Encode. Every failure wraps ErrDecode.
func Decode(s string) (Token, error) {
	raw, err := tokenEncoding.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) < headerLen+1 {
		return Token{}, fmt.Errorf("%w: short token", ErrDecode)
	}
	if raw[0] != tokenVersion {
		return Token{}, fmt.Errorf("%w: version %d", ErrDecode, raw[0])
	}
	t := Token{Kind: Kind(raw[1]), Category: catalog.Category(raw[2])}

	n, w := binary.Uvarint(raw[headerLen:])
	if w <= 0 || n > maxSourceBytes {
		return Token{}, fmt.Errorf("%w: bad source length", ErrDecode)
	}
	body := raw[headerLen+w:]
	if uint64(len(body)) != n {
		return Token{}, fmt.Errorf("%w: source length %d, have %d bytes", ErrDecode, n, len(body))
	}
	t.Source = catalog.SourceID(body)

	if err := t.validate(); err != nil {
		return Token{}, err
	}
	return t, nil
}

func (t Token) validate() error {
	if t.Source == "" {
		return fmt.Errorf("%w: empty source", ErrDecode)
	}
	switch t.Kind {
	case KindSelectSource:
		if t.Category != 0 {
			return fmt.Errorf("%w: category on source selection", ErrDecode)
		}
	case KindSelectCategory:
		if !t.Category.Valid() {
			return fmt.Errorf("%w: category %d", ErrDecode, t.Category)
		}
	case KindBack:
		if t.Category != 0 && !t.Category.Valid() {
			return fmt.Errorf("%w: category %d", ErrDecode, t.Category)
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrDecode, t.Kind)
	}
	return nil
}
