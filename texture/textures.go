package texture

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"
)

var kindKeywords = map[string]Kind{
	"texture":     KindTexture,
	"walltexture": KindWallTexture,
	"flat":        KindFlat,
	"sprite":      KindSprite,
	"graphic":     KindGraphic,
}

// ReadTEXTURES replaces the list with the definitions of a ZDoom TEXTURES
// lump. Top-level blocks other than texture definitions are skipped. On
// error the list is left empty.
func (l *TextureXList) ReadTEXTURES(data []byte) error {
	l.textures = nil
	l.format = FormatTextures

	p := newParser(data)
	var textures []*CTexture
	for {
		tok := p.next()
		if p.err != nil {
			return p.err
		}
		if tok == scanner.EOF {
			break
		}
		kind, ok := kindKeywords[strings.ToLower(p.text)]
		if tok != scanner.Ident || !ok {
			p.skipStatement()
			continue
		}
		t, err := p.texture(kind)
		if err != nil {
			return err
		}
		textures = append(textures, t)
	}
	if p.err != nil {
		return p.err
	}
	l.textures = textures
	return nil
}

type parser struct {
	s      scanner.Scanner
	tok    rune
	text   string
	line   int
	peeked bool
	err    error
}

func newParser(data []byte) *parser {
	p := &parser{}
	p.s.Init(bytes.NewReader(data))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	p.s.IsIdentRune = func(ch rune, i int) bool {
		return ch == '_' || unicode.IsLetter(ch) || (i > 0 && unicode.IsDigit(ch))
	}
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = fmt.Errorf("%w: line %d: %s", ErrSyntax, s.Pos().Line, msg)
		}
	}
	return p
}

func (p *parser) next() rune {
	if p.peeked {
		p.peeked = false
		return p.tok
	}
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
	p.line = p.s.Position.Line
	return p.tok
}

func (p *parser) peek() rune {
	if !p.peeked {
		p.next()
		p.peeked = true
	}
	return p.tok
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, p.line, fmt.Sprintf(format, args...))
}

func (p *parser) expect(want rune) error {
	if tok := p.next(); tok != want {
		return p.errorf("expected %q, got %q", want, p.text)
	}
	return nil
}

// name reads a quoted string or a run of unquoted tokens up to a comma.
func (p *parser) name() (string, error) {
	if p.peek() == scanner.String {
		p.next()
		s, err := strconv.Unquote(p.text)
		if err != nil {
			return strings.Trim(p.text, `"`), nil
		}
		return s, nil
	}
	var b strings.Builder
	for {
		switch p.peek() {
		case ',', '{', '}', scanner.EOF:
			if b.Len() == 0 {
				return "", p.errorf("expected name, got %q", p.text)
			}
			return b.String(), nil
		}
		p.next()
		b.WriteString(p.text)
	}
}

func (p *parser) number() (string, error) {
	sign := ""
	if p.peek() == '-' {
		p.next()
		sign = "-"
	}
	switch tok := p.next(); tok {
	case scanner.Int, scanner.Float:
		return sign + p.text, nil
	default:
		return "", p.errorf("expected number, got %q", p.text)
	}
}

func (p *parser) int16() (int16, error) {
	s, err := p.number()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, p.errorf("bad integer %q", s)
		}
		return int16(f), nil
	}
	return int16(n), nil
}

func (p *parser) float() (float64, error) {
	s, err := p.number()
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, p.errorf("bad number %q", s)
	}
	return f, nil
}

// texture parses the remainder of a definition after its keyword.
func (p *parser) texture(kind Kind) (*CTexture, error) {
	t := &CTexture{Kind: kind, Extended: true, ScaleX: 1, ScaleY: 1}
	if p.peek() == scanner.Ident && strings.EqualFold(p.text, "optional") {
		p.next()
		t.Optional = true
	}

	var err error
	if t.Name, err = p.name(); err != nil {
		return nil, err
	}
	if err = p.expect(','); err != nil {
		return nil, err
	}
	if t.Width, err = p.int16(); err != nil {
		return nil, err
	}
	if err = p.expect(','); err != nil {
		return nil, err
	}
	if t.Height, err = p.int16(); err != nil {
		return nil, err
	}
	if p.peek() != '{' {
		return t, nil
	}
	p.next()

	for {
		tok := p.next()
		switch tok {
		case '}':
			return t, nil
		case scanner.EOF:
			return nil, p.errorf("unterminated definition of %s", t.Name)
		case scanner.Ident:
		default:
			return nil, p.errorf("unexpected %q in %s", p.text, t.Name)
		}

		switch strings.ToLower(p.text) {
		case "xscale":
			t.ScaleX, err = p.float()
		case "yscale":
			t.ScaleY, err = p.float()
		case "worldpanning":
			t.WorldPanning = true
		case "nodecals":
			t.NoDecals = true
		case "nulltexture":
			t.NullTexture = true
		case "patch":
			err = p.patch(t, PatchKindPatch)
		case "graphic":
			err = p.patch(t, PatchKindGraphic)
		default:
			p.skipValues()
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) patch(t *CTexture, kind PatchKind) error {
	pa := Patch{Kind: kind}
	var err error
	if pa.Name, err = p.name(); err != nil {
		return err
	}
	if err = p.expect(','); err != nil {
		return err
	}
	if pa.X, err = p.int16(); err != nil {
		return err
	}
	if err = p.expect(','); err != nil {
		return err
	}
	if pa.Y, err = p.int16(); err != nil {
		return err
	}
	if p.peek() == '{' {
		p.next()
		if err := p.skipBlock(); err != nil {
			return err
		}
	}
	t.Patches = append(t.Patches, pa)
	return nil
}

// skipValues consumes a comma-separated value list following a property.
func (p *parser) skipValues() {
	for {
		if p.peek() == '-' {
			p.next()
		}
		switch p.peek() {
		case scanner.Int, scanner.Float, scanner.String:
			p.next()
		default:
			return
		}
		if p.peek() != ',' {
			return
		}
		p.next()
	}
}

// skipBlock consumes tokens through the '}' matching an already read '{'.
func (p *parser) skipBlock() error {
	depth := 1
	for depth > 0 {
		switch p.next() {
		case '{':
			depth++
		case '}':
			depth--
		case scanner.EOF:
			return p.errorf("unterminated block")
		}
	}
	return nil
}

// skipStatement discards an unrecognized top-level construct: tokens up to
// the next definition keyword, or through a braced block.
func (p *parser) skipStatement() {
	if p.tok == '{' {
		_ = p.skipBlock()
		return
	}
	for {
		tok := p.peek()
		switch {
		case tok == scanner.EOF:
			return
		case tok == '{':
			p.next()
			_ = p.skipBlock()
			return
		case tok == scanner.Ident:
			if _, ok := kindKeywords[strings.ToLower(p.text)]; ok {
				return
			}
		}
		p.next()
	}
}
