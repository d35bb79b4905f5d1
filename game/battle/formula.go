package battle

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
)

// Vars maps canonical variable names (upper case) to their numeric values.
type Vars map[string]float64

// Evaluator computes designer-authored arithmetic expressions. It has no
// mutable state and one instance is shared by all concurrent sessions.
//
// Evaluation is a strict two-step pipeline: every recognized variable token
// is substituted with its numeric literal, then the residue is rejected
// unless it consists solely of digits, decimal points, the four arithmetic
// operators, parentheses, and whitespace. Only a string that survives the
// whitelist is parsed as arithmetic. Nothing an expression author writes can
// therefore reach anything but arithmetic, whatever characters the source
// contained.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates an Evaluator. A nil logger is replaced with a no-op.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

var tokenPatterns = struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}{cache: make(map[string]*regexp.Regexp)}

// Eval evaluates formula against vars. Any failure — unknown characters
// after substitution, malformed arithmetic, division by zero — yields 0;
// a broken formula degrades balance but never takes a session down.
func (e *Evaluator) Eval(formula string, vars Vars) float64 {
	if strings.TrimSpace(formula) == "" {
		return 0
	}

	substituted := substitute(formula, vars)

	if bad, ok := firstDisallowed(substituted); !ok {
		e.logger.Warn("formula rejected",
			zap.String("formula", formula),
			zap.String("offending", string(bad)))
		return 0
	}

	v, err := parseArithmetic(substituted)
	if err != nil {
		e.logger.Warn("formula parse failed",
			zap.String("formula", formula),
			zap.Error(err))
		return 0
	}
	return v
}

// substitute replaces every recognized variable token, case-insensitively
// and whole-word, with its value as a literal. Longer names first so ATK
// never clips ENEMY_ATK.
func substitute(formula string, vars Vars) string {
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	out := formula
	for _, n := range names {
		re := tokenPattern(n)
		lit := strconv.FormatFloat(vars[n], 'f', -1, 64)
		out = re.ReplaceAllString(out, lit)
	}
	return out
}

func tokenPattern(name string) *regexp.Regexp {
	tokenPatterns.mu.Lock()
	defer tokenPatterns.mu.Unlock()
	if re, ok := tokenPatterns.cache[name]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	tokenPatterns.cache[name] = re
	return re
}

// firstDisallowed scans for any character outside the arithmetic whitelist.
func firstDisallowed(s string) (rune, bool) {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '+' || r == '-' || r == '*' || r == '/':
		case r == '(' || r == ')':
		case unicode.IsSpace(r):
		default:
			return r, false
		}
	}
	return 0, true
}

// ---- Recursive-descent arithmetic parser ----

type exprParser struct {
	input string
	pos   int
}

func parseArithmetic(s string) (float64, error) {
	p := &exprParser{input: s}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipWS()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected chars at pos %d: %q", p.pos, p.input[p.pos:])
	}
	return v, nil
}

func (p *exprParser) skipWS() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipWS()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) consume() byte {
	p.skipWS()
	if p.pos >= len(p.input) {
		return 0
	}
	ch := p.input[p.pos]
	p.pos++
	return ch
}

// parseExpr = parseTerm (('+' | '-') parseTerm)*
func (p *exprParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		ch := p.peek()
		if ch != '+' && ch != '-' {
			break
		}
		p.consume()
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if ch == '+' {
			v += right
		} else {
			v -= right
		}
	}
	return v, nil
}

// parseTerm = parseFactor (('*' | '/') parseFactor)*
func (p *exprParser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		ch := p.peek()
		if ch != '*' && ch != '/' {
			break
		}
		p.consume()
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if ch == '*' {
			v *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= right
		}
	}
	return v, nil
}

// parseFactor = '(' parseExpr ')' | '-' parseFactor | number
func (p *exprParser) parseFactor() (float64, error) {
	ch := p.peek()
	switch {
	case ch == '(':
		p.consume()
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipWS()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("expected ')'")
		}
		p.pos++
		return v, nil

	case ch == '-':
		p.consume()
		v, err := p.parseFactor()
		return -v, err

	case ch >= '0' && ch <= '9' || ch == '.':
		return p.parseNumber()

	default:
		return 0, fmt.Errorf("unexpected character %q at pos %d", ch, p.pos)
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	p.skipWS()
	start := p.pos
	hasDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '.' && !hasDot {
			hasDot = true
			p.pos++
		} else if c >= '0' && c <= '9' {
			p.pos++
		} else {
			break
		}
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at pos %d", start)
	}
	return strconv.ParseFloat(p.input[start:p.pos], 64)
}

// CombatVars builds the full variable set for an action: the actor's stats
// under their canonical names plus the target's under the ENEMY_ prefix.
func CombatVars(actor, target *Combatant) Vars {
	v := Vars{
		"ATK":   float64(actor.Atk),
		"DEF":   float64(actor.Def),
		"MO":    float64(actor.MagicOff),
		"MD":    float64(actor.MagicDef),
		"SPEED": float64(actor.Speed),
		"LUCK":  float64(actor.Luck),
		"MAXHP": float64(actor.MaxHP),
		"MAXMP": float64(actor.MaxMP),
		"LVL":   float64(actor.Level),
	}
	if target != nil {
		v["ENEMY_ATK"] = float64(target.Atk)
		v["ENEMY_DEF"] = float64(target.Def)
		v["ENEMY_MO"] = float64(target.MagicOff)
		v["ENEMY_MD"] = float64(target.MagicDef)
		v["ENEMY_SPEED"] = float64(target.Speed)
		v["ENEMY_LUCK"] = float64(target.Luck)
		v["ENEMY_MAXHP"] = float64(target.MaxHP)
		v["ENEMY_MAXMP"] = float64(target.MaxMP)
		v["ENEMY_LVL"] = float64(target.Level)
	}
	return v
}

// SelfVars builds the restricted variable set used by status ticks: only the
// holder's own stats, no ENEMY_ mirror.
func SelfVars(holder *Combatant) Vars {
	return CombatVars(holder, nil)
}
