package narration

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// builtinRules are applied before any user rules.
const builtinRules = `
# hashtags are read as words
s/#(\w+)/hashtag $1/g
 & => and
`

type rule interface {
	Apply(input string) (output string, changed bool)
}

// RuleParser parses one lexicon line into a rule.
type RuleParser interface {
	CanParse(line string) bool
	Parse(line string) (rule, error)
}

// Lexicon rewrites text before it is spoken so the synthesizer pronounces
// card names and tags the way the user expects.
type Lexicon struct {
	rules     []rule
	loopLimit int
}

// NewLexicon loads the built-in rules followed by the rules in path. A blank
// or missing path yields only the built-in rules.
func NewLexicon(path string, loopLimit int) (*Lexicon, error) {
	return NewLexiconWithParsers(path, loopLimit, defaultRuleParsers())
}

// NewLexiconWithParsers allows extra rule formats.
func NewLexiconWithParsers(path string, loopLimit int, parsers []RuleParser) (*Lexicon, error) {
	if loopLimit <= 0 {
		loopLimit = 10
	}
	if len(parsers) == 0 {
		parsers = defaultRuleParsers()
	}

	rules, err := parseRules(builtinRules, parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in lexicon: %w", err)
	}
	lex := &Lexicon{rules: rules, loopLimit: loopLimit}

	if strings.TrimSpace(path) == "" {
		return lex, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return lex, nil
		}
		return nil, fmt.Errorf("failed to read lexicon %q: %w", path, err)
	}

	extra, err := parseRules(string(contents), parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lexicon %q: %w", path, err)
	}
	lex.rules = append(lex.rules, extra...)
	return lex, nil
}

// Apply rewrites text until no rule changes it or the loop limit is hit.
func (l *Lexicon) Apply(text string) string {
	if l == nil || len(l.rules) == 0 {
		return text
	}

	result := text
	for i := 0; i < l.loopLimit; i++ {
		changed := false
		for _, r := range l.rules {
			next, ruleChanged := r.Apply(result)
			if ruleChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result
}

// Len reports the number of loaded rules.
func (l *Lexicon) Len() int {
	if l == nil {
		return 0
	}
	return len(l.rules)
}

func parseRules(contents string, parsers []RuleParser) ([]rule, error) {
	lines := strings.Split(contents, "\n")
	rules := make([]rule, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed := false
		for _, parser := range parsers {
			if !parser.CanParse(line) {
				continue
			}
			r, err := parser.Parse(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", index+1, err)
			}
			rules = append(rules, r)
			parsed = true
			break
		}

		if !parsed {
			return nil, fmt.Errorf("line %d: unsupported rule format", index+1)
		}
	}

	return rules, nil
}

func defaultRuleParsers() []RuleParser {
	return []RuleParser{regexRuleParser{}, wordRuleParser{}}
}

type wordRuleParser struct{}

func (wordRuleParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (wordRuleParser) Parse(line string) (rule, error) {
	return parseWordRule(line)
}

type regexRuleParser struct{}

func (regexRuleParser) CanParse(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isAlphaNumericOrSpace(line[1])
}

func (regexRuleParser) Parse(line string) (rule, error) {
	return parseRegexRule(line)
}

// wordRule replaces a phrase case-insensitively. Phrases that start or end
// with a letter only match on word boundaries, so "Ace" leaves "Grace" alone.
type wordRule struct {
	re          *regexp.Regexp
	replacement string
}

func parseWordRule(line string) (rule, error) {
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return nil, errors.New("invalid word rule")
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("word rule source cannot be empty")
	}

	pattern := regexp.QuoteMeta(from)
	if isWordByte(from[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(from[len(from)-1]) {
		pattern += `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid word rule source: %w", err)
	}

	if !isWordByte(from[0]) && !isWordByte(from[len(from)-1]) {
		to = " " + to + " "
	}
	return wordRule{re: re, replacement: to}, nil
}

func (r wordRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.replacement)
	if output != input {
		output = strings.Join(strings.Fields(output), " ")
	}
	return output, output != input
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func parseRegexRule(line string) (rule, error) {
	delim := line[1]
	pattern, pos, err := parseDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := parseDelimited(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}

	prefix := "i"
	global := false
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'i':
		case 'g':
			global = true
		case 'm', 's':
			if !strings.ContainsRune(prefix, flag) {
				prefix += string(flag)
			}
		case ' ':
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: replacement, global: global}, nil
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	loc := r.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input, false
	}
	replaced := r.re.ExpandString(nil, r.replacement, input, loc)
	output := input[:loc[0]] + string(replaced) + input[loc[1]:]
	return output, output != input
}

func parseDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		if escaped {
			if char != delim {
				builder.WriteByte('\\')
			}
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isWordByte(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '_'
}

func isAlphaNumericOrSpace(char byte) bool {
	return isWordByte(char) && char != '_' || char == ' ' || char == '\t'
}
