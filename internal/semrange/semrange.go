// Package semrange parses npm-style version ranges (^1.2, ~1.2.3, 1.x,
// 1.2.3 - 1.4, >=1.0.0 <2.0.0 || 3.x) into matchers over semver versions.
//
// Prerelease versions are eligible: a prerelease satisfies a range when it
// falls between the bounds. Exclusive upper bounds produced by desugaring use
// the lowest possible prerelease (X.Y.Z-0), so ^1.2.0 matches 1.9.0-beta but
// not 2.0.0-beta.
package semrange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
)

var ErrInvalidRange = errors.New("invalid version range")

var (
	reOpSpace = regexp.MustCompile(`(~>|~|\^|>=|<=|!=|>|<|=)\s+`)
	reHyphen  = regexp.MustCompile(`^(\S+)\s+-\s+(\S+)$`)
)

// operators ordered so that longer prefixes win.
var operators = []string{">=", "<=", "!=", "~>", ">", "<", "=", "~", "^"}

type comparator struct {
	op string
	v  semver.Version
}

func (c comparator) match(v semver.Version) bool {
	switch c.op {
	case ">":
		return v.GT(c.v)
	case ">=":
		return v.GTE(c.v)
	case "<":
		return v.LT(c.v)
	case "<=":
		return v.LTE(c.v)
	case "!=":
		return v.NE(c.v)
	default:
		return v.EQ(c.v)
	}
}

func (c comparator) String() string {
	return c.op + c.v.String()
}

// Range is a union of comparator sets. An empty set matches every version.
type Range struct {
	sets [][]comparator
}

// Parse parses expr. An empty expression is the same as "*".
func Parse(expr string) (Range, error) {
	expr = reOpSpace.ReplaceAllString(strings.TrimSpace(expr), "$1")

	var r Range
	for _, part := range strings.Split(expr, "||") {
		set, err := parseSet(strings.TrimSpace(part))
		if err != nil {
			return Range{}, fmt.Errorf("%w (%s): %w", ErrInvalidRange, expr, err)
		}

		r.sets = append(r.sets, set)
	}

	return r, nil
}

// Contains reports whether v satisfies the range.
func (r Range) Contains(v semver.Version) bool {
	for _, set := range r.sets {
		if matchAll(set, v) {
			return true
		}
	}

	return false
}

// String returns the desugared form, e.g. ">=1.2.0 <2.0.0-0 || =3.0.0".
func (r Range) String() string {
	sets := make([]string, 0, len(r.sets))
	for _, set := range r.sets {
		if len(set) == 0 {
			sets = append(sets, "*")
			continue
		}

		cmps := make([]string, 0, len(set))
		for _, c := range set {
			cmps = append(cmps, c.String())
		}

		sets = append(sets, strings.Join(cmps, " "))
	}

	return strings.Join(sets, " || ")
}

// MaxSatisfying returns the highest version in versions that satisfies r.
func MaxSatisfying(r Range, versions []semver.Version) (semver.Version, bool) {
	var (
		best  semver.Version
		found bool
	)

	for _, v := range versions {
		if !r.Contains(v) {
			continue
		}

		if !found || v.GT(best) {
			best = v
			found = true
		}
	}

	return best, found
}

func matchAll(set []comparator, v semver.Version) bool {
	for _, c := range set {
		if !c.match(v) {
			return false
		}
	}

	return true
}

func parseSet(s string) ([]comparator, error) {
	if m := reHyphen.FindStringSubmatch(s); m != nil {
		from, err := parsePartial(m[1])
		if err != nil {
			return nil, err
		}

		to, err := parsePartial(m[2])
		if err != nil {
			return nil, err
		}

		return hyphen(from, to), nil
	}

	res := make([]comparator, 0, 2)
	for _, tok := range strings.Fields(s) {
		cmps, err := parseComparator(tok)
		if err != nil {
			return nil, err
		}

		res = append(res, cmps...)
	}

	return res, nil
}

func parseComparator(tok string) ([]comparator, error) {
	var op string
	for _, candidate := range operators {
		if strings.HasPrefix(tok, candidate) {
			op = candidate
			break
		}
	}

	p, err := parsePartial(strings.TrimPrefix(tok, op))
	if err != nil {
		return nil, err
	}

	switch op {
	case "", "=":
		return xRange(p), nil
	case "~", "~>":
		return tilde(p), nil
	case "^":
		return caret(p), nil
	case "!=":
		if p.n < 3 {
			return nil, fmt.Errorf("partial version in (%s)", tok)
		}

		return []comparator{{op: op, v: p.version()}}, nil
	default:
		return primitive(op, p), nil
	}
}

// partial is a version with up to three numeric parts; missing or x/X/* parts are wildcards.
type partial struct {
	major, minor, patch uint64
	n                   int
	pre                 []semver.PRVersion
}

func (p partial) version() semver.Version {
	return semver.Version{Major: p.major, Minor: p.minor, Patch: p.patch, Pre: p.pre}
}

func isX(s string) bool {
	return s == "x" || s == "X" || s == "*"
}

func parsePartial(s string) (partial, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return partial{}, errors.New("empty version")
	}

	if idx := strings.IndexByte(s, '+'); idx >= 0 {
		s = s[:idx]
	}

	var preStr string
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		s, preStr = s[:idx], s[idx+1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return partial{}, fmt.Errorf("too many version parts (%s)", s)
	}

	var (
		p    partial
		nums [3]uint64
	)

	for _, part := range parts {
		if isX(part) {
			break
		}

		num, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return partial{}, fmt.Errorf("bad version part (%s)", part)
		}

		nums[p.n] = num
		p.n++
	}

	p.major, p.minor, p.patch = nums[0], nums[1], nums[2]

	if preStr != "" {
		if p.n < 3 {
			return partial{}, fmt.Errorf("prerelease on partial version (%s-%s)", s, preStr)
		}

		for _, ident := range strings.Split(preStr, ".") {
			pr, err := semver.NewPRVersion(ident)
			if err != nil {
				return partial{}, fmt.Errorf("bad prerelease (%s): %w", preStr, err)
			}

			p.pre = append(p.pre, pr)
		}
	}

	return p, nil
}

// floor returns major.minor.patch-0, the lowest version with that core.
func floor(major, minor, patch uint64) semver.Version {
	return semver.Version{
		Major: major,
		Minor: minor,
		Patch: patch,
		Pre:   []semver.PRVersion{{VersionNum: 0, IsNum: true}},
	}
}

func xRange(p partial) []comparator {
	switch p.n {
	case 0:
		return nil
	case 1:
		return []comparator{
			{op: ">=", v: floor(p.major, 0, 0)},
			{op: "<", v: floor(p.major+1, 0, 0)},
		}
	case 2:
		return []comparator{
			{op: ">=", v: floor(p.major, p.minor, 0)},
			{op: "<", v: floor(p.major, p.minor+1, 0)},
		}
	}

	return []comparator{{op: "=", v: p.version()}}
}

func primitive(op string, p partial) []comparator {
	if p.n == 3 {
		return []comparator{{op: op, v: p.version()}}
	}

	if p.n == 0 {
		if op == ">" || op == "<" {
			// matches nothing
			return []comparator{{op: "<", v: floor(0, 0, 0)}}
		}

		return nil
	}

	major, minor := p.major, p.minor
	switch op {
	case ">":
		op = ">="
		if p.n == 1 {
			major, minor = major+1, 0
		} else {
			minor++
		}
	case "<=":
		op = "<"
		if p.n == 1 {
			major++
		} else {
			minor++
		}
	}

	return []comparator{{op: op, v: floor(major, minor, 0)}}
}

func tilde(p partial) []comparator {
	switch p.n {
	case 0:
		return nil
	case 1:
		return []comparator{
			{op: ">=", v: semver.Version{Major: p.major}},
			{op: "<", v: floor(p.major+1, 0, 0)},
		}
	}

	return []comparator{
		{op: ">=", v: p.version()},
		{op: "<", v: floor(p.major, p.minor+1, 0)},
	}
}

func caret(p partial) []comparator {
	switch p.n {
	case 0:
		return nil
	case 1:
		return []comparator{
			{op: ">=", v: floor(p.major, 0, 0)},
			{op: "<", v: floor(p.major+1, 0, 0)},
		}
	case 2:
		upper := floor(p.major+1, 0, 0)
		if p.major == 0 {
			upper = floor(0, p.minor+1, 0)
		}

		return []comparator{
			{op: ">=", v: floor(p.major, p.minor, 0)},
			{op: "<", v: upper},
		}
	}

	upper := floor(p.major+1, 0, 0)
	switch {
	case p.major == 0 && p.minor == 0:
		upper = floor(0, 0, p.patch+1)
	case p.major == 0:
		upper = floor(0, p.minor+1, 0)
	}

	return []comparator{
		{op: ">=", v: p.version()},
		{op: "<", v: upper},
	}
}

func hyphen(from, to partial) []comparator {
	res := make([]comparator, 0, 2)

	switch {
	case from.n == 0:
	case from.n == 3 && len(from.pre) != 0:
		res = append(res, comparator{op: ">=", v: from.version()})
	default:
		res = append(res, comparator{op: ">=", v: floor(from.major, from.minor, from.patch)})
	}

	switch {
	case to.n == 0:
	case to.n == 1:
		res = append(res, comparator{op: "<", v: floor(to.major+1, 0, 0)})
	case to.n == 2:
		res = append(res, comparator{op: "<", v: floor(to.major, to.minor+1, 0)})
	case len(to.pre) != 0:
		res = append(res, comparator{op: "<=", v: to.version()})
	default:
		res = append(res, comparator{op: "<", v: floor(to.major, to.minor, to.patch+1)})
	}

	return res
}
