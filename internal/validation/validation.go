// Package validation implements the Trusted Host's SQL-surface screening:
// a short-circuit, ordered rule table rather than a single monolithic
// regex, per the reimplementation note in the original spec ("dedicated
// mini-parser or curated rule table ... so it can be audited and
// extended"). The precompiled-pattern-list-plus-stats-counter shape is
// grounded on proxy-dblb/internal/security.Checker.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Rule is one stage of the validation sequence. Check returns ok=false and
// a human-readable reason on rejection.
type Rule struct {
	Name  string
	Check func(req Candidate) (ok bool, reason string)
}

// Candidate is everything a rule needs to evaluate a request.
type Candidate struct {
	Query         string
	Authorization bool
}

var (
	// forbiddenPattern matches a same-line SQL comment marker or one of the
	// reserved verbs, as whole words, case-insensitively.
	//
	// NOTE: "OR" and "TRUE" are rejected anywhere as whole words, which is
	// known to be over-broad (it blocks any legitimate condition using
	// boolean OR or the literal TRUE; identifiers that merely contain "or",
	// such as "store", do not match). Preserved verbatim for behavioral compatibility with the
	// deployed system; flagged here, not silently fixed, per the original
	// spec's open question.
	forbiddenPattern = regexp.MustCompile(`(?i)(--|\b(ALTER|DROP|TRUNCATE|UPDATE|EXEC|OR|TRUE)\b)`)

	// whereClausePattern requires a non-empty WHERE clause following FROM
	// for SELECT/DELETE statements.
	whereClausePattern = regexp.MustCompile(`(?is)^\s*(SELECT|DELETE)\b.*\bFROM\b.*\bWHERE\b\s*\S`)

	// tautologyPattern extracts "N = N" shaped numeric comparisons from the
	// WHERE clause.
	tautologyPattern = regexp.MustCompile(`(\d+)\s*=\s*(\d+)`)

	whereSplitPattern = regexp.MustCompile(`(?i)\bWHERE\b`)
)

const maxQueryLength = 1000

// Checker runs the ordered rule table and tracks pass/fail counts, mirroring
// proxy-dblb/internal/security.Checker's inspected/blocked counters.
type Checker struct {
	rules    []Rule
	inspected int64
	rejected  int64
	logger    *logrus.Logger
	mu        sync.Mutex
}

// NewChecker builds the standard five-stage Trusted Host rule table.
func NewChecker(logger *logrus.Logger) *Checker {
	c := &Checker{logger: logger}
	c.rules = []Rule{
		{Name: "forbidden-keyword", Check: checkForbiddenKeyword},
		{Name: "where-clause", Check: checkWhereClause},
		{Name: "tautology", Check: checkTautology},
		{Name: "authorization", Check: checkAuthorization},
		{Name: "length-cap", Check: checkLength},
	}
	return c
}

// Validate runs every rule in order, returning the first failure.
func (c *Checker) Validate(query string, authorization bool) (ok bool, reason string) {
	c.mu.Lock()
	c.inspected++
	c.mu.Unlock()

	cand := Candidate{Query: query, Authorization: authorization}
	for _, rule := range c.rules {
		if ok, reason := rule.Check(cand); !ok {
			c.mu.Lock()
			c.rejected++
			c.mu.Unlock()
			if c.logger != nil {
				c.logger.WithFields(logrus.Fields{
					"component": "validation",
					"rule":      rule.Name,
					"reason":    reason,
				}).Warn("query rejected")
			}
			return false, reason
		}
	}
	return true, ""
}

// Stats reports cumulative inspected/rejected counts.
func (c *Checker) Stats() (inspected, rejected int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inspected, c.rejected
}

func checkForbiddenKeyword(cand Candidate) (bool, string) {
	if forbiddenPattern.MatchString(cand.Query) {
		return false, "Possible SQL injection detected"
	}
	return true, ""
}

func checkWhereClause(cand Candidate) (bool, string) {
	leading := leadingKeyword(cand.Query)
	if leading != "select" && leading != "delete" {
		return true, ""
	}
	if !whereClausePattern.MatchString(cand.Query) {
		return false, "Missing where in query"
	}
	return true, ""
}

func checkTautology(cand Candidate) (bool, string) {
	if leadingKeyword(cand.Query) != "select" {
		return true, ""
	}

	parts := whereSplitPattern.Split(cand.Query, 2)
	if len(parts) < 2 {
		return true, ""
	}
	whereClause := parts[1]

	for _, match := range tautologyPattern.FindAllStringSubmatch(whereClause, -1) {
		left, right := match[1], match[2]
		ln, lerr := strconv.Atoi(left)
		rn, rerr := strconv.Atoi(right)
		if lerr == nil && rerr == nil && ln == rn {
			return false, fmt.Sprintf("Tautological condition %s=%s is prohibited.", left, right)
		}
	}
	return true, ""
}

func checkAuthorization(cand Candidate) (bool, string) {
	if !cand.Authorization {
		return false, "Authorization required"
	}
	return true, ""
}

func checkLength(cand Candidate) (bool, string) {
	if len(cand.Query) > maxQueryLength {
		return false, "Query too large"
	}
	return true, ""
}

func leadingKeyword(query string) string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ""
	}
	fields := strings.Fields(trimmed)
	return strings.ToLower(fields[0])
}
