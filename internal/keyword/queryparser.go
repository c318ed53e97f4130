package keyword

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
)

type tokenKind int

const (
	tokTerm tokenKind = iota
	tokPhrase
	tokAnd
	tokOr
	tokNot
)

type qtoken struct {
	kind tokenKind
	text string
}

// tokenize splits a query string into quoted phrases, the case-sensitive
// infix operators AND/OR/NOT, and bare terms, per the schema's query
// grammar.
func tokenize(q string) []qtoken {
	var out []qtoken
	i := 0
	for i < len(q) {
		c := q[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '"':
			j := i + 1
			for j < len(q) && q[j] != '"' {
				j++
			}
			phrase := q[i+1 : min(j, len(q))]
			if phrase != "" {
				out = append(out, qtoken{kind: tokPhrase, text: phrase})
			}
			if j < len(q) {
				j++
			}
			i = j
		default:
			j := i
			for j < len(q) && q[j] != ' ' && q[j] != '\t' && q[j] != '\n' && q[j] != '"' {
				j++
			}
			word := q[i:j]
			switch word {
			case "AND":
				out = append(out, qtoken{kind: tokAnd})
			case "OR":
				out = append(out, qtoken{kind: tokOr})
			case "NOT":
				out = append(out, qtoken{kind: tokNot})
			default:
				if word != "" {
					out = append(out, qtoken{kind: tokTerm, text: word})
				}
			}
			i = j
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// buildTermOrPrefixQuery turns one bare term into a term query, or, if
// it has a trailing '*', a wildcard query routed at the text_prefix
// field (the edge-n-gram field).
func buildTermOrPrefixQuery(term string) bleveQuery.Query {
	if strings.HasSuffix(term, "*") && len(term) > 1 {
		stem := strings.ToLower(strings.TrimSuffix(term, "*"))
		wq := bleve.NewWildcardQuery(stem + "*")
		wq.SetField("text_prefix")
		return wq
	}
	tq := bleve.NewMatchQuery(term)
	tq.SetField("text")
	return tq
}

func buildPhraseQuery(phrase string) bleveQuery.Query {
	pq := bleve.NewMatchPhraseQuery(phrase)
	pq.SetField("text")
	return pq
}

// Parse builds a bleve query from the subset of syntax the schema
// supports: quoted phrases become positional phrase queries; bare terms
// become term queries OR'd together by default; AND/OR/NOT (case
// sensitive) change how the surrounding terms combine; a trailing '*' on
// a bare term becomes a prefix query against text_prefix.
//
// A query that parses cleanly is never an error; one with no usable
// tokens (e.g. the empty string) becomes a match-none query, so the caller
// gets an empty result list instead, per the schema's "matches nothing is
// not an error" contract.
func Parse(q string) bleveQuery.Query {
	tokens := tokenize(q)

	var musts, shoulds, mustNots []bleveQuery.Query
	pending := tokOr // default combinator
	lastInShoulds := -1

	appendQuery := func(query bleveQuery.Query) {
		switch pending {
		case tokAnd:
			musts = append(musts, query)
			lastInShoulds = -1
		case tokNot:
			mustNots = append(mustNots, query)
		default:
			shoulds = append(shoulds, query)
			lastInShoulds = len(shoulds) - 1
		}
		pending = tokOr
	}

	for _, t := range tokens {
		switch t.kind {
		case tokAnd:
			if lastInShoulds >= 0 {
				musts = append(musts, shoulds[lastInShoulds])
				shoulds = append(shoulds[:lastInShoulds], shoulds[lastInShoulds+1:]...)
				lastInShoulds = -1
			}
			pending = tokAnd
		case tokOr:
			pending = tokOr
		case tokNot:
			pending = tokNot
		case tokPhrase:
			appendQuery(buildPhraseQuery(t.text))
		case tokTerm:
			appendQuery(buildTermOrPrefixQuery(t.text))
		}
	}

	if len(musts) == 0 && len(shoulds) == 0 && len(mustNots) == 0 {
		return bleve.NewMatchNoneQuery()
	}

	bq := bleve.NewBooleanQuery()
	if len(musts) > 0 {
		bq.AddMust(musts...)
	}
	if len(shoulds) > 0 {
		bq.AddShould(shoulds...)
	}
	if len(mustNots) > 0 {
		bq.AddMustNot(mustNots...)
	}
	return bq
}
