// Package search ranks cached products against a free-text query when the
// upstream search cannot be asked. The index is built once from a snapshot
// and is read-only afterwards, so one Index may serve concurrent searches.
//
// Each query term scores the best field it appears in: a title hit is worth
// twice a body hit. The last term also matches as a prefix at half weight, so
// "ste swo" finds "Steel sword" while the user is still typing. The score is
// the weight collected divided by the best possible weight, which puts it in
// (0, 1].
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	titleWeight = 2.0
	bodyWeight  = 1.0
	// prefixFactor scales a prefix-only match of the last query term.
	prefixFactor = 0.5
	// minPrefix is the shortest last term that is expanded as a prefix.
	minPrefix = 2
)

// Doc is one searchable product.
type Doc struct {
	ID    string
	Title string
	// Body holds the rest of the searchable text (tags, description).
	Body string
}

// Hit is a matching document id and its score.
type Hit struct {
	ID    string
	Score float64
}

// Option configures New.
type Option func(*Index)

// WithStopwords drops the given words from documents and queries.
func WithStopwords(words ...string) Option {
	return func(ix *Index) {
		for _, w := range words {
			if w = normalize(strings.TrimSpace(w)); w != "" {
				ix.stop[w] = struct{}{}
			}
		}
	}
}

// WithoutPrefix turns off prefix matching of the last query term.
func WithoutPrefix() Option {
	return func(ix *Index) { ix.prefix = false }
}

type posting struct {
	doc    int
	weight float64
}

type entry struct {
	id       string
	titleLen int
}

// Index is an inverted index over Docs.
type Index struct {
	stop   map[string]struct{}
	prefix bool

	docs     []entry
	postings map[string][]posting
	// vocab is the sorted term list used for prefix lookups.
	vocab []string
}

// New indexes docs. Documents without any indexable term are left out.
func New(docs []Doc, opts ...Option) *Index {
	ix := &Index{
		stop:     make(map[string]struct{}),
		prefix:   true,
		postings: make(map[string][]posting),
	}
	for _, o := range opts {
		o(ix)
	}

	for _, d := range docs {
		weights := make(map[string]float64)
		for _, t := range ix.terms(d.Body) {
			weights[t] = bodyWeight
		}
		for _, t := range ix.terms(d.Title) {
			weights[t] = titleWeight
		}
		if len(weights) == 0 {
			continue
		}
		n := len(ix.docs)
		ix.docs = append(ix.docs, entry{id: d.ID, titleLen: len(d.Title)})
		for t, w := range weights {
			ix.postings[t] = append(ix.postings[t], posting{doc: n, weight: w})
		}
	}

	ix.vocab = make([]string, 0, len(ix.postings))
	for t := range ix.postings {
		ix.vocab = append(ix.vocab, t)
	}
	sort.Strings(ix.vocab)
	return ix
}

// Len is the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// Search returns up to k hits, best first (k <= 0 means 10). Equal scores
// prefer the shorter title, then the smaller id.
func (ix *Index) Search(query string, k int) []Hit {
	if k <= 0 {
		k = 10
	}
	q := ix.terms(query)
	if len(q) == 0 || len(ix.docs) == 0 {
		return nil
	}

	total := make(map[int]float64)
	for i, term := range q {
		best := make(map[int]float64)
		for _, p := range ix.postings[term] {
			best[p.doc] = p.weight
		}
		if ix.prefix && i == len(q)-1 && len([]rune(term)) >= minPrefix {
			for _, t := range ix.expand(term) {
				for _, p := range ix.postings[t] {
					best[p.doc] = max(best[p.doc], p.weight*prefixFactor)
				}
			}
		}
		for d, w := range best {
			total[d] += w
		}
	}
	if len(total) == 0 {
		return nil
	}

	type ranked struct {
		Hit
		titleLen int
	}
	ceiling := titleWeight * float64(len(q))
	all := make([]ranked, 0, len(total))
	for d, w := range total {
		all = append(all, ranked{Hit{ID: ix.docs[d].id, Score: w / ceiling}, ix.docs[d].titleLen})
	}
	sort.Slice(all, func(a, b int) bool {
		ra, rb := all[a], all[b]
		if ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		if ra.titleLen != rb.titleLen {
			return ra.titleLen < rb.titleLen
		}
		return ra.ID < rb.ID
	})
	hits := make([]Hit, 0, min(k, len(all)))
	for _, r := range all[:min(k, len(all))] {
		hits = append(hits, r.Hit)
	}
	return hits
}

// expand lists the indexed terms that start with prefix, excluding prefix
// itself.
func (ix *Index) expand(prefix string) []string {
	var out []string
	for i := sort.SearchStrings(ix.vocab, prefix); i < len(ix.vocab); i++ {
		t := ix.vocab[i]
		if !strings.HasPrefix(t, prefix) {
			break
		}
		if t != prefix {
			out = append(out, t)
		}
	}
	return out
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// terms returns the distinct normalized words of s in order of appearance,
// without stop words.
func (ix *Index) terms(s string) []string {
	words := wordRE.FindAllString(normalize(s), -1)
	seen := make(map[string]struct{}, len(words))
	out := words[:0]
	for _, w := range words {
		if _, stop := ix.stop[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// normalize case folds s and strips combining marks so "Épée" and "epee"
// compare equal. Transformers hold state, so a fresh chain is built per call.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
