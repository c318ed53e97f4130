package keyword

import (
	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

const edgeNgramAnalyzerName = "xfeed_edge_ngram"

// keywordDoc is the shape indexed for every record, matching the five
// logical fields the schema names: id, type, text, text_prefix,
// created_at. text and text_prefix carry the same content indexed by two
// different analyzers.
type keywordDoc struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Text       string `json:"text"`
	TextPrefix string `json:"text_prefix"`
	CreatedAt  int64  `json:"created_at"`
}

// buildIndexMapping constructs the bleve index mapping for the schema:
// standard analyzer (not English — deliberately no stemming, so search
// results and tie-break order stay predictable) on "text", an edge-n-gram
// analyzer bounded by [ngramMin, ngramMax] on "text_prefix", keyword
// (untokenized) fields for "id"/"type", and a numeric field for
// "created_at".
func buildIndexMapping(ngramMin, ngramMax int) (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomTokenFilter("xfeed_edge_ngram_filter", map[string]any{
		"type": edgengram.Name,
		"min":  float64(ngramMin),
		"max":  float64(ngramMax),
		"back": false,
	}); err != nil {
		return nil, err
	}
	if err := im.AddCustomAnalyzer(edgeNgramAnalyzerName, map[string]any{
		"type":          "custom",
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, "xfeed_edge_ngram_filter"},
	}); err != nil {
		return nil, err
	}

	idFM := bleve.NewTextFieldMapping()
	idFM.Analyzer = "keyword"
	idFM.Store = true
	idFM.Index = true

	typeFM := bleve.NewTextFieldMapping()
	typeFM.Analyzer = "keyword"
	typeFM.Store = true
	typeFM.Index = true

	textFM := bleve.NewTextFieldMapping()
	textFM.Analyzer = "standard"
	textFM.Store = true
	textFM.Index = true
	textFM.IncludeTermVectors = true

	textPrefixFM := bleve.NewTextFieldMapping()
	textPrefixFM.Analyzer = edgeNgramAnalyzerName
	textPrefixFM.Store = false
	textPrefixFM.Index = true

	createdAtFM := bleve.NewNumericFieldMapping()
	createdAtFM.Store = true
	createdAtFM.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", idFM)
	docMapping.AddFieldMappingsAt("type", typeFM)
	docMapping.AddFieldMappingsAt("text", textFM)
	docMapping.AddFieldMappingsAt("text_prefix", textPrefixFM)
	docMapping.AddFieldMappingsAt("created_at", createdAtFM)

	im.DefaultMapping = docMapping
	return im, nil
}
