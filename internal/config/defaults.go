package config

const (
	defaultDatabasePath     = "./xfeed.db"
	defaultKeywordIndexPath = "./xfeed.kwidx"
	defaultVectorIndexPath  = "./xfeed.xfvi"

	defaultEdgeNGramMin = 2
	defaultEdgeNGramMax = 8
	defaultSegmentSize  = 1000

	defaultEmbedderDimension = 384

	defaultSearchLimit              = 20
	defaultSearchMaxLimit           = 200
	defaultHybridCandidateMultiplier = 4
	defaultHybridCandidateCap       = 200
	defaultRRFConstant             = 60
)

// ApplyDefaults fills in every zero-valued field of cfg with its
// documented default. It is safe to call on a partially populated
// config loaded from a YAML file that only sets a few fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaultDatabasePath
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = defaultKeywordIndexPath
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = defaultVectorIndexPath
	}

	if cfg.Keyword.EdgeNGramMin == 0 {
		cfg.Keyword.EdgeNGramMin = defaultEdgeNGramMin
	}
	if cfg.Keyword.EdgeNGramMax == 0 {
		cfg.Keyword.EdgeNGramMax = defaultEdgeNGramMax
	}
	if cfg.Keyword.SegmentSize == 0 {
		cfg.Keyword.SegmentSize = defaultSegmentSize
	}

	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = defaultEmbedderDimension
	}

	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = defaultSearchLimit
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = defaultSearchMaxLimit
	}
	if cfg.Search.HybridCandidateMultiplier == 0 {
		cfg.Search.HybridCandidateMultiplier = defaultHybridCandidateMultiplier
	}
	if cfg.Search.HybridCandidateCap == 0 {
		cfg.Search.HybridCandidateCap = defaultHybridCandidateCap
	}
	if cfg.Search.RRFConstant == 0 {
		cfg.Search.RRFConstant = defaultRRFConstant
	}
}
