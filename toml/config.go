// Package toml loads docmirror configuration from a TOML file and the
// environment.
package toml

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/fwojciec/docmirror/crawl"
	"github.com/fwojciec/docmirror/gemini"
	"github.com/fwojciec/docmirror/goldmark"
	"github.com/fwojciec/docmirror/goquery"
	dmhttp "github.com/fwojciec/docmirror/http"
	"github.com/fwojciec/docmirror/index"
	"github.com/fwojciec/docmirror/qdrant"
	"github.com/fwojciec/docmirror/schedule"
	"github.com/fwojciec/docmirror/search"
	"github.com/fwojciec/docmirror/xxhash"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by Load.
const (
	EnvConfig  = "DOCMIRROR_CONFIG"
	EnvDataDir = "DOCMIRROR_DATA_DIR"
	EnvDB      = "DOCMIRROR_DB"
	EnvAPIKey  = "GEMINI_API_KEY"
)

// Embedding providers.
const (
	ProviderGemini = "gemini"
	ProviderXXHash = "xxhash"
)

// Vector stores.
const (
	StoreSQLite = "sqlite"
	StoreQdrant = "qdrant"
)

// Config is the full docmirror configuration.
type Config struct {
	DataDir string `toml:"data_dir"`
	DB      string `toml:"db"`
	Listen  string `toml:"listen"`

	Embedding EmbeddingConfig `toml:"embedding"`
	Chunk     ChunkConfig     `toml:"chunk"`
	Index     IndexConfig     `toml:"index"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Search    SearchConfig    `toml:"search"`
	Crawl     CrawlConfig     `toml:"crawl"`
	Ask       AskConfig       `toml:"ask"`

	// Priorities maps source categories to priority tiers.
	Priorities map[string]int `toml:"priorities"`

	// Schemas holds structured extraction schemas by name.
	Schemas map[string]goquery.Schema `toml:"schemas"`

	Sources []docmirror.SourceCandidate `toml:"sources"`

	// APIKey is read from the environment only.
	APIKey string `toml:"-"`
}

// EmbeddingConfig selects and sizes the embedder.
type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	BatchSize  int    `toml:"batch_size"`
	BaseURL    string `toml:"base_url"`
}

// ChunkConfig bounds chunk sizes, in runes.
type ChunkConfig struct {
	MaxSize int `toml:"max_size"`
	Overlap int `toml:"overlap"`
}

// IndexConfig selects the vector store and snapshot retention.
type IndexConfig struct {
	Retention   int           `toml:"retention"`
	VectorStore string        `toml:"vector_store"`
	Qdrant      qdrant.Config `toml:"qdrant"`
}

// ScheduleConfig controls automatic updates.
type ScheduleConfig struct {
	Cadence  Duration `toml:"cadence"`
	Interval Duration `toml:"interval"`
}

// SearchConfig tunes ranking.
type SearchConfig struct {
	CandidateFactor int            `toml:"candidate_factor"`
	SnippetLength   int            `toml:"snippet_length"`
	Weights         search.Weights `toml:"weights"`
}

// CrawlConfig controls fetching.
type CrawlConfig struct {
	UserAgent     string     `toml:"user_agent"`
	Timeout       Duration   `toml:"timeout"`
	RenderTimeout Duration   `toml:"render_timeout"`
	RetryDelays   []Duration `toml:"retry_delays"`
}

// AskConfig configures question answering.
type AskConfig struct {
	Model   string `toml:"model"`
	Results int    `toml:"results"`
}

// Duration is a time.Duration written as a string such as "90s" or "24h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is present. Paths
// are relative to dataDir.
func Default(dataDir string) *Config {
	var delays []Duration
	for _, d := range crawl.DefaultRetryDelays() {
		delays = append(delays, Duration(d))
	}
	return &Config{
		DataDir: dataDir,
		Listen:  "127.0.0.1:8484",
		Embedding: EmbeddingConfig{
			Provider:   ProviderXXHash,
			Dimensions: xxhash.DefaultDimensions,
			BatchSize:  index.DefaultBatchSize,
		},
		Chunk: ChunkConfig{
			MaxSize: goldmark.DefaultMaxSize,
			Overlap: goldmark.DefaultOverlap,
		},
		Index: IndexConfig{
			Retention:   index.DefaultRetention,
			VectorStore: StoreSQLite,
			Qdrant:      qdrant.Config{Host: "localhost", Collection: qdrant.DefaultCollection},
		},
		Schedule: ScheduleConfig{
			Cadence:  Duration(schedule.DefaultCadence),
			Interval: Duration(schedule.DefaultInterval),
		},
		Search: SearchConfig{
			CandidateFactor: search.DefaultCandidateFactor,
			SnippetLength:   search.DefaultSnippetLength,
			Weights:         search.DefaultWeights(),
		},
		Crawl: CrawlConfig{
			UserAgent:     dmhttp.DefaultUserAgent,
			Timeout:       Duration(dmhttp.DefaultFetchTimeout),
			RenderTimeout: Duration(30 * time.Second),
			RetryDelays:   delays,
		},
		Ask: AskConfig{
			Model:   gemini.DefaultGenerationModel,
			Results: gemini.DefaultContextResults,
		},
	}
}

// DefaultDataDir returns ~/.docmirror, or .docmirror when the home
// directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docmirror"
	}
	return filepath.Join(home, ".docmirror")
}

// LoadEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return docmirror.Errorf(docmirror.EINVALID, "load %s: %v", f, err)
		}
	}
	return nil
}

// Load reads the configuration at path. An empty path falls back to
// $DOCMIRROR_CONFIG, then to config.toml in the default data directory;
// only an explicitly named file must exist. Environment variables override
// the data directory, database path and API key.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	dataDir := DefaultDataDir()
	if !explicit {
		path = filepath.Join(dataDir, "config.toml")
	}

	cfg := Default(dataDir)
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := Decode(f, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, docmirror.Errorf(docmirror.EINVALID, "open config: %v", err)
	}

	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		cfg.DB = v
	}
	cfg.APIKey = os.Getenv(EnvAPIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads TOML from r over cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return docmirror.Errorf(docmirror.EINVALID, "unknown config keys:\n%s", strict.String())
		}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return docmirror.Errorf(docmirror.EINVALID, "config line %d column %d: %s", row, col, de.Error())
		}
		return docmirror.Errorf(docmirror.EINVALID, "config: %v", err)
	}
	return nil
}

// Validate reports the first configuration error as EINVALID.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return docmirror.Errorf(docmirror.EINVALID, "data_dir required")
	}
	switch c.Embedding.Provider {
	case ProviderXXHash:
	case ProviderGemini:
		if c.APIKey == "" {
			return docmirror.Errorf(docmirror.EINVALID, "%s must be set for the gemini embedding provider", EnvAPIKey)
		}
	default:
		return docmirror.Errorf(docmirror.EINVALID, "unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 || c.Embedding.BatchSize < 0 {
		return docmirror.Errorf(docmirror.EINVALID, "embedding sizes must not be negative")
	}
	if c.Chunk.MaxSize <= 0 {
		return docmirror.Errorf(docmirror.EINVALID, "chunk.max_size must be positive")
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.MaxSize {
		return docmirror.Errorf(docmirror.EINVALID, "chunk.overlap must be between 0 and max_size")
	}
	if c.Index.Retention < 1 {
		return docmirror.Errorf(docmirror.EINVALID, "index.retention must be at least 1")
	}
	switch c.Index.VectorStore {
	case StoreSQLite:
	case StoreQdrant:
		if c.Index.Qdrant.Host == "" {
			return docmirror.Errorf(docmirror.EINVALID, "index.qdrant.host required")
		}
	default:
		return docmirror.Errorf(docmirror.EINVALID, "unknown vector store %q", c.Index.VectorStore)
	}
	if c.Schedule.Cadence <= 0 {
		return docmirror.Errorf(docmirror.EINVALID, "schedule.cadence must be positive")
	}
	w := c.Search.Weights
	if w.Similarity < 0 || w.Lexical < 0 || w.Priority < 0 || w.Freshness < 0 {
		return docmirror.Errorf(docmirror.EINVALID, "search weights must not be negative")
	}
	if w.Freshness > 0 && w.HalfLifeDays <= 0 {
		return docmirror.Errorf(docmirror.EINVALID, "search.weights.half_life_days must be positive when freshness is weighted")
	}
	for _, s := range c.Sources {
		if s.Schema != "" {
			if _, ok := c.Schemas[s.Schema]; !ok {
				return docmirror.Errorf(docmirror.EINVALID, "source %q uses unknown schema %q", s.Name, s.Schema)
			}
		}
	}
	return nil
}

// DBPath returns the SQLite database path.
func (c *Config) DBPath() string {
	if c.DB != "" {
		return c.DB
	}
	return filepath.Join(c.DataDir, "docmirror.db")
}

// SnapshotDir returns the root of the snapshot store.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}

// RetryDelays returns the crawl retry delays.
func (c *Config) RetryDelays() []time.Duration {
	delays := make([]time.Duration, len(c.Crawl.RetryDelays))
	for i, d := range c.Crawl.RetryDelays {
		delays[i] = d.Std()
	}
	return delays
}
