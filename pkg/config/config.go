package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/macropower/sweep/pkg/sweep"
	"github.com/macropower/sweep/pkg/yaml"
)

//go:generate go run ../../internal/schemagen -o sweep.v1beta1.json

var (
	//go:embed default.yaml
	defaultYAML []byte

	//go:embed sweep.v1beta1.json
	schemaJSON []byte

	DefaultValidator = yaml.MustNewValidator("/sweep.v1beta1.json", schemaJSON)

	// ErrMalformedDocument indicates the configuration file could not be
	// parsed or failed schema validation.
	ErrMalformedDocument = errors.New("malformed document")
)

// Config is one loaded version of a configuration document: the merged,
// ordered key/value document plus its decoded metadata.
type Config struct {
	Document *sweep.Document
	Meta     *Meta
	Path     string
}

// Engine builds a [sweep.Engine] for this document version, with the
// metadata's exclusions compiled in.
func (c *Config) Engine(opts ...sweep.EngineOpt) (*sweep.Engine, error) {
	excl, err := c.Meta.Exclusions()
	if err != nil {
		return nil, fmt.Errorf("compile exclusions: %w", err)
	}

	opts = append([]sweep.EngineOpt{sweep.WithExclusions(excl)}, opts...)

	return sweep.NewEngine(c.Document, opts...)
}

// HistoryPath returns the path of the completed-run record for this document:
// the metadata's history file inside the document's log directory.
func (c *Config) HistoryPath() string {
	logDir := "logs"
	if v, ok := c.Document.Get("log_dir"); ok && !v.IsList() {
		logDir = fmt.Sprint(v.Scalar())
	}

	return filepath.Join(logDir, c.Meta.HistoryFile)
}

// Validator validates configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// Loader handles validation, ordered YAML parsing, default merging, and
// required-key enforcement for one configuration file.
type Loader struct {
	cv   Validator
	path string
	data []byte
}

// NewLoaderFromBytes creates a [Loader] from raw document data.
func NewLoaderFromBytes(data []byte, opts ...LoaderOpt) *Loader {
	l := &Loader{
		cv:   DefaultValidator,
		data: data,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// NewLoaderFromFile creates a [Loader] from a file path.
func NewLoaderFromFile(path string, opts ...LoaderOpt) (*Loader, error) {
	data, err := readConfig(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	opts = append(opts, withPath(path))

	return NewLoaderFromBytes(data, opts...), nil
}

type LoaderOpt func(*Loader)

// WithValidator sets a custom schema validator.
func WithValidator(cv Validator) LoaderOpt {
	return func(l *Loader) {
		l.cv = cv
	}
}

func withPath(path string) LoaderOpt {
	return func(l *Loader) {
		l.path = path
	}
}

// Validate validates the raw document against the schema without building a
// [Config].
func (l *Loader) Validate() error {
	var anyConfig any

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(&anyConfig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	if l.cv != nil {
		err = l.cv.Validate(anyConfig)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
	}

	return nil
}

// Load validates, parses, and assembles the configuration: the embedded
// default table is merged under the user document (user values win, default
// key order first), metadata is decoded, derived defaults are injected, and
// required-key presence is enforced.
func (l *Loader) Load() (*Config, error) {
	err := l.Validate()
	if err != nil {
		return nil, err
	}

	userDoc := yaml.MapSlice{}

	dec := yaml.NewOrderedDecoder(bytes.NewReader(l.data))

	err = dec.Decode(&userDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	defaults := yaml.MapSlice{}

	err = yaml.NewOrderedDecoder(bytes.NewReader(defaultYAML)).Decode(&defaults)
	if err != nil {
		panic(fmt.Errorf("parse embedded defaults: %w", err))
	}

	doc := buildDocument(mergeDocuments(defaults, userDoc))

	for _, key := range sweep.RequiredKeys {
		if !doc.Has(key) {
			return nil, fmt.Errorf("configuration file %q: %w: %s", l.path, sweep.ErrMissingRequiredKey, key)
		}
	}

	applyDerivedDefaults(doc)

	meta, err := l.decodeMeta()
	if err != nil {
		return nil, err
	}

	return &Config{
		Document: doc,
		Meta:     meta,
		Path:     l.path,
	}, nil
}

func (l *Loader) decodeMeta() (*Meta, error) {
	var aux struct {
		Meta *Meta `yaml:"meta"`
	}

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(&aux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	meta := aux.Meta
	if meta == nil {
		meta = &Meta{}
	}

	meta.EnsureDefaults()

	return meta, nil
}

// mergeDocuments merges the user document over the defaults: default keys keep
// their positions (with user values when present), then user-only keys follow
// in user order. The merge is shallow; a user `meta` mapping replaces the
// default one entirely.
func mergeDocuments(defaults, user yaml.MapSlice) yaml.MapSlice {
	userIdx := make(map[string]int, len(user))
	for i, item := range user {
		userIdx[fmt.Sprint(item.Key)] = i
	}

	merged := make(yaml.MapSlice, 0, len(defaults)+len(user))
	seen := make(map[string]struct{}, len(defaults))

	for _, item := range defaults {
		key := fmt.Sprint(item.Key)
		seen[key] = struct{}{}

		if i, ok := userIdx[key]; ok {
			merged = append(merged, user[i])
		} else {
			merged = append(merged, item)
		}
	}

	for _, item := range user {
		if _, ok := seen[fmt.Sprint(item.Key)]; !ok {
			merged = append(merged, item)
		}
	}

	return merged
}

func buildDocument(data yaml.MapSlice) *sweep.Document {
	doc := sweep.NewDocument()

	for _, item := range data {
		key := fmt.Sprint(item.Key)

		switch v := toPlain(item.Value).(type) {
		case []any:
			doc.Set(key, sweep.List(v...))
		default:
			doc.Set(key, sweep.Scalar(v))
		}
	}

	return doc
}

// applyDerivedDefaults injects the dataset prefixes derived from data_name,
// when data_name is a fixed scalar.
func applyDerivedDefaults(doc *sweep.Document) {
	name, ok := doc.Get("data_name")
	if !ok || name.IsList() {
		return
	}

	base := fmt.Sprint(name.Scalar())
	doc.SetDefault("train_prefix", sweep.Scalar(base+".train"))
	doc.SetDefault("test_prefix", sweep.Scalar(base+".test"))
	doc.SetDefault("valid_prefix", sweep.Scalar(base+".valid"))
}

// toPlain converts ordered mappings into plain maps, recursively. Scalars are
// returned unchanged.
func toPlain(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(t))
		for _, item := range t {
			m[fmt.Sprint(item.Key)] = toPlain(item.Value)
		}

		return m

	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = toPlain(e)
		}

		return s
	}

	return v
}

func readConfig(path string) ([]byte, error) {
	pathInfo, err := os.Stat(path)
	if pathInfo != nil {
		if err == nil && pathInfo.IsDir() {
			return nil, fmt.Errorf("%s: path is a directory", path)
		}
		if err == nil && !pathInfo.Mode().IsRegular() {
			return nil, fmt.Errorf("%s: unknown file state", path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}
