package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cognicore/postmeta/pkg/postmeta"
	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
	"github.com/cognicore/postmeta/pkg/postmeta/jsonspan"
	"github.com/cognicore/postmeta/pkg/postmeta/prompts"
)

// Stage names this step in errors and metrics.
const Stage = "unify"

// Unifier maps a batch's raw tag vocabulary onto canonical tags with one
// model call.
type Unifier struct {
	invoker postmeta.Invoker
	logger  *slog.Logger
}

// NewUnifier creates a unifier backed by the given model invoker.
func NewUnifier(invoker postmeta.Invoker, logger *slog.Logger) *Unifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Unifier{invoker: invoker, logger: logger.With("component", "unifier")}
}

// Unify builds the TagMap for every distinct tag in tagSets.
//
// The reply may wrap the JSON object in prose; the first balanced {...} span
// is parsed. Canonical values are normalized to Title Case. Completeness of
// the returned map is not checked here; see TagMap.Apply.
func (u *Unifier) Unify(ctx context.Context, tagSets [][]string) (TagMap, error) {
	distinct := Distinct(tagSets)
	if len(distinct) == 0 {
		u.logger.Debug("no tags to unify")
		return TagMap{}, nil
	}

	resp, err := u.invoker.Invoke(ctx, prompts.Unification(strings.Join(distinct, ", ")))
	if err != nil {
		return nil, fmt.Errorf("%s: invoke model: %w", Stage, err)
	}

	m, err := Parse(resp.Content)
	if err != nil {
		return nil, err
	}

	if missing := m.Missing(distinct); len(missing) > 0 {
		u.logger.Warn("model left tags unmapped", "missing", missing)
	}
	u.logger.Info("tags unified", "raw", len(distinct), "canonical", len(m.Canonical()))
	return m, nil
}

// Parse extracts the raw -> canonical mapping from a model reply. A null or
// blank canonical value makes the reply malformed.
func Parse(raw string) (TagMap, error) {
	span, ok := jsonspan.FirstObject(raw)
	if !ok {
		return nil, internalerr.Malformed(Stage, raw, internalerr.ErrNoJSONFound)
	}

	var parsed map[string]*string
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil, internalerr.Malformed(Stage, raw, err)
	}

	keys := make([]string, 0, len(parsed))
	for rawTag := range parsed {
		keys = append(keys, rawTag)
	}
	sort.Strings(keys)

	m := make(TagMap, len(parsed))
	for _, rawTag := range keys {
		canonical := parsed[rawTag]
		if canonical == nil || strings.TrimSpace(*canonical) == "" {
			return nil, internalerr.Malformed(Stage, raw, fmt.Errorf("tag %q has no canonical value", rawTag))
		}
		m[rawTag] = TitleCase(strings.TrimSpace(*canonical))
	}
	return m, nil
}
