package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttrPolicy_DenyBeatsKeep(t *testing.T) {
	t.Parallel()

	policy := attrPolicy{
		denyKeys:     map[string]bool{"bench.secret": true},
		denyPrefixes: []string{"bench.internal."},
		keepKeys:     map[string]bool{"bench.internal.size": true},
		keepPrefixes: []string{"bench."},
	}

	// Exact deny wins over the keep prefix.
	assert.Equal(t, verdictDrop, policy.classify("bench.secret"))

	// Deny prefix wins over an exact keep key.
	assert.Equal(t, verdictDrop, policy.classify("bench.internal.size"))

	// Unaffected keys still keep by prefix.
	assert.Equal(t, verdictKeep, policy.classify("bench.samples"))
}

func TestAttrPolicy_UnmatchedDrops(t *testing.T) {
	t.Parallel()

	policy := attrPolicy{keepPrefixes: []string{"run."}}

	assert.Equal(t, verdictDrop, policy.classify("host.arch"))
	assert.Equal(t, verdictKeep, policy.classify("run.id"))
}

func TestExportAttrPolicy_KeepKeysAreExact(t *testing.T) {
	t.Parallel()

	// "seed" keeps, but nothing hangs off it as a prefix.
	assert.Equal(t, verdictKeep, exportAttrPolicy.classify("seed"))
	assert.Equal(t, verdictDrop, exportAttrPolicy.classify("seedling"))
}
