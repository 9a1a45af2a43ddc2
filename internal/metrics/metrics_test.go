// AngelaMos | 2026
// metrics_test.go

package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/vidshelf/internal/core"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "not_found", Outcome(fmt.Errorf("purge: %w", core.ErrNotFound)))
	assert.Equal(t, "conflict", Outcome(fmt.Errorf("category %q: %w", "Vlogs", core.ErrConflict)))
	assert.Equal(t, "invalid_state", Outcome(core.ErrInvalidState))
	assert.Equal(t, "forbidden", Outcome(core.ErrForbidden))
	assert.Equal(t, "unauthenticated", Outcome(core.ErrUnauthorized))
	assert.Equal(t, "invalid_input", Outcome(core.ErrInvalidInput))
	assert.Equal(t, "error", Outcome(errors.New("disk full")))
}

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(CatalogOperations.WithLabelValues("category.rename", "conflict"))

	RecordOperation("category.rename", fmt.Errorf("rename: %w", core.ErrConflict))

	after := testutil.ToFloat64(CatalogOperations.WithLabelValues("category.rename", "conflict"))
	assert.Equal(t, before+1, after)
}
