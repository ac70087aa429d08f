package adminlog

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/models"
)

func TestParseFilter_Defaults(t *testing.T) {
	f, err := ParseFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Zero(t, f.Offset())
}

func TestParseFilter_AllFields(t *testing.T) {
	f, err := ParseFilter(url.Values{
		"action":     {"approve"},
		"targetType": {"order"},
		"from":       {"2026-01-01"},
		"to":         {"2026-01-31"},
		"q":          {" KAI-1 "},
		"page":       {"3"},
		"pageSize":   {"500"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActionApprove, f.Action)
	assert.Equal(t, models.TargetOrder, f.TargetType)
	assert.Equal(t, "KAI-1", f.Query)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 200, f.Offset())
	require.NotNil(t, f.To)
	assert.Equal(t, 31, f.To.Day())
	assert.Equal(t, 23, f.To.Hour())
}

func TestParseFilter_Rejects(t *testing.T) {
	for _, v := range []url.Values{
		{"action": {"EXPLODE"}},
		{"from": {"yesterday"}},
		{"page": {"0"}},
		{"pageSize": {"x"}},
	} {
		_, err := ParseFilter(v)
		assert.Error(t, err, v.Encode())
	}
}

func TestFilterWhere(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := Filter{Action: models.ActionDelete, From: &from, Query: "50%_off"}
	clause, args := f.where()
	assert.Equal(t, " WHERE 1=1 AND action = $1 AND created_at >= $2 AND details::text ILIKE $3", clause)
	require.Len(t, args, 3)
	assert.Equal(t, `%50\%\_off%`, args[2])
}
