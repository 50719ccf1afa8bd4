package downstream_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgurus/discoveryd/downstream"
	"github.com/atlasgurus/discoveryd/lldwerr"
)

func TestRecordingMaterialisers_CallOrder(t *testing.T) {
	m := &downstream.RecordingMaterialisers{}
	var errs downstream.ErrBuffer
	ctx := context.Background()

	require.NoError(t, m.UpdateItems(ctx, 1, 2, nil, nil, &errs, 0, 0))
	require.NoError(t, m.SortItemLinks(ctx, 1, 2, nil))
	require.NoError(t, m.UpdateTriggers(ctx, 1, 2, nil, &errs, 0))
	require.NoError(t, m.UpdateGraphs(ctx, 1, 2, nil, &errs, 0))
	require.NoError(t, m.UpdateHosts(ctx, 1, 2, nil, &errs, 0, 0))

	assert.Equal(t, []string{
		"update_items", "sort_item_links", "update_triggers", "update_graphs", "update_hosts",
	}, m.Calls)
}

func TestErrBuffer_JoinsMessages(t *testing.T) {
	var errs downstream.ErrBuffer
	errs.Add("first problem")
	errs.Add("second problem")
	assert.Equal(t, "first problem; second problem", errs.String())
}

func TestErrBuffer_EmptyIsEmptyString(t *testing.T) {
	var errs downstream.ErrBuffer
	assert.Equal(t, "", errs.String())
}

func TestIsParentHostRemoved(t *testing.T) {
	assert.True(t, downstream.IsParentHostRemoved(lldwerr.ErrParentHostRemoved))
	assert.False(t, downstream.IsParentHostRemoved(lldwerr.ErrPayloadNotArray))
}
