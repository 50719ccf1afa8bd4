package types_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasgurus/discoveryd/types"
)

func TestErrorLog_AccumulatesErrors(t *testing.T) {
	var log types.ErrorLog
	log.LogError(errors.New("first"))
	log.LogError(errors.New("second"))

	errs := log.Errors()
	assert.Len(t, errs, 2)
	assert.Equal(t, "first", errs[0].Error())
	assert.Equal(t, "second", errs[1].Error())
}

func TestMapSlice(t *testing.T) {
	result := types.MapSlice([]int{1, 2, 3}, func(v int) string {
		return string(rune('a' + v))
	})
	assert.Equal(t, []string{"b", "c", "d"}, result)
}
