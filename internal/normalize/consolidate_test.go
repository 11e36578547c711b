package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invsync/internal/inventory"
)

func rec(date, branch, device string, in, out, count int, remarks string) inventory.Record {
	return inventory.Record{
		Date: date, BranchName: branch, DeviceName: device,
		StockIn: in, StockOut: out, CurrentCount: count, Remarks: remarks,
	}
}

func TestConsolidate(t *testing.T) {
	t.Run("balance precedence", func(t *testing.T) {
		out := Consolidate([]inventory.Record{
			rec("1/5", "Lagos", "Widget", 0, 0, 5, ""),
			rec("1/5", "Lagos", "Widget", 0, 0, 0, ""),
		})
		require.Len(t, out, 1)
		assert.Equal(t, 5, out[0].CurrentCount)
	})

	t.Run("later positive balance wins", func(t *testing.T) {
		out := Consolidate([]inventory.Record{
			rec("1/5", "Lagos", "Widget", 0, 0, 0, ""),
			rec("1/5", "Lagos", "Widget", 0, 0, 5, ""),
			rec("1/5", "Lagos", "Widget", 0, 0, 7, ""),
		})
		require.Len(t, out, 1)
		assert.Equal(t, 7, out[0].CurrentCount)
	})

	t.Run("flows are summed and last remark wins", func(t *testing.T) {
		out := Consolidate([]inventory.Record{
			rec("1/5", "Lagos", "Widget", 2, 1, 0, "From HQ"),
			rec("1/5", "Lagos", "Widget", 3, 4, 0, ""),
			rec("1/5", "Lagos", "Widget", 0, 0, 0, "To Yaba"),
		})
		require.Len(t, out, 1)
		assert.Equal(t, 5, out[0].StockIn)
		assert.Equal(t, 5, out[0].StockOut)
		assert.Equal(t, "To Yaba", out[0].Remarks)
	})

	t.Run("distinct keys keep first appearance order", func(t *testing.T) {
		out := Consolidate([]inventory.Record{
			rec("1/5", "Lagos", "B", 1, 0, 0, ""),
			rec("1/5", "Abuja", "B", 1, 0, 0, ""),
			rec("1/6", "Lagos", "B", 1, 0, 0, ""),
			rec("1/5", "Lagos", "A", 1, 0, 0, ""),
			rec("1/5", "Lagos", "B", 1, 0, 0, ""),
		})
		require.Len(t, out, 4)
		assert.Equal(t, []string{"B", "B", "B", "A"}, []string{out[0].DeviceName, out[1].DeviceName, out[2].DeviceName, out[3].DeviceName})
		assert.Equal(t, 2, out[0].StockIn)
		assertInvariants(t, out)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := Consolidate([]inventory.Record{
			rec("1/5", "Lagos", "Widget", 2, 1, 9, "x"),
			rec("1/5", "Lagos", "Widget", 3, 0, 0, ""),
			rec("1/6", "Lagos", "Widget", 0, 4, 2, ""),
		})
		assert.Equal(t, once, Consolidate(once))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Consolidate(nil))
	})
}
