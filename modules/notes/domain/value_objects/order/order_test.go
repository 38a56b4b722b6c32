package order_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
)

func TestKey_Between(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b order.Key
		want float64
	}{
		{"adjacent integers", order.FromInt(0), order.FromInt(1), 0.5},
		{"wider gap", order.FromInt(2), order.FromInt(5), 3.5},
		{"negative bound", order.FromInt(-1), order.FromInt(0), -0.5},
		{"fraction and integer", order.FromFloat64(0.5), order.FromInt(1), 0.75},
		{"two fractions", order.FromFloat64(0.25), order.FromFloat64(0.5), 0.375},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := order.Between(tt.a, tt.b)
			require.InDelta(t, tt.want, got.Float64(), 0)
			require.Equal(t, -1, tt.a.Cmp(got))
			require.Equal(t, -1, got.Cmp(tt.b))
		})
	}
}

func TestKey_AfterBefore(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(3), order.After(order.FromInt(2)).Int())
	require.Equal(t, int64(3), order.After(order.FromFloat64(2.5)).Int())
	require.True(t, order.After(order.FromFloat64(2.5)).IsInt())

	require.Equal(t, int64(-1), order.Before(order.FromInt(0)).Int())
	require.Equal(t, int64(-1), order.Before(order.FromFloat64(-0.5)).Int())
	require.True(t, order.Before(order.FromFloat64(0.5)).Equal(order.Zero))
}

func TestKey_Cmp(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, order.FromInt(1).Cmp(order.FromFloat64(1.0)))
	require.Equal(t, -1, order.FromFloat64(0.5).Cmp(order.FromInt(1)))
	require.Equal(t, 1, order.FromInt(0).Cmp(order.FromFloat64(-0.5)))
	require.True(t, order.FromFloat64(-0.5).Less(order.Zero))
}

func TestKey_Float64RoundTrip(t *testing.T) {
	t.Parallel()

	// Keys produced by bisection have power-of-two denominators, so the
	// float64 storage representation is exact.
	k := order.FromInt(0)
	upper := order.FromInt(1)
	for i := 0; i < 40; i++ {
		k = order.Between(k, upper)
		require.True(t, k.Equal(order.FromFloat64(k.Float64())), "iteration %d", i)
	}
}

func TestKey_FromFloat64Degenerate(t *testing.T) {
	t.Parallel()

	require.True(t, order.FromFloat64(0).Equal(order.Zero))
	require.True(t, order.FromFloat64(-3).Equal(order.FromInt(-3)))
}

func TestKey_Int(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(2), order.FromFloat64(2.5).Int())
	require.Equal(t, int64(-1), order.FromFloat64(-0.5).Int())
	require.Equal(t, int64(-3), order.FromFloat64(-2.5).Int())
}

func TestKey_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2", order.FromInt(2).String())
	require.Equal(t, "-1/2", order.FromFloat64(-0.5).String())
}
