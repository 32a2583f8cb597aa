package sizing

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUint32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      int
		want    uint32
		wantErr bool
	}{
		{name: "zero", in: 0, want: 0},
		{name: "small", in: 4096, want: 4096},
		{name: "max", in: math.MaxUint32, want: math.MaxUint32},
		{name: "negative", in: -1, wantErr: true},
		{name: "too large", in: math.MaxUint32 + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ToUint32(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddUint32(t *testing.T) {
	t.Parallel()

	sum, ok := AddUint32(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint32(3), sum)

	_, ok = AddUint32(math.MaxUint32, 1)
	assert.False(t, ok)
}

func TestInBounds(t *testing.T) {
	t.Parallel()

	assert.True(t, InBounds(0, 10, 10))
	assert.True(t, InBounds(10, 0, 10))
	assert.False(t, InBounds(5, 6, 10))
	assert.False(t, InBounds(-1, 1, 10))
	assert.False(t, InBounds(11, 0, 10))
	assert.False(t, InBounds(0, math.MaxInt64, 10))
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	data, err := ReadAllWithLimit(bytes.NewReader([]byte("lump")), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("lump"), data)

	_, err = ReadAllWithLimit(bytes.NewReader([]byte("lumps")), 4)
	require.ErrorIs(t, err, ErrOverflow)
}
