package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Step      int       `json:"step"`
	IDs       []int     `json:"selected_image_ids"`
	Kind      string    `json:"mutation_type"`
	CreatedAt time.Time `json:"created_at"`
}

func TestCodecsInteroperate(t *testing.T) {
	in := []record{{
		Step:      3,
		IDs:       []int{0, 2},
		Kind:      "global",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}

	for _, enc := range []Codec{JSON{}, GoJSON{}} {
		for _, dec := range []Codec{JSON{}, GoJSON{}} {
			t.Run(enc.Name()+"->"+dec.Name(), func(t *testing.T) {
				data, err := enc.Marshal(in)
				require.NoError(t, err)

				var out []record
				require.NoError(t, dec.Unmarshal(data, &out))
				assert.Equal(t, in, out)
			})
		}
	}
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	c, ok = ByName("")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}

func TestMarshalPretty(t *testing.T) {
	data, err := MarshalPretty(GoJSON{}, map[string]int{"step": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"step\": 1\n}", string(data))

	data, err = MarshalPretty(nil, []int{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestMustMarshalPanics(t *testing.T) {
	assert.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}
