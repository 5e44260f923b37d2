package pattern

import (
	"math/rand/v2"
	"testing"

	"github.com/annel0/worldedit/internal/errs"
	"github.com/annel0/worldedit/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiftyFiftyDistribution(t *testing.T) {
	p, err := ParsePattern("50%stone,50%dirt")
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	counts := map[block.BlockID]int{}
	for i := 0; i < 10000; i++ {
		counts[p.Sample(rng).ID]++
	}
	ratio := float64(counts[block.StoneBlockID]) / float64(counts[block.DirtBlockID])
	assert.InDelta(t, 1.0, ratio, 0.05)
	assert.Len(t, counts, 2)
}

func TestSingleEntryAlwaysSameDescriptor(t *testing.T) {
	p, err := ParsePattern("stone")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		assert.Equal(t, block.StoneBlockID, p.Sample(nil).ID)
	}
	assert.Equal(t, 1.0, p.Entries()[0].Cumulative)
}

func TestCumulativeTable(t *testing.T) {
	cases := []struct {
		in   string
		want []float64
	}{
		{"stone,dirt", []float64{0.5, 1}},
		{"20%stone,dirt,sand", []float64{0.2, 0.6, 1}},
		{"30%stone,20%dirt", []float64{0.6, 1}},
		{"100%stone,dirt", []float64{1}},
		{"10.5%glass,89.5%sand", []float64{0.105, 1}},
		{"stone,,dirt", []float64{0.5, 1}},
		{"stone, ", []float64{1}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			p, err := ParsePattern(tc.in)
			require.NoError(t, err)
			entries := p.Entries()
			require.Len(t, entries, len(tc.want))
			for i, e := range entries {
				assert.InDelta(t, tc.want[i], e.Cumulative, 1e-9)
				if i > 0 {
					assert.Greater(t, e.Cumulative, entries[i-1].Cumulative)
				}
			}
			assert.Equal(t, 1.0, entries[len(entries)-1].Cumulative)
		})
	}
}

func TestPickBoundaries(t *testing.T) {
	p, err := ParsePattern("25%stone,75%dirt")
	require.NoError(t, err)
	assert.Equal(t, block.StoneBlockID, p.Pick(0))
	assert.Equal(t, block.StoneBlockID, p.Pick(0.2499))
	assert.Equal(t, block.DirtBlockID, p.Pick(0.25))
	assert.Equal(t, block.DirtBlockID, p.Pick(1.5), "Вне диапазона берется последняя запись")
}

func TestPatternStatesAndCase(t *testing.T) {
	p, err := ParsePattern("OAK_LOG[axis=x,],core:Stone")
	assert.Error(t, err, "Пустое свойство в списке состояний")

	p, err = ParsePattern("OAK_STAIRS[facing=east,half=top],core:Stone")
	require.NoError(t, err)
	d := p.Pick(0)
	facing, _ := d.State("facing")
	half, _ := d.State("half")
	assert.Equal(t, "east", facing)
	assert.Equal(t, "top", half)
	assert.Equal(t, "50%oak_stairs[facing=east,half=top],50%stone", p.String())
}

func TestPatternValidation(t *testing.T) {
	bad := []string{
		"",
		"*",
		"stone,*",
		"60%stone,50%dirt",
		"0%stone",
		"101%stone",
		"unobtainium",
		"stick",
		"stone[axis=y]",
		"oak_log[axis=q]",
		"stone dirt",
		"1234%stone",
		",",
		" , ,",
	}
	for _, in := range bad {
		_, err := ParsePattern(in)
		assert.True(t, errs.IsValidation(err), "Ожидалась ошибка валидации для %q, получено %v", in, err)
	}
}

func TestMaskNegation(t *testing.T) {
	m, err := ParseMask("!water")
	require.NoError(t, err)

	for _, name := range block.Default().Names() {
		mat, _ := block.Lookup(name)
		if !mat.IsBlock {
			continue
		}
		d, err := mat.Descriptor(nil)
		require.NoError(t, err)
		assert.Equal(t, mat.ID != block.WaterBlockID, m.Matches(d), "Дескриптор %s", d)
	}
	assert.False(t, m.Matches(block.MustParse("water[level=7]")))
}

func TestMaskPositiveAndNegativeRules(t *testing.T) {
	m, err := ParseMask("stone,oak_log,!oak_log[axis=x]")
	require.NoError(t, err)

	assert.True(t, m.Matches(block.MustParse("stone")))
	assert.True(t, m.Matches(block.MustParse("oak_log[axis=z]")))
	assert.False(t, m.Matches(block.MustParse("oak_log[axis=x]")))
	assert.False(t, m.Matches(block.MustParse("dirt")), "Нет совпадения с положительными правилами")

	anyMask, err := ParseMask("*,!air")
	require.NoError(t, err)
	assert.True(t, anyMask.Matches(block.MustParse("dirt")))
	assert.False(t, anyMask.Matches(block.Air))

	none, err := ParseMask("!*")
	require.NoError(t, err)
	assert.False(t, none.Matches(block.MustParse("stone")))
}

func TestMaskValidation(t *testing.T) {
	for _, in := range []string{"", "*[level=1]", "diamond", "ghost", "water[axis=x]"} {
		_, err := ParseMask(in)
		assert.True(t, errs.IsValidation(err), "Ожидалась ошибка валидации для %q", in)
	}
	m, err := ParseMask(",stone,")
	require.NoError(t, err, "Пустые записи пропускаются")
	assert.Equal(t, "stone", m.String())

	m, err = ParseMask("50%stone")
	require.NoError(t, err, "Проценты в маске игнорируются")
	assert.Equal(t, "stone", m.String())
}
