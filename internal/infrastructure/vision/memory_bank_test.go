package vision

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMemoryBankRequiresSamples(t *testing.T) {
	_, err := BuildMemoryBank(nil)
	require.Error(t, err)
}

func TestBuildMemoryBankRejectsRaggedVectors(t *testing.T) {
	_, err := BuildMemoryBank([][]float64{{1, 2}, {1, 2, 3}})
	require.Error(t, err)
}

func TestMemoryBankScoreNormalSample(t *testing.T) {
	bank, err := BuildMemoryBank([][]float64{
		{1.0, 2.0},
		{1.2, 2.2},
		{0.8, 1.8},
	})
	require.NoError(t, err)

	// Вектор, равный среднему, почти не аномален.
	score := bank.Score([]float64{1.0, 2.0})
	require.InDelta(t, 0.0, score, 1e-6)
}

func TestMemoryBankScoreCapped(t *testing.T) {
	bank, err := BuildMemoryBank([][]float64{
		{1.0, 2.0},
		{1.2, 2.2},
	})
	require.NoError(t, err)

	// Отклонение далеко за три сигмы насыщает балл до 1.0.
	require.Equal(t, 1.0, bank.Score([]float64{100.0, 2.0}))
}

func TestMemoryBankScoreDimensionMismatch(t *testing.T) {
	bank, err := BuildMemoryBank([][]float64{{1.0, 2.0}})
	require.NoError(t, err)
	require.Equal(t, 0.0, bank.Score([]float64{1.0}))
}

func TestMemoryBankZeroVariance(t *testing.T) {
	// Одинаковые образцы: эпсилон спасает от деления на ноль.
	bank, err := BuildMemoryBank([][]float64{{5.0}, {5.0}, {5.0}})
	require.NoError(t, err)
	require.InDelta(t, 0.0, bank.Score([]float64{5.0}), 1e-6)
	require.Equal(t, 1.0, bank.Score([]float64{6.0}))
}

func TestMemoryBankSaveLoad(t *testing.T) {
	bank, err := BuildMemoryBank([][]float64{
		{1.0, 2.0, 3.0},
		{1.5, 2.5, 3.5},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bank.json")
	require.NoError(t, bank.Save(path))

	loaded, err := LoadMemoryBank(path, 3)
	require.NoError(t, err)
	require.Equal(t, bank.Mean, loaded.Mean)
	require.Equal(t, bank.Std, loaded.Std)
	require.Equal(t, 2, loaded.NumSamples)
}

func TestLoadMemoryBankDimensionGuard(t *testing.T) {
	bank, err := BuildMemoryBank([][]float64{{1.0, 2.0}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bank.json")
	require.NoError(t, bank.Save(path))

	_, err = LoadMemoryBank(path, 14)
	require.Error(t, err)
}

func TestLoadMemoryBankMissingFile(t *testing.T) {
	_, err := LoadMemoryBank(filepath.Join(t.TempDir(), "absent.json"), 0)
	require.Error(t, err)
}
